package dto

// ── 管理员操作 DTO ──

// ResetPinRequest 重置他人 PIN
type ResetPinRequest struct {
	Username string `json:"username" binding:"required"`
	NewPin   string `json:"newPin"   binding:"required"`
}

// ResetPinResponse 重置结果；失败原因放在 Message 中
type ResetPinResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}
