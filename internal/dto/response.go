package dto

// ── 认证模块响应 ──

// TokenResponse 登录 / 注册成功响应
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"` // Access Token 有效期（秒）
	User        UserResponse `json:"user"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ── 档案模块响应 ──

// ProfileResponse 用户档案
type ProfileResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	IsMaster  bool   `json:"is_master"`
	CreatedAt string `json:"created_at"`
}

// ProfileListResponse 档案列表（管理员）
type ProfileListResponse struct {
	List []ProfileResponse `json:"list"`
}
