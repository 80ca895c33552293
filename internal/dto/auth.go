package dto

// ── 认证模块 DTO ──

// SignUpRequest 注册请求
type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Pin      string `json:"pin"      binding:"required,numeric,min=4,max=8"`
}

// SignInRequest 登录请求
type SignInRequest struct {
	Username string `json:"username" binding:"required"`
	Pin      string `json:"pin"      binding:"required"`
}
