package dto

import authdomain "worksync-backend/internal/auth/domain"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

type TokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	SessionID    string           `json:"session_id"`
	User         *authdomain.User `json:"user"`
}
