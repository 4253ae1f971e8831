package usecase

import (
	"context"

	authdomain "worksync-backend/internal/auth/domain"
	authdto "worksync-backend/internal/auth/dto"
)

// Session is what a valid access token resolves to
type Session struct {
	User      *authdomain.User
	SessionID string
}

// LoginCallback runs after a user signs in or registers
type LoginCallback func(userID, sessionID string)

// AuthUsecase defines the authentication operations
type AuthUsecase interface {
	Register(ctx context.Context, req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*authdto.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(ctx context.Context, accessToken string) (*Session, error)
	GetUser(ctx context.Context, userID string) (*authdomain.User, error)

	RegisterFCMToken(ctx context.Context, userID, token, deviceInfo string) error
	UnregisterFCMToken(ctx context.Context, token string) error

	SetLoginCallback(cb LoginCallback)
}
