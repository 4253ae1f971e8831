package repository

import (
	"context"

	authdomain "worksync-backend/internal/auth/domain"
)

// UserRepository stores users and their refresh tokens
type UserRepository interface {
	Create(ctx context.Context, user *authdomain.User) error
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
	FindByID(ctx context.Context, id string) (*authdomain.User, error)
	Update(ctx context.Context, user *authdomain.User) error

	// ReplaceRefreshToken stores a new token and drops the user's expired ones
	ReplaceRefreshToken(ctx context.Context, token *authdomain.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

// FCMTokenRepository defines the interface for FCM token operations
type FCMTokenRepository interface {
	SaveToken(ctx context.Context, userID, token, deviceInfo string) error
	GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}
