package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	authdomain "worksync-backend/internal/auth/domain"
	authdto "worksync-backend/internal/auth/dto"
	"worksync-backend/internal/auth/repository"
	"worksync-backend/pkg/apperror"
	"worksync-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo      repository.UserRepository
	fcmTokenRepo  repository.FCMTokenRepository
	config        *config.Config
	loginCallback LoginCallback
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, fcmTokenRepo repository.FCMTokenRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo:     userRepo,
		fcmTokenRepo: fcmTokenRepo,
		config:       cfg,
	}
}

// SetLoginCallback registers work to run in the background after each sign in
func (u *authUsecase) SetLoginCallback(cb LoginCallback) {
	u.loginCallback = cb
}

func (u *authUsecase) Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !repository.CheckPasswordHash(req.Password, user.Password) {
		return nil, apperror.Unauthenticated("auth.login", "invalid email or password")
	}
	return u.startSession(ctx, user)
}

func (u *authUsecase) Register(ctx context.Context, req *authdto.RegisterRequest) (*authdto.TokenResponse, error) {
	existing, err := u.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Invalid("auth.register", "email already registered")
	}

	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &authdomain.User{
		Email:    req.Email,
		Password: hashedPassword,
		Name:     req.Name,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return u.startSession(ctx, user)
}

func (u *authUsecase) startSession(ctx context.Context, user *authdomain.User) (*authdto.TokenResponse, error) {
	resp, err := u.generateTokens(ctx, user, uuid.New().String())
	if err != nil {
		return nil, err
	}
	if u.loginCallback != nil {
		go u.loginCallback(user.ID, resp.SessionID)
	}
	return resp, nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, refreshToken string) (*authdto.TokenResponse, error) {
	claims, err := u.parse(refreshToken)
	if err != nil {
		return nil, apperror.Unauthenticated("auth.refresh", "invalid refresh token")
	}

	storedToken, err := u.userRepo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if storedToken == nil || storedToken.ExpiresAt.Before(time.Now()) {
		return nil, apperror.Unauthenticated("auth.refresh", "refresh token expired")
	}

	userID, _ := claims["user_id"].(string)
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Unauthenticated("auth.refresh", "user not found")
	}

	// Rotate the refresh token but keep the session
	if err := u.userRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		log.Printf("[Auth] Failed to delete rotated refresh token: %v", err)
	}
	return u.generateTokens(ctx, user, storedToken.SessionID)
}

func (u *authUsecase) Logout(ctx context.Context, refreshToken string) error {
	return u.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (u *authUsecase) GetUser(ctx context.Context, userID string) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("auth.user", userID)
	}
	return user, nil
}

func (u *authUsecase) ValidateToken(ctx context.Context, tokenString string) (*Session, error) {
	claims, err := u.parse(tokenString)
	if err != nil {
		return nil, apperror.Unauthenticated("auth.validate", "invalid token")
	}
	if typ, _ := claims["typ"].(string); typ != "access" {
		return nil, apperror.Unauthenticated("auth.validate", "not an access token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, apperror.Unauthenticated("auth.validate", "invalid token claims")
	}
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.Unauthenticated("auth.validate", "user not found")
	}

	sessionID, _ := claims["sid"].(string)
	return &Session{User: user, SessionID: sessionID}, nil
}

func (u *authUsecase) RegisterFCMToken(ctx context.Context, userID, token, deviceInfo string) error {
	return u.fcmTokenRepo.SaveToken(ctx, userID, token, deviceInfo)
}

func (u *authUsecase) UnregisterFCMToken(ctx context.Context, token string) error {
	return u.fcmTokenRepo.DeleteToken(ctx, token)
}

func (u *authUsecase) generateTokens(ctx context.Context, user *authdomain.User, sessionID string) (*authdto.TokenResponse, error) {
	accessToken, err := u.sign(jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"sid":     sessionID,
		"typ":     "access",
		"exp":     time.Now().Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}

	refreshToken, err := u.sign(jwt.MapClaims{
		"user_id":  user.ID,
		"token_id": uuid.New().String(),
		"sid":      sessionID,
		"typ":      "refresh",
		"exp":      time.Now().Add(u.config.JWTRefreshExpiry).Unix(),
		"iat":      time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}

	if err := u.userRepo.ReplaceRefreshToken(ctx, &authdomain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		SessionID: sessionID,
		ExpiresAt: time.Now().Add(u.config.JWTRefreshExpiry),
	}); err != nil {
		return nil, err
	}

	return &authdto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		User:         user,
	}, nil
}

func (u *authUsecase) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
