package usecase

import (
	"context"
	"testing"
	"time"

	authdto "worksync-backend/internal/auth/dto"
	"worksync-backend/internal/auth/repository"
	"worksync-backend/pkg/apperror"
	"worksync-backend/pkg/config"
)

func newAuth() (AuthUsecase, repository.FCMTokenRepository) {
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: time.Minute, JWTRefreshExpiry: time.Hour}
	fcm := repository.NewMemoryFCMTokenRepository()
	return NewAuthUsecase(repository.NewMemoryUserRepository(), fcm, cfg), fcm
}

func TestRegisterLoginValidate(t *testing.T) {
	ctx := context.Background()
	auth, _ := newAuth()

	logins := make(chan [2]string, 2)
	auth.SetLoginCallback(func(userID, sessionID string) { logins <- [2]string{userID, sessionID} })

	reg, err := auth.Register(ctx, &authdto.RegisterRequest{Email: "Alice@Example.com", Password: "secret1", Name: "Alice"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.User.Email != "alice@example.com" {
		t.Fatalf("email should be normalized, got %s", reg.User.Email)
	}

	select {
	case got := <-logins:
		if got[0] != reg.User.ID || got[1] != reg.SessionID {
			t.Fatalf("callback got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("login callback not called")
	}

	session, err := auth.ValidateToken(ctx, reg.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if session.User.ID != reg.User.ID || session.SessionID != reg.SessionID {
		t.Fatalf("unexpected session %+v", session)
	}

	if _, err := auth.ValidateToken(ctx, reg.RefreshToken); apperror.KindOf(err) != apperror.KindUnauthenticated {
		t.Fatalf("refresh token must not pass as access token, got %v", err)
	}

	if _, err := auth.Login(ctx, &authdto.LoginRequest{Email: "alice@example.com", Password: "wrong!!"}); apperror.KindOf(err) != apperror.KindUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	login, err := auth.Login(ctx, &authdto.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.SessionID == reg.SessionID {
		t.Fatal("each login starts a new session")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	auth, _ := newAuth()
	req := &authdto.RegisterRequest{Email: "bob@example.com", Password: "secret1", Name: "Bob"}
	if _, err := auth.Register(ctx, req); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := auth.Register(ctx, req); apperror.KindOf(err) != apperror.KindInvalid {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestRefreshKeepsSessionAndRotates(t *testing.T) {
	ctx := context.Background()
	auth, _ := newAuth()
	reg, _ := auth.Register(ctx, &authdto.RegisterRequest{Email: "c@example.com", Password: "secret1", Name: "C"})

	refreshed, err := auth.RefreshToken(ctx, reg.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.SessionID != reg.SessionID {
		t.Fatal("refresh must keep the session id")
	}
	if _, err := auth.RefreshToken(ctx, reg.RefreshToken); err == nil {
		t.Fatal("rotated refresh token must not be reusable")
	}

	if err := auth.Logout(ctx, refreshed.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := auth.RefreshToken(ctx, refreshed.RefreshToken); err == nil {
		t.Fatal("logged out token must not refresh")
	}
}

func TestFCMTokens(t *testing.T) {
	ctx := context.Background()
	auth, fcm := newAuth()
	if err := auth.RegisterFCMToken(ctx, "u1", "tok", "firefox"); err != nil {
		t.Fatalf("register: %v", err)
	}
	tokens, _ := fcm.GetTokensByUserID(ctx, "u1")
	if len(tokens) != 1 || tokens[0].DeviceInfo != "firefox" {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
	_ = auth.UnregisterFCMToken(ctx, "tok")
	if tokens, _ := fcm.GetTokensByUserID(ctx, "u1"); len(tokens) != 0 {
		t.Fatal("token should be removed")
	}
}
