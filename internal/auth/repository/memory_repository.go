package repository

import (
	"context"
	"sync"
	"time"

	authdomain "worksync-backend/internal/auth/domain"
	"worksync-backend/pkg/apperror"

	"github.com/google/uuid"
)

type memoryUserRepository struct {
	mu      sync.RWMutex
	users   map[string]authdomain.User
	byEmail map[string]string
	tokens  map[string]authdomain.RefreshToken
}

// NewMemoryUserRepository keeps users in process memory. Used when no
// database is configured and by tests.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		users:   make(map[string]authdomain.User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]authdomain.RefreshToken),
	}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = NormalizeEmail(user.Email)
	if _, exists := r.byEmail[user.Email]; exists {
		return apperror.Invalid("user.create", "duplicate email")
	}
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*authdomain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	user := r.users[id]
	return &user, nil
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id string) (*authdomain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *memoryUserRepository) Update(ctx context.Context, user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return apperror.NotFound("user.update", user.ID)
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) ReplaceRefreshToken(ctx context.Context, token *authdomain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for key, t := range r.tokens {
		if t.UserID == token.UserID && t.ExpiresAt.Before(now) {
			delete(r.tokens, key)
		}
	}
	r.tokens[token.Token] = *token
	return nil
}

func (r *memoryUserRepository) FindRefreshToken(ctx context.Context, token string) (*authdomain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memoryUserRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

type memoryFCMTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]authdomain.FCMToken
}

func NewMemoryFCMTokenRepository() FCMTokenRepository {
	return &memoryFCMTokenRepository{tokens: make(map[string]authdomain.FCMToken)}
}

func (r *memoryFCMTokenRepository) SaveToken(ctx context.Context, userID, token, deviceInfo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	existing, ok := r.tokens[token]
	if !ok {
		existing = authdomain.FCMToken{ID: uuid.New().String(), Token: token, CreatedAt: now}
	}
	existing.UserID = userID
	existing.DeviceInfo = deviceInfo
	existing.UpdatedAt = now
	r.tokens[token] = existing
	return nil
}

func (r *memoryFCMTokenRepository) GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []authdomain.FCMToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryFCMTokenRepository) DeleteToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}
