package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/recipe-app/apiserver/internal/store"
	"github.com/recipe-app/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tokenKeyBytes = 20

// TokenRepository defines persistence operations for auth tokens.
type TokenRepository interface {
	GetOrCreate(ctx context.Context, userID int, key string) (types.AuthToken, error)
	GetByKey(ctx context.Context, key string) (types.AuthToken, error)
}

// TokenCache memoizes token to user lookups.
type TokenCache interface {
	Get(ctx context.Context, key string) (userID int, ok bool, err error)
	Set(ctx context.Context, key string, userID int) error
}

// AuthService issues and resolves opaque bearer tokens.
type AuthService struct {
	users  UserRepository
	tokens TokenRepository
	cache  TokenCache
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService constructs an AuthService. cache may be nil.
func NewAuthService(users UserRepository, tokens TokenRepository, cache TokenCache, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, cache: cache, logger: logger}
}

// Authenticate validates credentials and returns the user's token, creating
// it on first login. Every failure yields ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (types.AuthToken, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.burnCompare(password)
			return types.AuthToken{}, ErrInvalidCredentials
		}
		return types.AuthToken{}, err
	}
	if !checkPassword(user.PasswordHash, password) || !user.IsActive {
		return types.AuthToken{}, ErrInvalidCredentials
	}

	key, err := newTokenKey()
	if err != nil {
		return types.AuthToken{}, err
	}
	return s.tokens.GetOrCreate(ctx, user.ID, key)
}

// ResolveToken returns the active user owning key.
func (s *AuthService) ResolveToken(ctx context.Context, key string) (types.User, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return types.User{}, ErrUnauthenticated
	}

	userID, err := s.lookup(ctx, key)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthenticated
		}
		return types.User{}, err
	}
	if !user.IsActive {
		return types.User{}, ErrUnauthenticated
	}
	return user, nil
}

func (s *AuthService) lookup(ctx context.Context, key string) (int, error) {
	if s.cache != nil {
		userID, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("token cache get failed", zap.Error(err))
		} else if ok {
			return userID, nil
		}
	}

	token, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUnauthenticated
		}
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, token.UserID); err != nil {
			s.logger.Warn("token cache set failed", zap.Error(err))
		}
	}
	return token.UserID, nil
}

// burnCompare spends a bcrypt comparison for unknown accounts so login
// latency does not reveal whether an email is registered.
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("recipe-api-dummy-password"), passwordHashCost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

func newTokenKey() (string, error) {
	buf := make([]byte, tokenKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
