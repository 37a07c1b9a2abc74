package services

import (
	"context"
	"errors"
	"testing"

	"github.com/recipe-app/apiserver/internal/store/storetest"
	"github.com/recipe-app/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	entries map[string]int
	getErr  error
	sets    int
}

func (c *mapCache) Get(ctx context.Context, key string) (int, bool, error) {
	if c.getErr != nil {
		return 0, false, c.getErr
	}
	userID, ok := c.entries[key]
	return userID, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, userID int) error {
	c.sets++
	c.entries[key] = userID
	return nil
}

func newAuthFixture(t *testing.T, cache TokenCache) (*AuthService, *UserService, *storetest.DB) {
	t.Helper()
	db := storetest.New()
	users := NewUserService(db.Users(), nil, 0)
	return NewAuthService(db.Users(), db.Tokens(), cache, nil), users, db
}

func TestAuthenticateIssuesStableToken(t *testing.T) {
	auth, users, _ := newAuthFixture(t, nil)
	ctx := context.Background()

	_, err := users.CreateUser(ctx, "cook@example.com", "secret123", "")
	require.NoError(t, err)

	first, err := auth.Authenticate(ctx, "Cook@Example.com", "secret123")
	require.NoError(t, err)
	assert.Len(t, first.Key, 40)

	second, err := auth.Authenticate(ctx, "cook@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, first.Key, second.Key)
}

func TestAuthenticateFailures(t *testing.T) {
	auth, users, db := newAuthFixture(t, nil)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "cook@example.com", "secret123", "")
	require.NoError(t, err)

	cases := map[string]struct{ email, password string }{
		"wrong password": {"cook@example.com", "wrong"},
		"unknown email":  {"ghost@example.com", "secret123"},
		"empty password": {"cook@example.com", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token, err := auth.Authenticate(ctx, tc.email, tc.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Empty(t, token.Key)
		})
	}

	user.IsActive = false
	_, err = db.Users().Update(ctx, user)
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, "cook@example.com", "secret123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveToken(t *testing.T) {
	cache := &mapCache{entries: map[string]int{}}
	auth, users, db := newAuthFixture(t, cache)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "cook@example.com", "secret123", "")
	require.NoError(t, err)
	token, err := auth.Authenticate(ctx, "cook@example.com", "secret123")
	require.NoError(t, err)

	resolved, err := auth.ResolveToken(ctx, token.Key)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, 1, cache.sets)

	_, err = auth.ResolveToken(ctx, token.Key)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "second lookup should hit the cache")

	_, err = auth.ResolveToken(ctx, "unknown")
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = auth.ResolveToken(ctx, "")
	require.ErrorIs(t, err, ErrUnauthenticated)

	user.IsActive = false
	_, err = db.Users().Update(ctx, user)
	require.NoError(t, err)
	_, err = auth.ResolveToken(ctx, token.Key)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveTokenFallsBackWhenCacheFails(t *testing.T) {
	cache := &mapCache{entries: map[string]int{}, getErr: errors.New("redis down")}
	auth, _, db := newAuthFixture(t, cache)
	ctx := context.Background()

	user, err := db.Users().Create(ctx, types.User{Email: "cook@example.com", IsActive: true})
	require.NoError(t, err)
	token, err := db.Tokens().GetOrCreate(ctx, user.ID, "abc")
	require.NoError(t, err)

	resolved, err := auth.ResolveToken(ctx, token.Key)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}
