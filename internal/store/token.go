package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/recipe-app/apiserver/types"
)

// TokenRepository handles persistence for auth tokens.
type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// GetOrCreate stores key for userID unless the user already owns a token,
// and returns whichever token is stored. Concurrent callers converge on the
// same row through the unique constraint on user_id.
func (r *TokenRepository) GetOrCreate(ctx context.Context, userID int, key string) (types.AuthToken, error) {
	const insert = `
		INSERT INTO auth_tokens (key, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, key, userID, time.Now()); err != nil {
		return types.AuthToken{}, err
	}

	const query = `SELECT key, user_id, created_at FROM auth_tokens WHERE user_id = $1`
	var token types.AuthToken
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&token.Key, &token.UserID, &token.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.AuthToken{}, ErrNotFound
		}
		return types.AuthToken{}, err
	}
	return token, nil
}

func (r *TokenRepository) GetByKey(ctx context.Context, key string) (types.AuthToken, error) {
	const query = `SELECT key, user_id, created_at FROM auth_tokens WHERE key = $1`
	var token types.AuthToken
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&token.Key, &token.UserID, &token.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.AuthToken{}, ErrNotFound
		}
		return types.AuthToken{}, err
	}
	return token, nil
}
