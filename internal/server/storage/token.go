package storage

import (
	"context"

	"github.com/mkarpov/tradegram/internal/models"
)

// TokenStorage defines interface for refresh token persistence
type TokenStorage interface {
	// SaveRefreshToken stores a new refresh token
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken retrieves refresh token by token value.
	// Returns ErrTokenNotFound if token doesn't exist.
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteRefreshToken deletes refresh token by token value.
	// Returns ErrTokenNotFound if token doesn't exist.
	DeleteRefreshToken(ctx context.Context, token string) error

	// DeleteAccountTokens deletes all refresh tokens of an account,
	// returns the number of deleted tokens
	DeleteAccountTokens(ctx context.Context, accountID string) (int, error)

	// DeleteExpiredTokens removes all expired tokens
	DeleteExpiredTokens(ctx context.Context) (int, error)
}
