package storage

import (
	"context"

	"github.com/mkarpov/tradegram/internal/models"
)

// AccountStorage defines interface for account persistence.
// Exactly one account exists per telegram id; the uniqueness is
// enforced by the database schema, not by application locking.
type AccountStorage interface {
	// CreateAccount inserts a new account.
	// Returns ErrAccountAlreadyExists when the telegram id is taken;
	// callers resolve the create race by re-reading the existing row.
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccountByTelegramID retrieves account by telegram id.
	// Returns ErrAccountNotFound if account doesn't exist.
	GetAccountByTelegramID(ctx context.Context, telegramID string) (*models.Account, error)

	// GetAccountByID retrieves account by internal id.
	// Returns ErrAccountNotFound if account doesn't exist.
	GetAccountByID(ctx context.Context, accountID string) (*models.Account, error)

	// UpdateAccountProfile refreshes username and first name.
	// Returns ErrAccountNotFound if account doesn't exist.
	UpdateAccountProfile(ctx context.Context, accountID, username, firstName string) error

	// UpdateAccountCredentials overwrites the encrypted exchange credentials
	// and bumps updated_at. Returns ErrAccountNotFound if account doesn't exist.
	UpdateAccountCredentials(ctx context.Context, accountID, apiKeyEnc, apiSecretEnc string) error
}
