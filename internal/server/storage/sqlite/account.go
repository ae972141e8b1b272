package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkarpov/tradegram/internal/models"
	"github.com/mkarpov/tradegram/internal/server/storage"
)

// CreateAccount inserts a new account row
func (s *Storage) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, telegram_id, username, first_name, api_key_enc, api_secret_enc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		account.ID,
		account.TelegramID,
		nullableString(account.Username),
		nullableString(account.FirstName),
		nullableString(account.APIKeyEnc),
		nullableString(account.APISecretEnc),
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		// Нарушение уникальности telegram_id - это ожидаемый исход
		// гонки create-or-find, а не ошибка хранилища
		if strings.Contains(err.Error(), "UNIQUE constraint failed: accounts.telegram_id") {
			return storage.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// GetAccountByTelegramID retrieves account by telegram id
func (s *Storage) GetAccountByTelegramID(ctx context.Context, telegramID string) (*models.Account, error) {
	query := `
		SELECT id, telegram_id, username, first_name, api_key_enc, api_secret_enc, created_at, updated_at
		FROM accounts
		WHERE telegram_id = ?
	`

	return s.scanAccount(s.db.QueryRowContext(ctx, query, telegramID))
}

// GetAccountByID retrieves account by internal id
func (s *Storage) GetAccountByID(ctx context.Context, accountID string) (*models.Account, error) {
	query := `
		SELECT id, telegram_id, username, first_name, api_key_enc, api_secret_enc, created_at, updated_at
		FROM accounts
		WHERE id = ?
	`

	return s.scanAccount(s.db.QueryRowContext(ctx, query, accountID))
}

// UpdateAccountProfile refreshes username and first name (last-write-wins)
func (s *Storage) UpdateAccountProfile(ctx context.Context, accountID, username, firstName string) error {
	query := `
		UPDATE accounts
		SET username = ?, first_name = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		nullableString(username),
		nullableString(firstName),
		time.Now(),
		accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account profile: %w", err)
	}

	return checkAffected(result)
}

// UpdateAccountCredentials overwrites the encrypted exchange credentials
func (s *Storage) UpdateAccountCredentials(ctx context.Context, accountID, apiKeyEnc, apiSecretEnc string) error {
	query := `
		UPDATE accounts
		SET api_key_enc = ?, api_secret_enc = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, apiKeyEnc, apiSecretEnc, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update account credentials: %w", err)
	}

	return checkAffected(result)
}

// scanAccount читает строку аккаунта с учетом NULL колонок
func (s *Storage) scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var username, firstName, apiKeyEnc, apiSecretEnc sql.NullString

	err := row.Scan(
		&account.ID,
		&account.TelegramID,
		&username,
		&firstName,
		&apiKeyEnc,
		&apiSecretEnc,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Username = username.String
	account.FirstName = firstName.String
	account.APIKeyEnc = apiKeyEnc.String
	account.APISecretEnc = apiSecretEnc.String

	return account, nil
}

func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrAccountNotFound
	}

	return nil
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
