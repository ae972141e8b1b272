package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpov/tradegram/internal/models"
	"github.com/mkarpov/tradegram/internal/server/storage"
)

func TestAccountStorage_CreateAccount(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	account := &models.Account{
		ID:         uuid.New().String(),
		TelegramID: "42",
		Username:   "rogue",
		FirstName:  "Vladislav",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, s.CreateAccount(ctx, account))

	retrieved, err := s.GetAccountByTelegramID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, account.ID, retrieved.ID)
	assert.Equal(t, "42", retrieved.TelegramID)
	assert.Equal(t, "rogue", retrieved.Username)
	assert.Equal(t, "Vladislav", retrieved.FirstName)
	assert.False(t, retrieved.HasAPIKeys())
}

func TestAccountStorage_CreateAccount_WithoutOptionalFields(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	// username и first_name опциональны
	account := &models.Account{
		ID:         uuid.New().String(),
		TelegramID: "100",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, s.CreateAccount(ctx, account))

	retrieved, err := s.GetAccountByTelegramID(ctx, "100")
	require.NoError(t, err)
	assert.Empty(t, retrieved.Username)
	assert.Empty(t, retrieved.FirstName)
}

func TestAccountStorage_CreateAccount_DuplicateTelegramID(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestAccount(t, ctx, s, "42")

	duplicate := &models.Account{
		ID:         uuid.New().String(),
		TelegramID: "42", // тот же telegram id
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	err := s.CreateAccount(ctx, duplicate)
	assert.ErrorIs(t, err, storage.ErrAccountAlreadyExists)
}

func TestAccountStorage_CreateAccount_ConcurrentSameTelegramID(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	const goroutines = 10

	// N конкурентных первых логинов одного пользователя: ровно одна
	// строка, все наблюдают один и тот же аккаунт
	ids := make([]string, goroutines)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			account := &models.Account{
				ID:         uuid.New().String(),
				TelegramID: "777",
				CreatedAt:  time.Now(),
				UpdatedAt:  time.Now(),
			}

			err := s.CreateAccount(ctx, account)
			if errors.Is(err, storage.ErrAccountAlreadyExists) {
				existing, getErr := s.GetAccountByTelegramID(ctx, "777")
				if getErr != nil {
					return
				}
				ids[n] = existing.ID
				return
			}
			if err != nil {
				return
			}
			ids[n] = account.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		require.NotEmpty(t, ids[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int
	err := s.DB().QueryRow(`SELECT COUNT(*) FROM accounts WHERE telegram_id = '777'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAccountStorage_GetAccountByTelegramID_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	account, err := s.GetAccountByTelegramID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	assert.Nil(t, account)
}

func TestAccountStorage_GetAccountByID(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	accountID := createTestAccount(t, ctx, s, "42")

	retrieved, err := s.GetAccountByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, accountID, retrieved.ID)

	_, err = s.GetAccountByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestAccountStorage_UpdateAccountProfile(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	accountID := createTestAccount(t, ctx, s, "42")

	require.NoError(t, s.UpdateAccountProfile(ctx, accountID, "newname", "NewFirst"))

	retrieved, err := s.GetAccountByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "newname", retrieved.Username)
	assert.Equal(t, "NewFirst", retrieved.FirstName)

	err = s.UpdateAccountProfile(ctx, uuid.New().String(), "x", "y")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestAccountStorage_UpdateAccountCredentials(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	accountID := createTestAccount(t, ctx, s, "42")

	before, err := s.GetAccountByID(ctx, accountID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.UpdateAccountCredentials(ctx, accountID, "enc-key", "enc-secret"))

	retrieved, err := s.GetAccountByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "enc-key", retrieved.APIKeyEnc)
	assert.Equal(t, "enc-secret", retrieved.APISecretEnc)
	assert.True(t, retrieved.HasAPIKeys())
	assert.True(t, retrieved.UpdatedAt.After(before.UpdatedAt))
}

func TestAccountStorage_UpdateAccountCredentials_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	err := s.UpdateAccountCredentials(ctx, uuid.New().String(), "k", "v")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	// Запись не появилась
	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&count))
	assert.Equal(t, 0, count)
}
