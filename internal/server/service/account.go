// Package service связывает проверенный Telegram claim с долговременным
// аккаунтом: login как find-or-create и обновление ключей биржи.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkarpov/tradegram/internal/crypto"
	"github.com/mkarpov/tradegram/internal/models"
	"github.com/mkarpov/tradegram/internal/server/storage"
	"github.com/mkarpov/tradegram/internal/telegram"
)

// AccountService оркестрирует операции над аккаунтами.
// Собственного состояния между запросами не держит.
type AccountService struct {
	logger     *slog.Logger
	accounts   storage.AccountStorage
	storageKey []byte
}

// NewAccountService создает новый сервис аккаунтов.
// storageKey - 32-байтовый ключ шифрования ключей биржи at rest.
func NewAccountService(logger *slog.Logger, accounts storage.AccountStorage, storageKey []byte) *AccountService {
	return &AccountService{
		logger:     logger,
		accounts:   accounts,
		storageKey: storageKey,
	}
}

// Login находит аккаунт по проверенному claim или создает его.
// Гонка двух первых логинов одного пользователя разрешается на уровне
// БД: уникальный индекс по telegram_id плюс повторное чтение при
// конфликте вставки. Обе стороны гонки видят один и тот же аккаунт.
func (s *AccountService) Login(ctx context.Context, claim *telegram.Claim) (*models.Account, error) {
	account, err := s.accounts.GetAccountByTelegramID(ctx, claim.ExternalID)

	if errors.Is(err, storage.ErrAccountNotFound) {
		return s.createAccount(ctx, claim)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	s.refreshProfile(ctx, account, claim)

	return account, nil
}

// UpdateCredentials шифрует и сохраняет ключи биржи аккаунта.
// accountID обязан приходить только из проверенного контекста запроса,
// handlers никогда не принимают его от клиента.
func (s *AccountService) UpdateCredentials(ctx context.Context, accountID, apiKey, apiSecret string) (*models.Account, error) {
	keyEnc, err := crypto.EncryptToBase64([]byte(apiKey), s.storageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}

	secretEnc, err := crypto.EncryptToBase64([]byte(apiSecret), s.storageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api secret: %w", err)
	}

	if err := s.accounts.UpdateAccountCredentials(ctx, accountID, keyEnc, secretEnc); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to update credentials: %w", err)
	}

	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload account: %w", err)
	}

	return account, nil
}

// GetAccount возвращает аккаунт по внутреннему id
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

func (s *AccountService) createAccount(ctx context.Context, claim *telegram.Claim) (*models.Account, error) {
	now := time.Now()
	account := &models.Account{
		ID:         uuid.New().String(),
		TelegramID: claim.ExternalID,
		Username:   claim.Username,
		FirstName:  claim.FirstName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.accounts.CreateAccount(ctx, account)
	if errors.Is(err, storage.ErrAccountAlreadyExists) {
		// Параллельный первый логин успел раньше - читаем его строку
		existing, getErr := s.accounts.GetAccountByTelegramID(ctx, claim.ExternalID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to read account after create race: %w", getErr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.InfoContext(ctx, "account created",
		slog.String("account_id", account.ID),
		slog.String("telegram_id", account.TelegramID))

	return account, nil
}

// refreshProfile обновляет username/first_name из свежего claim
// (last-write-wins). Неуспех не прерывает логин.
func (s *AccountService) refreshProfile(ctx context.Context, account *models.Account, claim *telegram.Claim) {
	if account.Username == claim.Username && account.FirstName == claim.FirstName {
		return
	}

	if err := s.accounts.UpdateAccountProfile(ctx, account.ID, claim.Username, claim.FirstName); err != nil {
		s.logger.WarnContext(ctx, "failed to refresh profile", slog.Any("error", err))
		return
	}

	account.Username = claim.Username
	account.FirstName = claim.FirstName
	account.UpdatedAt = time.Now()
}
