package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mkarpov/tradegram/internal/models"
	"github.com/mkarpov/tradegram/internal/server/storage"
	"github.com/mkarpov/tradegram/internal/telegram"
	"github.com/mkarpov/tradegram/internal/validation"
	"github.com/mkarpov/tradegram/pkg/api"
)

// AccountService определяет операции над аккаунтами, нужные handlers
type AccountService interface {
	Login(ctx context.Context, claim *telegram.Claim) (*models.Account, error)
	UpdateCredentials(ctx context.Context, accountID, apiKey, apiSecret string) (*models.Account, error)
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
}

// AccountHandler обрабатывает запросы аккаунтов mini app
type AccountHandler struct {
	logger       *slog.Logger
	accounts     AccountService
	tokenStorage storage.TokenStorage
	jwtConfig    JWTConfig
}

// NewAccountHandler создает новый handler аккаунтов
func NewAccountHandler(logger *slog.Logger, accounts AccountService, tokenStorage storage.TokenStorage, jwtConfig JWTConfig) *AccountHandler {
	return &AccountHandler{
		logger:       logger,
		accounts:     accounts,
		tokenStorage: tokenStorage,
		jwtConfig:    jwtConfig,
	}
}

// Login обрабатывает POST /api/v1/users/login
// Find-or-create аккаунта по проверенному Telegram claim плюс выпуск
// session токенов. Claim кладет в контекст TelegramAuth middleware.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claim, ok := GetClaim(ctx)
	if !ok {
		// Сюда попадаем только если маршрут собран без TelegramAuth
		h.logger.ErrorContext(ctx, "login called without verified claim")
		sendError(h.logger, w, "authentication failed", http.StatusUnauthorized)
		return
	}

	account, err := h.accounts.Login(ctx, claim)
	if err != nil {
		h.logger.ErrorContext(ctx, "login failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	accessToken, expiresIn, err := GenerateAccessToken(h.jwtConfig, account.ID, account.TelegramID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	refreshToken, expiresAt, err := GenerateRefreshToken(h.jwtConfig)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate refresh token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	token := &models.RefreshToken{
		Token:     refreshToken,
		AccountID: account.ID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := h.tokenStorage.SaveRefreshToken(ctx, token); err != nil {
		h.logger.ErrorContext(ctx, "failed to save refresh token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		slog.String("account_id", account.ID),
		slog.String("telegram_id", account.TelegramID))

	resp := api.LoginResponse{
		User:         toAPIUser(account),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// UpdateAPIKeys обрабатывает POST /api/v1/users/api-keys
// Привязывает ключи биржи к аккаунту вызывающего. Целевой аккаунт
// берется только из проверенного claim текущего запроса - id аккаунта
// от клиента не принимается.
func (h *AccountHandler) UpdateAPIKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claim, ok := GetClaim(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "api keys update called without verified claim")
		sendError(h.logger, w, "authentication failed", http.StatusUnauthorized)
		return
	}

	var req api.UpdateAPIKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode api keys request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateAPIKey(req.APIKey); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateAPISecret(req.APISecret); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Login(ctx, claim)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve account", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	updated, err := h.accounts.UpdateCredentials(ctx, account.ID, req.APIKey, req.APISecret)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			h.logger.WarnContext(ctx, "account disappeared during api keys update",
				slog.String("account_id", account.ID))
			sendError(h.logger, w, "account not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update api keys", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "api keys updated", slog.String("account_id", updated.ID))

	sendJSON(h.logger, w, api.UserResponse{User: toAPIUser(updated)}, http.StatusOK)
}

// Me обрабатывает GET /api/v1/users/me
// Возвращает аккаунт владельца session токена.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := GetAccountID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "me called without session context")
		sendError(h.logger, w, "authentication failed", http.StatusUnauthorized)
		return
	}

	account, err := h.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			sendError(h.logger, w, "account not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get account", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.UserResponse{User: toAPIUser(account)}, http.StatusOK)
}
