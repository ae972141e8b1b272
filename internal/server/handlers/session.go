package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mkarpov/tradegram/internal/models"
	"github.com/mkarpov/tradegram/internal/server/storage"
	"github.com/mkarpov/tradegram/pkg/api"
)

// SessionHandler обрабатывает жизненный цикл session токенов
type SessionHandler struct {
	logger       *slog.Logger
	accounts     AccountService
	tokenStorage storage.TokenStorage
	jwtConfig    JWTConfig
}

// NewSessionHandler создает новый handler session токенов
func NewSessionHandler(logger *slog.Logger, accounts AccountService, tokenStorage storage.TokenStorage, jwtConfig JWTConfig) *SessionHandler {
	return &SessionHandler{
		logger:       logger,
		accounts:     accounts,
		tokenStorage: tokenStorage,
		jwtConfig:    jwtConfig,
	}
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Ротация refresh токена и выпуск нового access токена
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refreshToken, ok := bearerToken(r)
	if !ok {
		sendError(h.logger, w, "authentication failed", http.StatusUnauthorized)
		return
	}

	storedToken, err := h.tokenStorage.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.WarnContext(ctx, "refresh token not found")
			sendError(h.logger, w, "authentication failed", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get refresh token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if time.Now().After(storedToken.ExpiresAt) {
		h.logger.WarnContext(ctx, "refresh token expired", slog.String("account_id", storedToken.AccountID))
		sendError(h.logger, w, "authentication failed", http.StatusUnauthorized)
		return
	}

	account, err := h.accounts.GetAccount(ctx, storedToken.AccountID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get account for refresh", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	newAccessToken, expiresIn, err := GenerateAccessToken(h.jwtConfig, account.ID, account.TelegramID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	newRefreshToken, newExpiresAt, err := GenerateRefreshToken(h.jwtConfig)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate refresh token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Старый токен гасим, неуспех не прерывает ротацию
	if err := h.tokenStorage.DeleteRefreshToken(ctx, refreshToken); err != nil {
		h.logger.WarnContext(ctx, "failed to delete old refresh token", slog.Any("error", err))
	}

	newToken := &models.RefreshToken{
		Token:     newRefreshToken,
		AccountID: account.ID,
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now(),
	}
	if err := h.tokenStorage.SaveRefreshToken(ctx, newToken); err != nil {
		h.logger.ErrorContext(ctx, "failed to save refresh token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "tokens refreshed", slog.String("account_id", account.ID))

	resp := api.TokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    expiresIn,
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Отзывает все refresh токены аккаунта
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accessToken, ok := bearerToken(r)
	if !ok {
		sendError(h.logger, w, "authentication failed", http.StatusUnauthorized)
		return
	}

	claims, err := ValidateAccessToken(h.jwtConfig, accessToken)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid access token on logout", slog.Any("error", err))
		sendError(h.logger, w, "authentication failed", http.StatusUnauthorized)
		return
	}

	deletedCount, err := h.tokenStorage.DeleteAccountTokens(ctx, claims.AccountID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to delete account tokens", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged out",
		slog.String("account_id", claims.AccountID),
		slog.Int("tokens_deleted", deletedCount))

	w.WriteHeader(http.StatusNoContent)
}

// bearerToken извлекает токен из заголовка Authorization
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
