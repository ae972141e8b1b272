package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mkarpov/tradegram/internal/models"
	"github.com/mkarpov/tradegram/pkg/api"
)

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(logger, w, resp, statusCode)
}

// toAPIUser переводит аккаунт в представление для API.
// Зашифрованные ключи биржи здесь отбрасываются.
func toAPIUser(account *models.Account) api.User {
	return api.User{
		ID:         account.ID,
		TelegramID: account.TelegramID,
		Username:   account.Username,
		FirstName:  account.FirstName,
		HasAPIKeys: account.HasAPIKeys(),
		CreatedAt:  account.CreatedAt,
		UpdatedAt:  account.UpdatedAt,
	}
}
