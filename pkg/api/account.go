package api

import "time"

// User представляет аккаунт в ответах API.
// Зашифрованные ключи биржи в ответы не попадают никогда -
// наружу уходит только флаг их наличия.
type User struct {
	ID         string    `json:"id"`                   // UUID аккаунта
	TelegramID string    `json:"telegram_id"`          // Telegram user id строкой
	Username   string    `json:"username,omitempty"`   // Telegram username
	FirstName  string    `json:"first_name,omitempty"` // имя из Telegram профиля
	HasAPIKeys bool      `json:"has_api_keys"`         // привязаны ли ключи биржи
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LoginResponse представляет ответ на успешный логин
type LoginResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`  // JWT access token
	RefreshToken string `json:"refresh_token"` // refresh token
	ExpiresIn    int64  `json:"expires_in"`    // время жизни access token в секундах
}

// UserResponse представляет ответ с одним аккаунтом
type UserResponse struct {
	User User `json:"user"`
}

// UpdateAPIKeysRequest представляет запрос на привязку ключей биржи
type UpdateAPIKeysRequest struct {
	APIKey    string `json:"apiKey"`    // API key биржи
	APISecret string `json:"apiSecret"` // API secret биржи
}

// TokenResponse представляет ответ с обновленными токенами
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
