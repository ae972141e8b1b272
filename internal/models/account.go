package models

import "time"

// Account представляет аккаунт пользователя mini app
type Account struct {
	ID           string    `json:"id"`             // UUID аккаунта
	TelegramID   string    `json:"telegram_id"`    // уникальный Telegram user id (строкой, без потери точности)
	Username     string    `json:"username"`       // опциональный Telegram username
	FirstName    string    `json:"first_name"`     // опциональное имя
	APIKeyEnc    string    `json:"-"`              // зашифрованный API key биржи (base64)
	APISecretEnc string    `json:"-"`              // зашифрованный API secret биржи (base64)
	CreatedAt    time.Time `json:"created_at"`     // время создания
	UpdatedAt    time.Time `json:"updated_at"`     // время последнего обновления
}

// HasAPIKeys сообщает, привязаны ли к аккаунту ключи биржи.
// Само содержимое ключей наружу не отдается никогда.
func (a *Account) HasAPIKeys() bool {
	return a.APIKeyEnc != "" && a.APISecretEnc != ""
}

// RefreshToken представляет refresh token аккаунта
type RefreshToken struct {
	Token     string    `json:"token"`      // случайный токен (base64)
	AccountID string    `json:"account_id"` // ID аккаунта
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время создания
}
