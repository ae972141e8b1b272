package handlers

import (
	"context"

	"github.com/mkarpov/tradegram/internal/telegram"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// ClaimKey ключ для проверенного Telegram claim в контексте
	ClaimKey contextKey = "telegram_claim"
	// AccountIDKey ключ для account id из session токена
	AccountIDKey contextKey = "account_id"
)

// WithClaim кладет проверенный claim в контекст запроса
func WithClaim(ctx context.Context, claim *telegram.Claim) context.Context {
	return context.WithValue(ctx, ClaimKey, claim)
}

// GetClaim извлекает проверенный claim из контекста запроса
func GetClaim(ctx context.Context) (*telegram.Claim, bool) {
	claim, ok := ctx.Value(ClaimKey).(*telegram.Claim)
	return claim, ok
}

// WithAccountID кладет account id из session токена в контекст
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, AccountIDKey, accountID)
}

// GetAccountID извлекает account id из контекста запроса
func GetAccountID(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(AccountIDKey).(string)
	return accountID, ok
}
