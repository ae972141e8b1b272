package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mkarpov/tradegram/internal/server/handlers"
	"github.com/mkarpov/tradegram/internal/server/replay"
	"github.com/mkarpov/tradegram/internal/telegram"
)

// InitDataHeader - заголовок, в котором mini app передает init data
const InitDataHeader = "X-Telegram-Init-Data"

// TelegramAuthConfig содержит конфигурацию проверки init data
type TelegramAuthConfig struct {
	BotToken string
	MaxAge   time.Duration
}

// TelegramAuth создает middleware, пропускающее запрос только с
// валидным init data. Проверенный claim кладется в контекст запроса.
// Клиент во всех случаях отказа видит одинаковый generic 401 -
// конкретная причина остается в логах, чтобы не давать оракул на
// алгоритм верификации. guard опционален (nil - без replay защиты).
func TelegramAuth(logger *slog.Logger, cfg TelegramAuthConfig, guard *replay.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawInitData := r.Header.Get(InitDataHeader)
			if rawInitData == "" {
				logger.Warn("missing init data header", "path", r.URL.Path)
				unauthenticated(w)
				return
			}

			claim, err := telegram.Verify(rawInitData, cfg.BotToken, cfg.MaxAge)
			if err != nil {
				logger.Warn("init data verification failed",
					"error", err,
					"remote_addr", r.RemoteAddr,
				)
				unauthenticated(w)
				return
			}

			if guard != nil {
				fingerprint := sha256.Sum256([]byte(rawInitData))
				seen, markErr := guard.MarkSeen(hex.EncodeToString(fingerprint[:]), time.Now())
				if markErr != nil {
					logger.Error("replay guard failure", "error", markErr)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				if seen {
					logger.Warn("replayed init data rejected",
						"external_id", claim.ExternalID,
						"remote_addr", r.RemoteAddr,
					)
					unauthenticated(w)
					return
				}
			}

			logger.Debug("telegram user authenticated", "external_id", claim.ExternalID)

			next.ServeHTTP(w, r.WithContext(handlers.WithClaim(r.Context(), claim)))
		})
	}
}

// SessionAuth создает middleware для проверки session JWT токена
func SessionAuth(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("missing Authorization header")
				unauthenticated(w)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("invalid Authorization header format")
				unauthenticated(w)
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, parts[1])
			if err != nil {
				logger.Warn("invalid access token", "error", err)
				unauthenticated(w)
				return
			}

			logger.Debug("session authenticated", "account_id", claims.AccountID)

			next.ServeHTTP(w, r.WithContext(handlers.WithAccountID(r.Context(), claims.AccountID)))
		})
	}
}

// unauthenticated отвечает единым generic отказом
func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"authentication failed"}`))
}
