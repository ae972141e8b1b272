// Package telegram проверяет подлинность init data — подписанного
// payload, который Telegram передает mini app при запуске.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Ошибки верификации. Наружу клиенту уходит только generic 401,
// конкретный вид ошибки используется исключительно для логов.
var (
	// ErrMalformedPayload - init data не парсится или не хватает обязательных полей
	ErrMalformedPayload = errors.New("malformed init data")

	// ErrBadSignature - HMAC подпись не совпадает
	ErrBadSignature = errors.New("bad init data signature")

	// ErrExpired - auth_date старше допустимого окна
	ErrExpired = errors.New("init data expired")
)

// Claim - проверенные данные пользователя из подписанного payload.
// Существует только после успешной верификации и живет один запрос.
type Claim struct {
	ExternalID string // числовой Telegram user id строкой
	Username   string
	FirstName  string
	LastName   string
	AuthDate   int64 // unix seconds, когда Telegram подписал payload
}

// initDataUser - поле user внутри init data (JSON объект в query значении)
type initDataUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Verify проверяет подпись и свежесть init data и возвращает Claim.
// botToken - токен бота, которому адресован payload.
// maxAge ограничивает окно повторного использования payload.
func Verify(rawInitData, botToken string, maxAge time.Duration) (*Claim, error) {
	return VerifyAt(rawInitData, botToken, maxAge, time.Now())
}

// VerifyAt - как Verify, но с явным текущим временем. Функция чистая,
// никакого I/O, поэтому проверяется на фиксированных векторах.
func VerifyAt(rawInitData, botToken string, maxAge time.Duration, now time.Time) (*Claim, error) {
	if rawInitData == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	values, err := url.ParseQuery(rawInitData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	providedHash := values.Get("hash")
	if providedHash == "" {
		return nil, fmt.Errorf("%w: missing hash field", ErrMalformedPayload)
	}
	values.Del("hash")

	// data-check-string: пары key=<decoded value>, отсортированные по ключу
	// и склеенные переводами строк. Порядок и декодирование обязаны
	// байт-в-байт совпадать с конструкцией Telegram.
	computedHash := signDataCheckString(dataCheckString(values), botToken)

	// Сравнение за константное время, чтобы не давать тайминг-оракул
	if !hmac.Equal([]byte(computedHash), []byte(strings.ToLower(providedHash))) {
		return nil, ErrBadSignature
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid auth_date", ErrMalformedPayload)
	}
	if now.Unix()-authDate > int64(maxAge.Seconds()) {
		return nil, ErrExpired
	}

	// user id берем только изнутри подписанного user объекта,
	// никакие соседние поля payload не считаются доверенными
	rawUser := values.Get("user")
	if rawUser == "" {
		return nil, fmt.Errorf("%w: missing user field", ErrMalformedPayload)
	}

	var user initDataUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, fmt.Errorf("%w: invalid user field: %v", ErrMalformedPayload, err)
	}
	if user.ID <= 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrMalformedPayload)
	}

	return &Claim{
		ExternalID: strconv.FormatInt(user.ID, 10),
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		AuthDate:   authDate,
	}, nil
}

// dataCheckString строит каноническую форму init data без поля hash
func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(values.Get(k))
	}
	return b.String()
}

// signDataCheckString вычисляет hex подпись data-check-string.
// Ключ подписи - HMAC-SHA256 от строки "WebAppData" на токене бота.
func signDataCheckString(dcs, botToken string) string {
	kd := hmac.New(sha256.New, []byte(botToken))
	kd.Write([]byte("WebAppData"))
	signingKey := kd.Sum(nil)

	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(dcs))
	return hex.EncodeToString(mac.Sum(nil))
}
