// Package validation содержит проверки формата входных данных API.
package validation

import (
	"fmt"
	"regexp"
)

// apiCredentialPattern определяет допустимый формат ключей биржи:
// печатные ASCII символы без пробелов
var apiCredentialPattern = regexp.MustCompile(`^[\x21-\x7e]+$`)

const (
	// MinAPICredentialLen минимальная длина ключа/секрета
	MinAPICredentialLen = 5
	// MaxAPICredentialLen максимальная длина ключа/секрета
	MaxAPICredentialLen = 256
)

// ValidateAPIKey проверяет формат API key биржи
func ValidateAPIKey(key string) error {
	return validateCredential("api key", key)
}

// ValidateAPISecret проверяет формат API secret биржи
func ValidateAPISecret(secret string) error {
	return validateCredential("api secret", secret)
}

func validateCredential(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}

	if len(value) < MinAPICredentialLen {
		return fmt.Errorf("%s must be at least %d characters long", field, MinAPICredentialLen)
	}

	if len(value) > MaxAPICredentialLen {
		return fmt.Errorf("%s must not exceed %d characters", field, MaxAPICredentialLen)
	}

	if !apiCredentialPattern.MatchString(value) {
		return fmt.Errorf("%s can only contain printable characters without spaces", field)
	}

	return nil
}
