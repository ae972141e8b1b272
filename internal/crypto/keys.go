package crypto

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для деривации storage key
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64MB
	argon2Threads = 4

	// SaltSize - размер соли в байтах
	SaltSize = 32
)

// DeriveStorageKey выводит 32-байтовый ключ шифрования ключей биржи
// из master key и соли, заданных в конфигурации. Деривация выполняется
// один раз на старте процесса; сам master key нигде не сохраняется.
func DeriveStorageKey(masterKey string, salt []byte) ([]byte, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("master key cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	return argon2.IDKey([]byte(masterKey), salt, argon2Time, argon2Memory, argon2Threads, KeySize), nil
}

// DeriveStorageKeyFromBase64Salt выводит storage key из Base64-кодированной соли
func DeriveStorageKeyFromBase64Salt(masterKey, saltBase64 string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(saltBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	return DeriveStorageKey(masterKey, salt)
}
