package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey()

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "api key", plaintext: "bybit-api-key-ABCDEF123456"},
		{name: "api secret", plaintext: "s3cr3t-value-with-symbols-!@#$"},
		{name: "single byte", plaintext: "x"},
		{name: "unicode", plaintext: "ключ-биржи"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := Encrypt([]byte(tt.plaintext), key)
			require.NoError(t, err)
			assert.NotEqual(t, []byte(tt.plaintext), encrypted)

			decrypted, err := Decrypt(encrypted, key)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, string(decrypted))
		})
	}
}

func TestEncrypt_UniqueNonce(t *testing.T) {
	key := testKey()

	// Одинаковый plaintext дает разный ciphertext из-за случайного nonce
	first, err := Encrypt([]byte("same-value"), key)
	require.NoError(t, err)
	second, err := Encrypt([]byte("same-value"), key)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEncrypt_Errors(t *testing.T) {
	_, err := Encrypt(nil, testKey())
	assert.Error(t, err)

	_, err = Encrypt([]byte("data"), []byte("short-key"))
	assert.Error(t, err)
}

func TestDecrypt_WrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), testKey())
	require.NoError(t, err)

	otherKey := testKey()
	otherKey[0] ^= 0xff

	_, err = Decrypt(encrypted, otherKey)
	assert.Error(t, err)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	key := testKey()

	encrypted, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	encrypted[len(encrypted)-1] ^= 0x01

	_, err = Decrypt(encrypted, key)
	assert.Error(t, err)
}

func TestDecrypt_TooShort(t *testing.T) {
	_, err := Decrypt([]byte{0x01, 0x02}, testKey())
	assert.Error(t, err)
}

func TestBase64RoundTrip(t *testing.T) {
	key := testKey()

	encoded, err := EncryptToBase64([]byte("api-secret"), key)
	require.NoError(t, err)

	decrypted, err := DecryptFromBase64(encoded, key)
	require.NoError(t, err)
	assert.Equal(t, "api-secret", string(decrypted))

	_, err = DecryptFromBase64("not base64 @@@", key)
	assert.Error(t, err)
}
