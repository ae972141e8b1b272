package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpov/tradegram/internal/models"
	"github.com/mkarpov/tradegram/pkg/api"
)

func seedRefreshToken(tokens *mockTokenStorage, accountID string, expiresAt time.Time) string {
	token := "refresh-token-abc"
	tokens.tokens[token] = &models.RefreshToken{
		Token:     token,
		AccountID: accountID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return token
}

func TestSessionHandler_Refresh_Success(t *testing.T) {
	svc := &mockAccountService{account: testAccount()}
	tokens := newMockTokenStorage()
	oldToken := seedRefreshToken(tokens, "acc-1", time.Now().Add(time.Hour))
	h := NewSessionHandler(testLogger(), svc, tokens, testJWTConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+oldToken)
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, oldToken, resp.RefreshToken)

	// Старый токен отозван, новый сохранен
	_, oldExists := tokens.tokens[oldToken]
	assert.False(t, oldExists)
	_, newExists := tokens.tokens[resp.RefreshToken]
	assert.True(t, newExists)
}

func TestSessionHandler_Refresh_MissingHeader(t *testing.T) {
	h := NewSessionHandler(testLogger(), &mockAccountService{}, newMockTokenStorage(), testJWTConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionHandler_Refresh_UnknownToken(t *testing.T) {
	h := NewSessionHandler(testLogger(), &mockAccountService{}, newMockTokenStorage(), testJWTConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer no-such-token")
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionHandler_Refresh_ExpiredToken(t *testing.T) {
	svc := &mockAccountService{account: testAccount()}
	tokens := newMockTokenStorage()
	oldToken := seedRefreshToken(tokens, "acc-1", time.Now().Add(-time.Minute))
	h := NewSessionHandler(testLogger(), svc, tokens, testJWTConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+oldToken)
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionHandler_Refresh_StorageError(t *testing.T) {
	tokens := newMockTokenStorage()
	tokens.getError = errors.New("db locked")
	h := NewSessionHandler(testLogger(), &mockAccountService{}, tokens, testJWTConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSessionHandler_Logout_Success(t *testing.T) {
	svc := &mockAccountService{account: testAccount()}
	tokens := newMockTokenStorage()
	seedRefreshToken(tokens, "acc-1", time.Now().Add(time.Hour))
	h := NewSessionHandler(testLogger(), svc, tokens, testJWTConfig())

	accessToken, _, err := GenerateAccessToken(testJWTConfig(), "acc-1", "42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	h.Logout(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, tokens.tokens)
}

func TestSessionHandler_Logout_InvalidToken(t *testing.T) {
	h := NewSessionHandler(testLogger(), &mockAccountService{}, newMockTokenStorage(), testJWTConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	h.Logout(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionHandler_Logout_MissingHeader(t *testing.T) {
	h := NewSessionHandler(testLogger(), &mockAccountService{}, newMockTokenStorage(), testJWTConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{name: "valid", header: "Bearer abc123", want: "abc123", ok: true},
		{name: "lowercase scheme", header: "bearer abc123", want: "abc123", ok: true},
		{name: "missing", header: "", ok: false},
		{name: "no token", header: "Bearer ", ok: false},
		{name: "wrong scheme", header: "Basic abc123", ok: false},
		{name: "token only", header: "abc123", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			token, ok := bearerToken(req)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, token)
			}
		})
	}
}
