package auth

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkm/internal/domain"
	"pkm/internal/domain/models"
)

const testSecret = "test-secret-with-enough-bytes-for-hs256"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims models.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func claimsFor(sub, role string, exp time.Time) models.Claims {
	return models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: role,
	}
}

func TestSecretVerifier(t *testing.T) {
	v, err := NewSecretVerifier(testSecret, discardLogger())
	require.NoError(t, err)
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		token   string
		wantSub string
	}{
		{"valid", sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("user-1", "authenticated", later)), "user-1"},
		{"no role", sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("user-2", "", later)), "user-2"},
		{"anon role", sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("user-3", "anon", later)), ""},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("user-4", "", time.Now().Add(-time.Hour))), ""},
		{"missing subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("", "", later)), ""},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("another-secret"), claimsFor("user-5", "", later)), ""},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS384, []byte(testSecret), claimsFor("user-6", "", later)), ""},
		{"garbage", "not.a.token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.VerifyToken(tt.token)
			if tt.wantSub == "" {
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, claims.GetUserID())
		})
	}
}

func TestNewVerifiersRejectEmptyConfig(t *testing.T) {
	_, err := NewSecretVerifier("", discardLogger())
	assert.Error(t, err)

	_, err = NewJWKSVerifier("", discardLogger())
	assert.Error(t, err)
}
