package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_IssueAndVerify(t *testing.T) {
	auth := NewAuthService("test-secret", time.Hour)

	token, expiresAt, err := auth.IssueToken(42, "douglas")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := auth.VerifyToken(token)

	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "douglas", claims.Username)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	auth := NewAuthService("test-secret", time.Hour)
	other := NewAuthService("other-secret", time.Hour)
	expired := NewAuthService("test-secret", -time.Minute)

	foreign, _, err := other.IssueToken(1, "x")
	require.NoError(t, err)
	stale, _, err := expired.IssueToken(1, "x")
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	uuidSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "3f1c2a9e-7d7b-4a8e-9c1e-2f6f0e9b1a11",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": foreign,
		"expired":      stale,
		"no subject":   noSubject,
		"uuid subject": uuidSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.VerifyToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestAuthService_NumericSubject(t *testing.T) {
	auth := NewAuthService("test-secret", time.Hour)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 7,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	claims, err := auth.VerifyToken(token)

	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestAuthService_IssueRejectsInvalidUser(t *testing.T) {
	_, _, err := NewAuthService("s", time.Hour).IssueToken(0, "")
	assert.Error(t, err)
}
