package service

import (
	"testing"
	"time"

	"slide-capture/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RoundTrip(t *testing.T) {
	auth, err := NewAuthService(config.AuthConfig{JWTSecret: "s3cret", Issuer: "slide-capture"})
	require.NoError(t, err)

	token, err := auth.IssueToken("student-7", time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "student-7", claims.StudentID())
}

func TestAuthService_Rejects(t *testing.T) {
	auth, err := NewAuthService(config.AuthConfig{JWTSecret: "s3cret", Issuer: "slide-capture"})
	require.NoError(t, err)
	other, err := NewAuthService(config.AuthConfig{JWTSecret: "different", Issuer: "slide-capture"})
	require.NoError(t, err)

	expired, err := auth.IssueToken("student-7", -time.Minute)
	require.NoError(t, err)
	foreign, err := other.IssueToken("student-7", time.Hour)
	require.NoError(t, err)
	noSubject, err := auth.IssueToken("", time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer: "someone-else", Subject: "student-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"no subject":   noSubject,
		"wrong issuer": wrongIssuer,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateJWT(token)
			assert.ErrorIs(t, err, ErrInvalidJWTToken)
		})
	}
}

func TestNewAuthService_RequiresSecret(t *testing.T) {
	_, err := NewAuthService(config.AuthConfig{})
	assert.Error(t, err)
}
