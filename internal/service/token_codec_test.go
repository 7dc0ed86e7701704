package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/pkg/config"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

func testCodec(accessTTL time.Duration) *TokenCodec {
	return NewTokenCodec(config.JWTConfig{
		Secret:            "test-secret",
		AccessExpiration:  accessTTL,
		RefreshExpiration: 24 * time.Hour,
		Issuer:            "lms-admin-api",
	})
}

func testSnapshot() *models.UserSnapshot {
	inst := int64(1)
	return &models.UserSnapshot{
		UserID:        42,
		InstitutionID: &inst,
		Email:         "user@example.com",
		Username:      "user",
		FullName:      "Test User",
		IsActive:      true,
		Roles:         []string{"admin"},
		Permissions:   []string{"users:read"},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := testCodec(time.Hour)

	token, err := codec.IssueAccessToken(testSnapshot())
	require.NoError(t, err)

	claims, err := codec.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, models.TokenTypeAccess, claims.TokenType)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec := testCodec(time.Hour)

	token, err := codec.IssueRefreshToken(42)
	require.NoError(t, err)

	claims, err := codec.VerifyRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, models.TokenTypeRefresh, claims.TokenType)
}

func TestVerifyAccessExpired(t *testing.T) {
	codec := testCodec(-time.Minute)

	token, err := codec.IssueAccessToken(testSnapshot())
	require.NoError(t, err)

	_, err = codec.VerifyAccess(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestVerifyAccessTampered(t *testing.T) {
	codec := testCodec(time.Hour)

	token, err := codec.IssueAccessToken(testSnapshot())
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = codec.VerifyAccess(tampered)
	require.Error(t, err)

	// Tampered and expired tokens surface the same code and message.
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrInvalidToken.Message, appErr.Message)
}

func TestVerifyAccessWrongSecret(t *testing.T) {
	token, err := testCodec(time.Hour).IssueAccessToken(testSnapshot())
	require.NoError(t, err)

	other := NewTokenCodec(config.JWTConfig{Secret: "other", AccessExpiration: time.Hour, RefreshExpiration: time.Hour})
	_, err = other.VerifyAccess(token)
	require.Error(t, err)
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	codec := testCodec(time.Hour)

	refresh, err := codec.IssueRefreshToken(42)
	require.NoError(t, err)

	_, err = codec.VerifyAccess(refresh)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

func TestVerifyRefreshRejectsAccessToken(t *testing.T) {
	codec := testCodec(time.Hour)

	access, err := codec.IssueAccessToken(testSnapshot())
	require.NoError(t, err)

	_, err = codec.VerifyRefresh(access)
	require.Error(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", ExtractBearerToken("bearer abc"))
	assert.Equal(t, "", ExtractBearerToken(""))
	assert.Equal(t, "", ExtractBearerToken("Basic abc"))
	assert.Equal(t, "", ExtractBearerToken("Bearer"))
}
