package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/pkg/config"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

// TokenCodec issues and verifies the signed, time-bounded HS256 tokens.
// It holds no persistent state; the signing key and lifetimes come from
// process-wide configuration. Malformed, tampered and expired tokens all
// surface as the same rejection; the underlying jwt error stays wrapped
// for telemetry.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

// NewTokenCodec builds a codec from JWT configuration.
func NewTokenCodec(cfg config.JWTConfig) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessExpiration,
		refreshTTL: cfg.RefreshExpiration,
		issuer:     cfg.Issuer,
	}
}

// AccessTTL exposes the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

// IssueAccessToken signs a short-lived access token for the snapshot.
func (c *TokenCodec) IssueAccessToken(s *models.UserSnapshot) (string, error) {
	now := time.Now().UTC()
	claims := &models.AccessClaims{
		UserID:    s.UserID,
		Email:     s.Email,
		Username:  s.Username,
		Role:      s.PrimaryRole(),
		TokenType: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(s.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// IssueRefreshToken signs a long-lived refresh token carrying only the
// user identifier. Refresh tokens are never persisted server-side;
// signature and expiry are their only defense.
func (c *TokenCodec) IssueRefreshToken(userID int64) (string, error) {
	now := time.Now().UTC()
	claims := &models.RefreshClaims{
		UserID:    userID,
		TokenType: models.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// VerifyAccess validates an access token and returns its claims.
func (c *TokenCodec) VerifyAccess(tokenString string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	if err := c.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeAccess {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims.
func (c *TokenCodec) VerifyRefresh(tokenString string) (*models.RefreshClaims, error) {
	claims := &models.RefreshClaims{}
	if err := c.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeRefresh {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
	}
	return claims, nil
}

func (c *TokenCodec) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}
	if !token.Valid {
		return appErrors.Clone(appErrors.ErrInvalidToken, "")
	}
	return nil
}

// ExtractBearerToken parses an "Authorization: Bearer <token>" header
// value. Pure parsing, no I/O; returns "" when the header is absent or
// not a bearer credential.
func ExtractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
