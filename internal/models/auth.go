package models

import "github.com/golang-jwt/jwt/v5"

// Token type claim values. A refresh token is never accepted where an
// access token is required, and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessClaims is the JWT payload for access tokens.
type AccessClaims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the JWT payload for refresh tokens: only the user
// identifier and expiry.
type RefreshClaims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// LoginRequest holds credentials for authenticating a user. Login is
// matched against the email column when it looks like an email address,
// otherwise against the username column.
type LoginRequest struct {
	Login     string `json:"login" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         UserInfo `json:"user"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse returns the reissued access token. The refresh token
// is not rotated.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ChangePasswordRequest payload for updating the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ForgotPasswordRequest initiates the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// RegisterRequest creates a new account with an initial role.
type RegisterRequest struct {
	InstitutionID *int64 `json:"institution_id"`
	Email         string `json:"email" validate:"required,email"`
	Username      string `json:"username" validate:"required,min=3,max=64"`
	Password      string `json:"password" validate:"required,min=8"`
	FullName      string `json:"full_name" validate:"required,max=128"`
	Role          string `json:"role" validate:"required,oneof=admin teacher student parent"`
}

// UserInfo describes the authenticated user in responses. Role is the
// first assigned role, overridden by super_admin when that flag is set.
type UserInfo struct {
	ID            int64  `json:"id"`
	InstitutionID *int64 `json:"institution_id,omitempty"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
}
