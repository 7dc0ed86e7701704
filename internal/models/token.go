package models

import "time"

// PasswordResetToken is a single-use, time-boxed reset credential.
// Only the SHA-256 digest of the token is stored.
type PasswordResetToken struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	TokenDigest string     `db:"token_digest" json:"-"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt      *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
