package models

import "time"

// Failure reasons recorded on unsuccessful login attempts.
const (
	LoginFailureInvalidCredentials = "invalid_credentials"
	LoginFailureInactive           = "inactive"
	LoginFailureThrottled          = "throttled"
)

// LoginActivity is an append-only audit record of a login attempt.
// UserID is null when the attempted identifier matched no account.
// The only permitted update is stamping LoggedOutAt on logout.
type LoginActivity struct {
	ID            int64      `db:"id" json:"id"`
	UserID        *int64     `db:"user_id" json:"user_id,omitempty"`
	IPAddress     string     `db:"ip_address" json:"ip_address"`
	UserAgent     string     `db:"user_agent" json:"user_agent"`
	IsSuccessful  bool       `db:"is_successful" json:"is_successful"`
	FailureReason *string    `db:"failure_reason" json:"failure_reason,omitempty"`
	LoggedInAt    time.Time  `db:"logged_in_at" json:"logged_in_at"`
	LoggedOutAt   *time.Time `db:"logged_out_at" json:"logged_out_at,omitempty"`
}

// ActivityFilter captures filtering criteria for listing login activity.
// InstitutionID narrows the trail to users of one institution; it is
// forced by the service for non-platform admins.
type ActivityFilter struct {
	UserID        *int64
	InstitutionID *int64
	Successful    *bool
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}
