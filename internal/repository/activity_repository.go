package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-admin-api/internal/models"
)

const activityColumns = `id, user_id, ip_address, user_agent, is_successful, failure_reason, logged_in_at, logged_out_at`

// ActivityRepository provides database access for the append-only
// login activity audit trail.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends a login activity record.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.LoginActivity) error {
	if activity.LoggedInAt.IsZero() {
		activity.LoggedInAt = time.Now().UTC()
	}
	const query = `INSERT INTO login_activity (user_id, ip_address, user_agent, is_successful, failure_reason, logged_in_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query,
		activity.UserID, activity.IPAddress, activity.UserAgent,
		activity.IsSuccessful, activity.FailureReason, activity.LoggedInAt,
	).Scan(&activity.ID); err != nil {
		return fmt.Errorf("create login activity: %w", err)
	}
	return nil
}

// StampLogout sets the logout timestamp on the user's most recent
// successful login record. The audit trail is otherwise never updated.
func (r *ActivityRepository) StampLogout(ctx context.Context, userID int64, ts time.Time) error {
	const query = `UPDATE login_activity SET logged_out_at = $2
		WHERE id = (SELECT id FROM login_activity WHERE user_id = $1 AND is_successful = TRUE ORDER BY logged_in_at DESC LIMIT 1)`
	if _, err := r.db.ExecContext(ctx, query, userID, ts); err != nil {
		return fmt.Errorf("stamp logout: %w", err)
	}
	return nil
}

// List returns login activity records matching the filter with total count.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.LoginActivity, int, error) {
	baseQuery := `FROM login_activity WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, *filter.UserID)
	}
	if filter.InstitutionID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id IN (SELECT id FROM users WHERE institution_id = $%d)", len(args)+1))
		args = append(args, *filter.InstitutionID)
	}
	if filter.Successful != nil {
		conditions = append(conditions, fmt.Sprintf("is_successful = $%d", len(args)+1))
		args = append(args, *filter.Successful)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("logged_in_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("logged_in_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY logged_in_at DESC LIMIT %d OFFSET %d", activityColumns, baseQuery, pageSize, offset)

	var records []models.LoginActivity
	if err := r.db.SelectContext(ctx, &records, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list login activity: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count login activity: %w", err)
	}

	return records, total, nil
}
