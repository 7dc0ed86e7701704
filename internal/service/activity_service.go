package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/authz"
	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/export"
)

type activityReader interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.LoginActivity, int, error)
}

// ActivityService exposes the login-activity audit trail to admins,
// institution-scoped for everyone below super_admin.
type ActivityService struct {
	activity activityReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(activity activityReader, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		activity: activity,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// List returns audit records visible to the actor.
func (s *ActivityService) List(ctx context.Context, actor *models.UserSnapshot, filter models.ActivityFilter) ([]models.LoginActivity, int, error) {
	if !authz.IsSuperAdmin(actor) {
		if actor.InstitutionID == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "")
		}
		filter.InstitutionID = actor.InstitutionID
	}

	records, total, err := s.activity.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list login activity")
	}
	return records, total, nil
}

// Export renders the visible audit trail as CSV or PDF.
func (s *ActivityService) Export(ctx context.Context, actor *models.UserSnapshot, filter models.ActivityFilter, format string) ([]byte, string, string, error) {
	// Export pulls the whole filtered window, not a page.
	filter.Page = 1
	filter.PageSize = 500

	records, _, err := s.List(ctx, actor, filter)
	if err != nil {
		return nil, "", "", err
	}

	dataset := activityDataset(records)
	stamp := time.Now().UTC().Format("20060102-150405")

	switch format {
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Login Activity")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", fmt.Sprintf("login-activity-%s.pdf", stamp), nil
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", fmt.Sprintf("login-activity-%s.csv", stamp), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func activityDataset(records []models.LoginActivity) export.Dataset {
	headers := []string{"id", "user_id", "ip_address", "user_agent", "successful", "failure_reason", "logged_in_at", "logged_out_at"}
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		row := map[string]string{
			"id":           strconv.FormatInt(rec.ID, 10),
			"ip_address":   rec.IPAddress,
			"user_agent":   rec.UserAgent,
			"successful":   strconv.FormatBool(rec.IsSuccessful),
			"logged_in_at": rec.LoggedInAt.UTC().Format(time.RFC3339),
		}
		if rec.UserID != nil {
			row["user_id"] = strconv.FormatInt(*rec.UserID, 10)
		}
		if rec.FailureReason != nil {
			row["failure_reason"] = *rec.FailureReason
		}
		if rec.LoggedOutAt != nil {
			row["logged_out_at"] = rec.LoggedOutAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
