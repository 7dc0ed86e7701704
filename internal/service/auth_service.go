package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-api/internal/models"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
	CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error
	FindPasswordResetToken(ctx context.Context, digest string) (*models.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, id int64, usedAt time.Time) error
}

type authRBACRepository interface {
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
	AssignRoleToUser(ctx context.Context, userID, roleID int64) error
}

type activityRecorder interface {
	Create(ctx context.Context, activity *models.LoginActivity) error
	StampLogout(ctx context.Context, userID int64, ts time.Time) error
}

type snapshotLoader interface {
	Load(ctx context.Context, userID int64) (*models.UserSnapshot, error)
}

type loginThrottle interface {
	Allow(ctx context.Context, identifier, ip string) (bool, error)
	RecordFailure(ctx context.Context, identifier, ip string) error
	Reset(ctx context.Context, identifier, ip string) error
}

// AuthService orchestrates login, token refresh, logout and the
// password lifecycle. Every login attempt, successful or not, leaves a
// login-activity record; failures of those audit writes are logged and
// never abort the primary operation.
type AuthService struct {
	users         authUserRepository
	rbac          authRBACRepository
	activity      activityRecorder
	loader        snapshotLoader
	codec         *TokenCodec
	throttle      loginThrottle
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	resetTokenTTL time.Duration
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users authUserRepository,
	rbac authRBACRepository,
	activity activityRecorder,
	loader snapshotLoader,
	codec *TokenCodec,
	throttle loginThrottle,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	resetTokenTTL time.Duration,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if resetTokenTTL <= 0 {
		resetTokenTTL = time.Hour
	}
	return &AuthService{
		users:         users,
		rbac:          rbac,
		activity:      activity,
		loader:        loader,
		codec:         codec,
		throttle:      throttle,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		resetTokenTTL: resetTokenTTL,
	}
}

// Login authenticates a user and returns issued tokens plus the user's
// snapshot-derived info. The rejection for an unknown identifier is
// identical to the one for a wrong password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, req.Login, req.IP)
		if err != nil {
			s.logger.Warn("login throttle check failed", zap.Error(err))
		} else if !allowed {
			s.recordAttempt(ctx, nil, req, false, models.LoginFailureThrottled)
			s.countLogin("throttled")
			return nil, appErrors.Clone(appErrors.ErrTooManyAttempts, "")
		}
	}

	user, err := s.resolveUser(ctx, req.Login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordAttempt(ctx, nil, req, false, models.LoginFailureInvalidCredentials)
			s.recordFailure(ctx, req)
			s.countLogin("invalid_credentials")
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !VerifyPassword(req.Password, user.PasswordHash) {
		s.recordAttempt(ctx, &user.ID, req, false, models.LoginFailureInvalidCredentials)
		s.recordFailure(ctx, req)
		s.countLogin("invalid_credentials")
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if !user.IsActive {
		s.recordAttempt(ctx, &user.ID, req, false, models.LoginFailureInactive)
		s.countLogin("inactive")
		return nil, appErrors.Clone(appErrors.ErrAccountInactive, "")
	}

	snapshot, err := s.loader.Load(ctx, user.ID)
	if err != nil || snapshot == nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user context")
	}

	accessToken, err := s.codec.IssueAccessToken(snapshot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	refreshToken, err := s.codec.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	s.recordAttempt(ctx, &user.ID, req, true, "")

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, req.Login, req.IP); err != nil {
			s.logger.Warn("failed to reset login throttle", zap.Error(err))
		}
	}
	s.countLogin("success")

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
		User:         snapshotInfo(snapshot),
	}, nil
}

// Refresh verifies a refresh token and mints a new access token. The
// refresh token is not rotated; it stays valid until its own expiry.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.RefreshResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	claims, err := s.codec.VerifyRefresh(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.loader.Load(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user context")
	}
	if snapshot == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
	}
	if !snapshot.IsActive {
		return nil, appErrors.Clone(appErrors.ErrAccountInactive, "")
	}

	accessToken, err := s.codec.IssueAccessToken(snapshot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.RefreshResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.codec.AccessTTL().Seconds()),
	}, nil
}

// Logout stamps the logout time on the user's most recent login record.
// The bearer token itself is stateless and simply expires.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.activity.StampLogout(ctx, userID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to stamp logout", zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

// ChangePassword re-verifies the current password before accepting the
// new one. A wrong current password leaves the stored hash untouched.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		return appErrors.Clone(appErrors.ErrValidation, "current password is incorrect")
	}

	newHash, err := HashPassword(req.NewPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	return nil
}

// ForgotPassword initiates the reset flow. The returned token is only
// surfaced to the caller in development; callers always receive the
// same acknowledgement whether or not the email matched an account.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forgot password payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		s.logger.Warn("failed to look up reset email", zap.Error(err))
		return "", nil
	}
	if !user.IsActive {
		return "", nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate reset token")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	reset := &models.PasswordResetToken{
		UserID:      user.ID,
		TokenDigest: digestToken(token),
		ExpiresAt:   time.Now().UTC().Add(s.resetTokenTTL),
	}
	if err := s.users.CreatePasswordResetToken(ctx, reset); err != nil {
		s.logger.Warn("failed to persist reset token", zap.Error(err))
		return "", nil
	}

	// Email delivery happens out of band; the token is returned so the
	// development environment can echo it.
	return token, nil
}

// ResetPassword validates a single-use reset token and updates the
// password, consuming the token.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset password payload")
	}

	reset, err := s.users.FindPasswordResetToken(ctx, digestToken(req.Token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidResetToken, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reset token")
	}

	now := time.Now().UTC()
	if reset.UsedAt != nil || !now.Before(reset.ExpiresAt) {
		return appErrors.Clone(appErrors.ErrInvalidResetToken, "")
	}

	newHash, err := HashPassword(req.NewPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.users.UpdatePassword(ctx, reset.UserID, newHash, now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if err := s.users.MarkResetTokenUsed(ctx, reset.ID, now); err != nil {
		s.logger.Warn("failed to mark reset token used", zap.Error(err))
	}

	return nil
}

// Register creates a user with an initial role assignment.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	role, err := s.rbac.FindRoleByName(ctx, req.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		InstitutionID: req.InstitutionID,
		Email:         req.Email,
		Username:      req.Username,
		PasswordHash:  hash,
		FullName:      req.FullName,
		IsActive:      true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if err := s.rbac.AssignRoleToUser(ctx, user.ID, role.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}

	return &models.UserInfo{
		ID:            user.ID,
		InstitutionID: user.InstitutionID,
		Email:         user.Email,
		Username:      user.Username,
		FullName:      user.FullName,
		Role:          role.Name,
	}, nil
}

// resolveUser matches the identifier against the email column when it
// looks like an email address, otherwise against the username column.
func (s *AuthService) resolveUser(ctx context.Context, login string) (*models.User, error) {
	if strings.Contains(login, "@") {
		return s.users.FindByEmail(ctx, login)
	}
	return s.users.FindByUsername(ctx, login)
}

func (s *AuthService) recordAttempt(ctx context.Context, userID *int64, req models.LoginRequest, success bool, reason string) {
	activity := &models.LoginActivity{
		UserID:       userID,
		IPAddress:    req.IP,
		UserAgent:    req.UserAgent,
		IsSuccessful: success,
		LoggedInAt:   time.Now().UTC(),
	}
	if reason != "" {
		activity.FailureReason = &reason
	}
	if err := s.activity.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record login activity", zap.Error(err))
	}
}

func (s *AuthService) recordFailure(ctx context.Context, req models.LoginRequest) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, req.Login, req.IP); err != nil {
		s.logger.Warn("failed to record throttle failure", zap.Error(err))
	}
}

func (s *AuthService) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLoginAttempt(outcome)
	}
}

func snapshotInfo(s *models.UserSnapshot) models.UserInfo {
	return models.UserInfo{
		ID:            s.UserID,
		InstitutionID: s.InstitutionID,
		Email:         s.Email,
		Username:      s.Username,
		FullName:      s.FullName,
		Role:          s.PrimaryRole(),
	}
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
