package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/types"
)

// AccountRepository handles tracked account persistence
type AccountRepository struct {
	db *PostgresDB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *PostgresDB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `
	id, org_id, project_id, platform, username, creator_type, max_videos,
	sync_status, sync_progress_current, sync_progress_total, sync_progress_message,
	last_sync_at, last_sync_error, has_error, sync_retry_count,
	display_name, profile_picture, follower_count, bio, is_verified,
	created_at, updated_at`

func scanAccount(row pgx.Row) (*models.TrackedAccount, error) {
	var a models.TrackedAccount
	err := row.Scan(
		&a.ID, &a.Scope.OrgID, &a.Scope.ProjectID, &a.Platform, &a.Username, &a.CreatorType, &a.MaxVideos,
		&a.SyncStatus, &a.SyncProgress.Current, &a.SyncProgress.Total, &a.SyncProgress.Message,
		&a.LastSyncAt, &a.LastSyncError, &a.HasError, &a.SyncRetryCount,
		&a.DisplayName, &a.ProfilePicture, &a.FollowerCount, &a.Bio, &a.IsVerified,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a tracked account. Used by seeding tools and tests; the sync
// engine itself never creates accounts.
func (r *AccountRepository) Create(ctx context.Context, a *models.TrackedAccount) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.SyncStatus == "" {
		a.SyncStatus = types.SyncIdle
	}
	if a.CreatorType == "" {
		a.CreatorType = types.CreatorAutomatic
	}

	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO tracked_accounts (id, org_id, project_id, platform, username, creator_type, max_videos,
			sync_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Scope.OrgID, a.Scope.ProjectID, a.Platform, a.Username, a.CreatorType, a.MaxVideos,
		a.SyncStatus, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("create account", err)
	}
	return nil
}

// Get loads an account inside its scope
func (r *AccountRepository) Get(ctx context.Context, scope models.Scope, id string) (*models.TrackedAccount, error) {
	row := r.db.Pool().QueryRow(ctx, `SELECT `+accountColumns+`
		FROM tracked_accounts
		WHERE id = $1 AND org_id = $2 AND project_id = $3`,
		id, scope.OrgID, scope.ProjectID)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("account", id)
		}
		return nil, apperrors.NewDatabaseError("get account", err)
	}
	return a, nil
}

// UpdateProgress sets the sync status and progress polled by the UI
func (r *AccountRepository) UpdateProgress(ctx context.Context, scope models.Scope, id string, status types.SyncStatus, progress models.SyncProgress) error {
	return r.exec(ctx, "update sync progress", `
		UPDATE tracked_accounts
		SET sync_status = $4, sync_progress_current = $5, sync_progress_total = $6,
			sync_progress_message = $7, updated_at = NOW()
		WHERE id = $1 AND org_id = $2 AND project_id = $3`,
		id, scope.OrgID, scope.ProjectID, status, progress.Current, progress.Total, progress.Message)
}

// MarkCompleted records a successful run and clears the error state
func (r *AccountRepository) MarkCompleted(ctx context.Context, scope models.Scope, id string, progress models.SyncProgress, at time.Time) error {
	return r.exec(ctx, "mark sync completed", `
		UPDATE tracked_accounts
		SET sync_status = $4, sync_progress_current = $5, sync_progress_total = $6,
			sync_progress_message = $7, last_sync_at = $8, last_sync_error = NULL,
			has_error = FALSE, sync_retry_count = 0, updated_at = NOW()
		WHERE id = $1 AND org_id = $2 AND project_id = $3`,
		id, scope.OrgID, scope.ProjectID, types.SyncCompleted,
		progress.Current, progress.Total, progress.Message, at)
}

// MarkFailed records a failed run and returns the incremented retry count
func (r *AccountRepository) MarkFailed(ctx context.Context, scope models.Scope, id string, message string) (int, error) {
	var retries int
	err := r.db.Pool().QueryRow(ctx, `
		UPDATE tracked_accounts
		SET sync_status = $4, has_error = TRUE, last_sync_error = $5,
			sync_retry_count = sync_retry_count + 1,
			sync_progress_message = $5, updated_at = NOW()
		WHERE id = $1 AND org_id = $2 AND project_id = $3
		RETURNING sync_retry_count`,
		id, scope.OrgID, scope.ProjectID, types.SyncError, message).Scan(&retries)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NewNotFoundError("account", id)
		}
		return 0, apperrors.NewDatabaseError("mark sync failed", err)
	}
	return retries, nil
}

// UpdateProfile stores discovered profile fields. avatarURL must already be durable;
// an empty value keeps the stored picture.
func (r *AccountRepository) UpdateProfile(ctx context.Context, scope models.Scope, id string, profile *models.ProfileInfo, avatarURL string) error {
	return r.exec(ctx, "update profile", `
		UPDATE tracked_accounts
		SET display_name = COALESCE(NULLIF($4, ''), display_name),
			profile_picture = COALESCE(NULLIF($5, ''), profile_picture),
			follower_count = $6, bio = COALESCE(NULLIF($7, ''), bio),
			is_verified = $8, updated_at = NOW()
		WHERE id = $1 AND org_id = $2 AND project_id = $3`,
		id, scope.OrgID, scope.ProjectID,
		profile.DisplayName, avatarURL, profile.FollowerCount, profile.Bio, profile.IsVerified)
}

func (r *AccountRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	tag, err := r.db.Pool().Exec(ctx, query, args...)
	if err != nil {
		return apperrors.NewDatabaseError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("account", fmt.Sprint(args[0]))
	}
	return nil
}
