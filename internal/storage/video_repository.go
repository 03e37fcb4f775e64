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

// VideoRepository reads the video catalog
type VideoRepository struct {
	db *PostgresDB
}

// NewVideoRepository creates a new video repository
func NewVideoRepository(db *PostgresDB) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoColumns = `
	id, org_id, project_id, account_id, video_id, platform, video_url, caption, thumbnail,
	upload_date, duration, views, likes, comments, shares, saves,
	date_added, status, is_read, last_refreshed`

func scanVideo(row pgx.Row) (*models.VideoRecord, error) {
	var v models.VideoRecord
	err := row.Scan(
		&v.ID, &v.Scope.OrgID, &v.Scope.ProjectID, &v.AccountID, &v.VideoID, &v.Platform,
		&v.VideoURL, &v.Caption, &v.Thumbnail,
		&v.UploadDate, &v.Duration,
		&v.Metrics.Views, &v.Metrics.Likes, &v.Metrics.Comments, &v.Metrics.Shares, &v.Metrics.Saves,
		&v.DateAdded, &v.Status, &v.IsRead, &v.LastRefreshed,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByAccount returns every stored video of an account, newest upload first
func (r *VideoRepository) ListByAccount(ctx context.Context, scope models.Scope, accountID string) ([]*models.VideoRecord, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT `+videoColumns+`
		FROM videos
		WHERE org_id = $1 AND project_id = $2 AND account_id = $3
		ORDER BY upload_date DESC`,
		scope.OrgID, scope.ProjectID, accountID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list videos", err)
	}
	defer rows.Close()

	var videos []*models.VideoRecord
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list videos", err)
	}
	return videos, nil
}

// FindVideo returns the account's stored video with the given platform identity, or nil
func (r *VideoRepository) FindVideo(ctx context.Context, scope models.Scope, accountID string, platform types.Platform, videoID string) (*models.VideoRecord, error) {
	row := r.db.Pool().QueryRow(ctx, `SELECT `+videoColumns+`
		FROM videos
		WHERE org_id = $1 AND project_id = $2 AND account_id = $3 AND platform = $4 AND video_id = $5`,
		scope.OrgID, scope.ProjectID, accountID, platform, videoID)

	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("find video", err)
	}
	return v, nil
}

// ListSnapshots returns the snapshots of one video captured at or after since, in capture order
func (r *VideoRepository) ListSnapshots(ctx context.Context, scope models.Scope, platform types.Platform, videoID string, since time.Time, limit int) ([]*models.Snapshot, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id, org_id, project_id, account_id, video_id, platform,
			views, likes, comments, shares, saves, captured_at, is_initial_snapshot, captured_by
		FROM video_snapshots
		WHERE org_id = $1 AND project_id = $2 AND platform = $3 AND video_id = $4 AND captured_at >= $5
		ORDER BY captured_at
		LIMIT $6`,
		scope.OrgID, scope.ProjectID, platform, videoID, since, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list snapshots", err)
	}
	defer rows.Close()

	var out []*models.Snapshot
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.Scope.OrgID, &s.Scope.ProjectID, &s.AccountID, &s.VideoID, &s.Platform,
			&s.Metrics.Views, &s.Metrics.Likes, &s.Metrics.Comments, &s.Metrics.Shares, &s.Metrics.Saves,
			&s.CapturedAt, &s.IsInitialSnapshot, &s.CapturedBy); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
