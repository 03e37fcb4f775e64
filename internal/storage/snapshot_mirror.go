package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/types"
)

// SnapshotMirror copies committed snapshots into ClickHouse for trend queries.
// The Postgres catalog stays the source of truth.
type SnapshotMirror struct {
	db *ClickHouseDB
}

// NewSnapshotMirror creates a new snapshot mirror
func NewSnapshotMirror(db *ClickHouseDB) *SnapshotMirror {
	return &SnapshotMirror{db: db}
}

// Append inserts snapshots in one ClickHouse batch
func (m *SnapshotMirror) Append(ctx context.Context, snapshots []*models.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := m.db.Conn().PrepareBatch(ctx, `
		INSERT INTO video_snapshots (
			id, org_id, project_id, account_id, video_id, platform,
			views, likes, comments, shares, saves,
			captured_at, is_initial_snapshot, captured_by
		)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot batch: %w", err)
	}

	for _, s := range snapshots {
		if err := batch.Append(
			s.ID, s.Scope.OrgID, s.Scope.ProjectID, s.AccountID, s.VideoID, string(s.Platform),
			s.Metrics.Views, s.Metrics.Likes, s.Metrics.Comments, s.Metrics.Shares, s.Metrics.Saves,
			s.CapturedAt, s.IsInitialSnapshot, string(s.CapturedBy),
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append snapshot %s: %w", s.ID, err)
		}
	}
	return batch.Send()
}

// Trend returns the snapshots of one video captured at or after since, oldest first
func (m *SnapshotMirror) Trend(ctx context.Context, scope models.Scope, platform types.Platform, videoID string, since time.Time, limit int) ([]*models.Snapshot, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := m.db.Conn().Query(ctx, `
		SELECT id, account_id, views, likes, comments, shares, saves,
			captured_at, is_initial_snapshot, captured_by
		FROM video_snapshots FINAL
		WHERE org_id = ? AND project_id = ? AND platform = ? AND video_id = ? AND captured_at >= ?
		ORDER BY captured_at
		LIMIT ?`,
		scope.OrgID, scope.ProjectID, string(platform), videoID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot trend: %w", err)
	}
	defer rows.Close()

	var out []*models.Snapshot
	for rows.Next() {
		s := models.Snapshot{Scope: scope, Platform: platform, VideoID: videoID}
		var capturedBy string
		if err := rows.Scan(&s.ID, &s.AccountID,
			&s.Metrics.Views, &s.Metrics.Likes, &s.Metrics.Comments, &s.Metrics.Shares, &s.Metrics.Saves,
			&s.CapturedAt, &s.IsInitialSnapshot, &capturedBy); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.CapturedBy = types.CaptureTrigger(capturedBy)
		out = append(out, &s)
	}
	return out, rows.Err()
}
