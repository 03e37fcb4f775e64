package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/creator-sync/internal/persistence"
)

// BatchWriter applies a chunk of catalog writes in one Postgres transaction
type BatchWriter struct {
	db *PostgresDB
}

// NewBatchWriter creates a Postgres-backed batch writer
func NewBatchWriter(db *PostgresDB) *BatchWriter {
	return &BatchWriter{db: db}
}

const (
	// a retried create lands on the same deterministic id, so it becomes a metrics update
	insertVideoSQL = `
		INSERT INTO videos (id, org_id, project_id, account_id, video_id, platform, video_url, caption,
			thumbnail, upload_date, duration, views, likes, comments, shares, saves,
			date_added, status, is_read, last_refreshed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (org_id, project_id, account_id, platform, video_id) DO UPDATE SET
			views = EXCLUDED.views, likes = EXCLUDED.likes, comments = EXCLUDED.comments,
			shares = EXCLUDED.shares, saves = EXCLUDED.saves,
			thumbnail = COALESCE(NULLIF(EXCLUDED.thumbnail, ''), videos.thumbnail)`

	updateVideoSQL = `
		UPDATE videos
		SET views = $2, likes = $3, comments = $4, shares = $5, saves = $6,
			thumbnail = $7, last_refreshed = $8
		WHERE id = $1`

	insertSnapshotSQL = `
		INSERT INTO video_snapshots (id, org_id, project_id, account_id, video_id, platform,
			views, likes, comments, shares, saves, captured_at, is_initial_snapshot, captured_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING`

	// merge: populated fields are never blanked by an empty incoming value
	upsertActivitySQL = `
		INSERT INTO recent_activity (org_id, project_id, account_id, video_id, platform, video_url,
			caption, thumbnail, upload_date, views, likes, comments, shares, saves, last_updated)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9,
			$10, $11, $12, $13, $14, $15)
		ON CONFLICT (org_id, project_id, account_id, video_id) DO UPDATE SET
			video_url = COALESCE(EXCLUDED.video_url, recent_activity.video_url),
			caption = COALESCE(EXCLUDED.caption, recent_activity.caption),
			thumbnail = COALESCE(EXCLUDED.thumbnail, recent_activity.thumbnail),
			upload_date = COALESCE(EXCLUDED.upload_date, recent_activity.upload_date),
			views = EXCLUDED.views, likes = EXCLUDED.likes, comments = EXCLUDED.comments,
			shares = EXCLUDED.shares, saves = EXCLUDED.saves,
			last_updated = EXCLUDED.last_updated`
)

// WriteBatch queues every write into one pgx.Batch inside a transaction.
// Either the whole chunk commits or none of it does.
func (w *BatchWriter) WriteBatch(ctx context.Context, writes []persistence.Write) error {
	if len(writes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, wr := range writes {
		if err := queueWrite(batch, wr); err != nil {
			return err
		}
	}

	tx, err := w.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	for i := range writes {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("write %s: %w", writes[i], err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func queueWrite(batch *pgx.Batch, w persistence.Write) error {
	switch w.Kind {
	case persistence.WriteVideoCreate:
		v := w.Video
		batch.Queue(insertVideoSQL,
			v.ID, v.Scope.OrgID, v.Scope.ProjectID, v.AccountID, v.VideoID, v.Platform, v.VideoURL, v.Caption,
			v.Thumbnail, v.UploadDate, v.Duration,
			v.Metrics.Views, v.Metrics.Likes, v.Metrics.Comments, v.Metrics.Shares, v.Metrics.Saves,
			v.DateAdded, v.Status, v.IsRead, v.LastRefreshed)
	case persistence.WriteVideoUpdate:
		v := w.Video
		batch.Queue(updateVideoSQL, v.ID,
			v.Metrics.Views, v.Metrics.Likes, v.Metrics.Comments, v.Metrics.Shares, v.Metrics.Saves,
			v.Thumbnail, v.LastRefreshed)
	case persistence.WriteSnapshot:
		s := w.Snapshot
		batch.Queue(insertSnapshotSQL,
			s.ID, s.Scope.OrgID, s.Scope.ProjectID, s.AccountID, s.VideoID, s.Platform,
			s.Metrics.Views, s.Metrics.Likes, s.Metrics.Comments, s.Metrics.Shares, s.Metrics.Saves,
			s.CapturedAt, s.IsInitialSnapshot, s.CapturedBy)
	case persistence.WriteActivity:
		a := w.Activity
		batch.Queue(upsertActivitySQL,
			a.Scope.OrgID, a.Scope.ProjectID, a.AccountID, a.VideoID, a.Platform,
			a.VideoURL, a.Caption, a.Thumbnail, a.UploadDate,
			a.Metrics.Views, a.Metrics.Likes, a.Metrics.Comments, a.Metrics.Shares, a.Metrics.Saves,
			a.LastUpdated)
	default:
		return fmt.Errorf("unknown write kind %q", w.Kind)
	}
	return nil
}
