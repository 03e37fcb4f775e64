// Package persistence commits reconciled videos, snapshots and recent-activity
// projections in chunks no larger than the store's atomic write ceiling.
package persistence

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/snapshot"
)

// DefaultCeiling is the maximum number of writes per atomic batch
const DefaultCeiling = 500

// WriteKind identifies the target of a write
type WriteKind string

const (
	WriteVideoCreate WriteKind = "video_create"
	WriteVideoUpdate WriteKind = "video_update"
	WriteSnapshot    WriteKind = "snapshot"
	WriteActivity    WriteKind = "recent_activity"
)

// Write is a single document write. Exactly one payload is set, matching Kind.
type Write struct {
	Kind     WriteKind
	Video    *models.VideoRecord
	Snapshot *models.Snapshot
	Activity *models.RecentActivity
}

// BatchWriter applies a chunk of writes atomically
type BatchWriter interface {
	WriteBatch(ctx context.Context, writes []Write) error
}

// CommitResult summarizes what reached the store
type CommitResult struct {
	Commits         int `json:"commits"`
	WritesCommitted int `json:"writesCommitted"`
	VideosPersisted int `json:"videosPersisted"`
}

// Committer chunks writes and hands each chunk to a BatchWriter
type Committer struct {
	writer  BatchWriter
	ceiling int
}

// NewCommitter creates a committer. A non-positive ceiling uses DefaultCeiling.
func NewCommitter(writer BatchWriter, ceiling int) *Committer {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Committer{writer: writer, ceiling: ceiling}
}

// Expand turns reconciliations into the ordered write list: for each video its
// catalog write, its snapshot and its recent-activity merge
func Expand(ops []*snapshot.Reconciliation, now time.Time) []Write {
	writes := make([]Write, 0, len(ops)*3)
	for _, op := range ops {
		kind := WriteVideoUpdate
		if op.Operation == snapshot.OpCreate {
			kind = WriteVideoCreate
		}
		writes = append(writes,
			Write{Kind: kind, Video: op.Video},
			Write{Kind: WriteSnapshot, Snapshot: op.Snapshot},
			Write{Kind: WriteActivity, Activity: ActivityFromVideo(op.Video, now)},
		)
	}
	return writes
}

// Chunk splits writes into consecutive slices of at most size
func Chunk(writes []Write, size int) [][]Write {
	var chunks [][]Write
	for start := 0; start < len(writes); start += size {
		end := start + size
		if end > len(writes) {
			end = len(writes)
		}
		chunks = append(chunks, writes[start:end])
	}
	return chunks
}

// Commit writes every reconciliation. The first failing chunk stops the commit
// with a PersistenceBatchError; chunks before it stay committed.
func (c *Committer) Commit(ctx context.Context, ops []*snapshot.Reconciliation) (*CommitResult, error) {
	logger := logging.FromContext(ctx).WithField("component", "persistence")
	result := &CommitResult{}

	chunks := Chunk(Expand(ops, time.Now().UTC()), c.ceiling)
	for i, chunk := range chunks {
		if err := c.writer.WriteBatch(ctx, chunk); err != nil {
			logger.WithError(err).WithFields(map[string]interface{}{
				"chunk":           i + 1,
				"chunks":          len(chunks),
				"writesCommitted": result.WritesCommitted,
			}).Error("Write batch failed")
			return result, apperrors.NewPersistenceBatchError(i, len(chunks), result.WritesCommitted, err)
		}

		result.Commits++
		result.WritesCommitted += len(chunk)
		for _, w := range chunk {
			if w.Kind == WriteVideoCreate || w.Kind == WriteVideoUpdate {
				result.VideosPersisted++
			}
		}
	}

	logger.WithFields(map[string]interface{}{
		"commits": result.Commits,
		"writes":  result.WritesCommitted,
		"videos":  result.VideosPersisted,
	}).Info("Commit finished")
	return result, nil
}

// ActivityFromVideo projects a video onto the account's recent-activity entry
func ActivityFromVideo(v *models.VideoRecord, now time.Time) *models.RecentActivity {
	var upload *time.Time
	if !v.UploadDate.IsZero() {
		u := v.UploadDate
		upload = &u
	}
	return &models.RecentActivity{
		Scope:       v.Scope,
		AccountID:   v.AccountID,
		VideoID:     v.VideoID,
		Platform:    v.Platform,
		VideoURL:    v.VideoURL,
		Caption:     v.Caption,
		Thumbnail:   v.Thumbnail,
		UploadDate:  upload,
		Metrics:     v.Metrics,
		LastUpdated: now,
	}
}

func (w Write) String() string {
	switch {
	case w.Video != nil:
		return fmt.Sprintf("%s:%s", w.Kind, w.Video.VideoID)
	case w.Snapshot != nil:
		return fmt.Sprintf("%s:%s", w.Kind, w.Snapshot.VideoID)
	case w.Activity != nil:
		return fmt.Sprintf("%s:%s", w.Kind, w.Activity.VideoID)
	}
	return string(w.Kind)
}
