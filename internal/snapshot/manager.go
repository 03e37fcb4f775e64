// Package snapshot reconciles fetched videos against the catalog and produces
// exactly one metrics snapshot per processed video.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/types"
)

// Operation is the catalog write a reconciliation needs
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// VideoLookup finds a stored video by its platform identity within an
// account. Absent videos return nil and no error.
type VideoLookup interface {
	FindVideo(ctx context.Context, scope models.Scope, accountID string, platform types.Platform, videoID string) (*models.VideoRecord, error)
}

// IndexLookup serves lookups from records loaded at the start of a run
type IndexLookup map[models.VideoKey]*models.VideoRecord

// NewIndexLookup indexes records by (account, platform, videoId)
func NewIndexLookup(records []*models.VideoRecord) IndexLookup {
	idx := make(IndexLookup, len(records))
	for _, r := range records {
		idx[r.Key()] = r
	}
	return idx
}

func (l IndexLookup) FindVideo(_ context.Context, _ models.Scope, accountID string, platform types.Platform, videoID string) (*models.VideoRecord, error) {
	return l[models.VideoKey{AccountID: accountID, Platform: platform, VideoID: videoID}], nil
}

// Reconciliation is the pending write set for one video
type Reconciliation struct {
	Operation Operation
	Video     *models.VideoRecord
	Snapshot  *models.Snapshot
}

// Manager decides create versus update and builds the snapshot
type Manager struct {
	lookup VideoLookup
	now    func() time.Time
}

// NewManager creates a manager backed by lookup
func NewManager(lookup VideoLookup) *Manager {
	return &Manager{lookup: lookup, now: time.Now}
}

// VideoDocumentID derives a stable catalog id so a retried create lands on the same row
func VideoDocumentID(scope models.Scope, accountID string, platform types.Platform, videoID string) string {
	name := fmt.Sprintf("%s/%s/%s/%s/%s", scope.OrgID, scope.ProjectID, accountID, platform, videoID)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Reconcile plans the catalog write for video. The incoming record carries
// fresh metrics and, when ingestion succeeded, a durable thumbnail.
func (m *Manager) Reconcile(ctx context.Context, scope models.Scope, video *models.VideoRecord, origin types.TriggerOrigin) (*Reconciliation, error) {
	if video == nil || video.VideoID == "" {
		return nil, fmt.Errorf("reconcile: video without id")
	}

	existing, err := m.lookup.FindVideo(ctx, scope, video.AccountID, video.Platform, video.VideoID)
	if err != nil {
		return nil, fmt.Errorf("lookup video %s: %w", video.VideoID, err)
	}

	now := m.now().UTC()
	if existing == nil {
		return m.create(scope, video, now), nil
	}
	return m.update(existing, video, origin, now), nil
}

func (m *Manager) create(scope models.Scope, video *models.VideoRecord, now time.Time) *Reconciliation {
	rec := *video
	rec.ID = VideoDocumentID(scope, video.AccountID, video.Platform, video.VideoID)
	rec.Scope = scope
	rec.DateAdded = now
	rec.Status = types.VideoActive
	rec.IsRead = false
	rec.LastRefreshed = nil
	rec.RemoteThumbnailURL = ""

	return &Reconciliation{
		Operation: OpCreate,
		Video:     &rec,
		Snapshot:  newSnapshot(&rec, now, true, types.CapturedInitialSync),
	}
}

func (m *Manager) update(existing, video *models.VideoRecord, origin types.TriggerOrigin, now time.Time) *Reconciliation {
	rec := *existing
	rec.Metrics = video.Metrics
	rec.LastRefreshed = &now
	if video.Thumbnail != "" {
		rec.Thumbnail = video.Thumbnail
	}
	rec.RemoteThumbnailURL = ""

	return &Reconciliation{
		Operation: OpUpdate,
		Video:     &rec,
		Snapshot:  newSnapshot(&rec, now, false, origin.RefreshTrigger()),
	}
}

func newSnapshot(rec *models.VideoRecord, at time.Time, initial bool, trigger types.CaptureTrigger) *models.Snapshot {
	return &models.Snapshot{
		ID:                uuid.NewString(),
		Scope:             rec.Scope,
		AccountID:         rec.AccountID,
		VideoID:           rec.VideoID,
		Platform:          rec.Platform,
		Metrics:           rec.Metrics,
		CapturedAt:        at,
		IsInitialSnapshot: initial,
		CapturedBy:        trigger,
	}
}
