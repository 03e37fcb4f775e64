package service

import (
	"context"
	"time"

	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/types"
)

// TrendReader reads snapshot history from the analytics mirror
type TrendReader interface {
	Trend(ctx context.Context, scope models.Scope, platform types.Platform, videoID string, since time.Time, limit int) ([]*models.Snapshot, error)
}

// SnapshotLister reads snapshot history from the catalog
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, scope models.Scope, platform types.Platform, videoID string, since time.Time, limit int) ([]*models.Snapshot, error)
}

// SnapshotService serves a video's metric history. It prefers the analytics
// mirror and falls back to the catalog when the mirror is absent or failing.
type SnapshotService struct {
	mirror  TrendReader
	catalog SnapshotLister
}

// NewSnapshotService creates a snapshot service. mirror may be nil.
func NewSnapshotService(mirror TrendReader, catalog SnapshotLister) *SnapshotService {
	return &SnapshotService{mirror: mirror, catalog: catalog}
}

// History returns snapshots captured at or after since, oldest first
func (s *SnapshotService) History(ctx context.Context, scope models.Scope, platform types.Platform, videoID string, since time.Time, limit int) ([]*models.Snapshot, error) {
	if s.mirror != nil {
		snaps, err := s.mirror.Trend(ctx, scope, platform, videoID, since, limit)
		if err == nil {
			return snaps, nil
		}
		logging.FromContext(ctx).WithError(err).Warn("Snapshot mirror read failed, using catalog")
	}

	return s.catalog.ListSnapshots(ctx, scope, platform, videoID, since, limit)
}
