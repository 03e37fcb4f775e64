package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/types"
)

type fakeTrend struct {
	snaps []*models.Snapshot
	err   error
}

func (f *fakeTrend) Trend(_ context.Context, _ models.Scope, _ types.Platform, _ string, _ time.Time, _ int) ([]*models.Snapshot, error) {
	return f.snaps, f.err
}

// fakeCatalog filters, orders and limits like the Postgres query
type fakeCatalog struct {
	snaps []*models.Snapshot
}

func (f *fakeCatalog) ListSnapshots(_ context.Context, _ models.Scope, _ types.Platform, _ string, since time.Time, limit int) ([]*models.Snapshot, error) {
	if limit <= 0 {
		limit = 500
	}
	var out []*models.Snapshot
	for _, snap := range f.snaps {
		if !snap.CapturedAt.Before(since) {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func snapAt(id string, at time.Time) *models.Snapshot {
	return &models.Snapshot{ID: id, CapturedAt: at}
}

func TestSnapshotService_PrefersMirror(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc := NewSnapshotService(&fakeTrend{snaps: []*models.Snapshot{snapAt("m1", base)}}, &fakeCatalog{})

	got, err := svc.History(context.Background(), scope, types.PlatformYouTube, "v1", base, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
}

func TestSnapshotService_FallsBackToCatalog(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	catalog := &fakeCatalog{snaps: []*models.Snapshot{
		snapAt("old", base.Add(-time.Hour)),
		snapAt("new", base.Add(time.Hour)),
	}}

	for name, mirror := range map[string]TrendReader{
		"no mirror":     nil,
		"mirror failed": &fakeTrend{err: errors.New("connection refused")},
	} {
		t.Run(name, func(t *testing.T) {
			cp := &fakeCatalog{snaps: append([]*models.Snapshot(nil), catalog.snaps...)}
			got, err := NewSnapshotService(mirror, cp).History(context.Background(), scope, types.PlatformYouTube, "v1", base, 0)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "new", got[0].ID)
		})
	}
}

func TestSnapshotService_CatalogWindowBeyondDefaultLimit(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	catalog := &fakeCatalog{}
	for i := 0; i < 600; i++ {
		catalog.snaps = append(catalog.snaps, snapAt(fmt.Sprintf("s%d", i), now.AddDate(0, 0, i-599)))
	}

	since := now.AddDate(0, 0, -29)
	got, err := NewSnapshotService(nil, catalog).History(context.Background(), scope, types.PlatformTikTok, "v1", since, 0)

	require.NoError(t, err)
	require.Len(t, got, 30)
	assert.Equal(t, "s570", got[0].ID)
	assert.Equal(t, "s599", got[29].ID)
}
