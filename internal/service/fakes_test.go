package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/creator-sync/internal/cleanup"
	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/fetcher"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/persistence"
	"github.com/creator-sync/internal/types"
)

type progressCall struct {
	status   types.SyncStatus
	progress models.SyncProgress
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]*models.TrackedAccount
	progress []progressCall
	profiles []*models.ProfileInfo
	avatars  []string
}

func newFakeAccounts(accounts ...*models.TrackedAccount) *fakeAccounts {
	f := &fakeAccounts{accounts: make(map[string]*models.TrackedAccount)}
	for _, a := range accounts {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) Get(_ context.Context, scope models.Scope, id string) (*models.TrackedAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.Scope != scope {
		return nil, apperrors.NewNotFoundError("account", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) UpdateProgress(_ context.Context, _ models.Scope, id string, status types.SyncStatus, progress models.SyncProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.accounts[id]
	a.SyncStatus = status
	a.SyncProgress = progress
	f.progress = append(f.progress, progressCall{status, progress})
	return nil
}

func (f *fakeAccounts) MarkCompleted(_ context.Context, _ models.Scope, id string, progress models.SyncProgress, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.accounts[id]
	a.SyncStatus = types.SyncCompleted
	a.SyncProgress = progress
	a.LastSyncAt = &at
	a.LastSyncError = nil
	a.HasError = false
	a.SyncRetryCount = 0
	return nil
}

func (f *fakeAccounts) MarkFailed(_ context.Context, _ models.Scope, id string, message string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return 0, apperrors.NewNotFoundError("account", id)
	}
	a.SyncStatus = types.SyncError
	a.HasError = true
	a.LastSyncError = &message
	a.SyncRetryCount++
	return a.SyncRetryCount, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, _ models.Scope, id string, profile *models.ProfileInfo, avatarURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, profile)
	f.avatars = append(f.avatars, avatarURL)
	if avatarURL != "" {
		f.accounts[id].ProfilePicture = avatarURL
	}
	return nil
}

func (f *fakeAccounts) account(id string) models.TrackedAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.accounts[id]
}

type fakeVideos struct {
	records []*models.VideoRecord
}

func (f *fakeVideos) ListByAccount(_ context.Context, _ models.Scope, accountID string) ([]*models.VideoRecord, error) {
	var out []*models.VideoRecord
	for _, r := range f.records {
		if r.AccountID == accountID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeFetcher struct {
	platform types.Platform
	result   *fetcher.Result
	err      error
	panicMsg string
	seen     models.DedupIndex
}

func (f *fakeFetcher) Platform() types.Platform { return f.platform }

func (f *fakeFetcher) FetchNewContent(_ context.Context, _ *models.TrackedAccount, existing models.DedupIndex) (*fetcher.Result, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.seen = existing
	return f.result, f.err
}

type fetcherMap map[types.Platform]fetcher.Fetcher

func (m fetcherMap) Get(p types.Platform) (fetcher.Fetcher, error) {
	f, ok := m[p]
	if !ok {
		return nil, fmt.Errorf("no fetcher for %s", p)
	}
	return f, nil
}

// fakeIngester stores everything except URLs containing "broken"
type fakeIngester struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeIngester) Ingest(_ context.Context, remoteURL string, scope models.Scope, filename, folder string) (string, error) {
	if strings.Contains(remoteURL, "broken") {
		return "", apperrors.NewDownloadError(remoteURL, "status 403", nil)
	}
	path := fmt.Sprintf("organizations/%s/projects/%s/%s/%s", scope.OrgID, scope.ProjectID, folder, filename)
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	return "https://storage.googleapis.com/media/" + path, nil
}

type memoryWriter struct {
	mu      sync.Mutex
	writes  []persistence.Write
	batches int
	failAt  int // 1-based batch number to fail, 0 never
}

func (w *memoryWriter) WriteBatch(_ context.Context, writes []persistence.Write) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches++
	if w.failAt == w.batches {
		return errors.New("deadline exceeded")
	}
	w.writes = append(w.writes, writes...)
	return nil
}

func (w *memoryWriter) snapshots() []*models.Snapshot {
	var out []*models.Snapshot
	for _, wr := range w.writes {
		if wr.Kind == persistence.WriteSnapshot {
			out = append(out, wr.Snapshot)
		}
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []*models.ErrorEvent
}

func (n *recordingNotifier) NotifyError(_ context.Context, event *models.ErrorEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type recordingCleaner struct {
	mu    sync.Mutex
	calls []models.Scope
}

func (c *recordingCleaner) RunFullCleanup(_ context.Context, orgID, projectID string) (*cleanup.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, models.Scope{OrgID: orgID, ProjectID: projectID})
	return &cleanup.Result{VideosDeleted: 1}, nil
}

type recordingMirror struct {
	appended []*models.Snapshot
	err      error
}

func (m *recordingMirror) Append(_ context.Context, snaps []*models.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.appended = append(m.appended, snaps...)
	return nil
}
