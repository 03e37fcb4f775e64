// Package service orchestrates account sync runs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/creator-sync/internal/cleanup"
	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/fetcher"
	"github.com/creator-sync/internal/lease"
	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/media"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/notify"
	"github.com/creator-sync/internal/persistence"
	"github.com/creator-sync/internal/ratelimit"
	"github.com/creator-sync/internal/snapshot"
	"github.com/creator-sync/internal/types"
	"github.com/creator-sync/internal/worker"
)

const (
	thumbnailFolder = "thumbnails"
	profileFolder   = "profile-pictures"
)

// AccountStore reads and updates tracked accounts
type AccountStore interface {
	Get(ctx context.Context, scope models.Scope, id string) (*models.TrackedAccount, error)
	UpdateProgress(ctx context.Context, scope models.Scope, id string, status types.SyncStatus, progress models.SyncProgress) error
	MarkCompleted(ctx context.Context, scope models.Scope, id string, progress models.SyncProgress, at time.Time) error
	MarkFailed(ctx context.Context, scope models.Scope, id string, message string) (int, error)
	UpdateProfile(ctx context.Context, scope models.Scope, id string, profile *models.ProfileInfo, avatarURL string) error
}

// VideoStore lists an account's stored videos
type VideoStore interface {
	ListByAccount(ctx context.Context, scope models.Scope, accountID string) ([]*models.VideoRecord, error)
}

// FetcherSource resolves the fetcher for a platform
type FetcherSource interface {
	Get(platform types.Platform) (fetcher.Fetcher, error)
}

// SnapshotAppender mirrors committed snapshots for analytics
type SnapshotAppender interface {
	Append(ctx context.Context, snapshots []*models.Snapshot) error
}

// SyncRequest identifies the account to sync and who asked
type SyncRequest struct {
	AccountID string
	Scope     models.Scope
	Origin    types.TriggerOrigin
}

// SyncResult is returned to the caller of a successful run
type SyncResult struct {
	VideosCount int    `json:"videosCount"`
	Username    string `json:"username"`
}

// Dependencies are the collaborators of a SyncService. Mirror may be nil.
type Dependencies struct {
	Accounts  AccountStore
	Videos    VideoStore
	Fetchers  FetcherSource
	Ingester  media.Ingester
	Committer *persistence.Committer
	Mirror    SnapshotAppender
	Leases    lease.Acquirer
	Notifier  notify.Notifier
	Cleaner   cleanup.Cleaner
	Pool      *worker.Pool
}

// SyncOptions tunes a SyncService
type SyncOptions struct {
	LeaseTTL       time.Duration
	RunTimeout     time.Duration // zero leaves the caller's deadline alone
	CleanupTimeout time.Duration
}

// SyncService runs the sync pipeline for one account at a time per account
type SyncService struct {
	deps Dependencies
	opts SyncOptions
	now  func() time.Time

	// cleanupDone is signalled after each background cleanup; tests only
	cleanupDone chan struct{}
}

// NewSyncService creates a sync service
func NewSyncService(deps Dependencies, opts SyncOptions) *SyncService {
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 10 * time.Minute
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = 2 * time.Minute
	}
	if deps.Pool == nil {
		deps.Pool = worker.NewPool(worker.DefaultLimit)
	}
	if deps.Cleaner == nil {
		deps.Cleaner = cleanup.Nop{}
	}
	return &SyncService{deps: deps, opts: opts, now: time.Now}
}

// SyncAccount runs one full sync for an account. A run already holding the
// account's lease makes this call fail with SYNC_IN_PROGRESS.
func (s *SyncService) SyncAccount(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"org_id":     req.Scope.OrgID,
		"project_id": req.Scope.ProjectID,
		"account_id": req.AccountID,
		"origin":     string(req.Origin),
	})
	ctx = logging.WithLogger(ctx, logger)
	ctx = ratelimit.WithPriority(ctx, ratelimit.PriorityForOrigin(req.Origin))

	held, err := s.deps.Leases.Acquire(ctx, req.AccountID, s.opts.LeaseTTL)
	if err != nil {
		if errors.Is(err, lease.ErrLeaseHeld) {
			logger.Warn("Sync already in progress, rejecting trigger")
			return nil, apperrors.NewSyncInProgressError(req.AccountID)
		}
		return nil, apperrors.NewInternalError("failed to acquire sync lease", err)
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Warn("Failed to release sync lease")
		}
	}()

	runCtx := ctx
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	result, account, stack, err := s.runSafely(runCtx, req)
	if err != nil {
		s.recordFailure(context.WithoutCancel(ctx), req, account, err, stack)
		return nil, err
	}
	return result, nil
}

func validateRequest(req SyncRequest) error {
	switch {
	case req.AccountID == "":
		return apperrors.NewInvalidParameterError("accountId", "is required")
	case req.Scope.OrgID == "":
		return apperrors.NewInvalidParameterError("orgId", "is required")
	case req.Scope.ProjectID == "":
		return apperrors.NewInvalidParameterError("projectId", "is required")
	}
	return nil
}

// runSafely turns a panic anywhere in the pipeline into an error with its stack
func (s *SyncService) runSafely(ctx context.Context, req SyncRequest) (result *SyncResult, account *models.TrackedAccount, stack string, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack = string(debug.Stack())
			err = apperrors.NewInternalError(fmt.Sprintf("sync panicked: %v", r), nil)
		}
	}()

	result, err = s.run(ctx, req, &account)
	return result, account, "", err
}

func (s *SyncService) run(ctx context.Context, req SyncRequest, loaded **models.TrackedAccount) (*SyncResult, error) {
	scope := req.Scope

	account, err := s.deps.Accounts.Get(ctx, scope, req.AccountID)
	if err != nil {
		return nil, err
	}
	*loaded = account

	logger := logging.FromContext(ctx).WithAccount(scope.OrgID, scope.ProjectID, account.ID, string(account.Platform)).
		WithField("username", account.Username)
	ctx = logging.WithLogger(ctx, logger)

	if err := s.deps.Accounts.UpdateProgress(ctx, scope, account.ID, types.SyncSyncing, models.NewSyncProgress(10, "Starting sync...")); err != nil {
		return nil, err
	}

	existing, err := s.deps.Videos.ListByAccount(ctx, scope, account.ID)
	if err != nil {
		return nil, err
	}
	index := models.NewDedupIndex(existing)

	f, err := s.deps.Fetchers.Get(account.Platform)
	if err != nil {
		return nil, err
	}
	fetched, err := f.FetchNewContent(ctx, account, index)
	if err != nil {
		return nil, err
	}
	logger.WithFields(map[string]interface{}{
		"new":       len(fetched.New),
		"refreshed": len(fetched.Refreshed),
		"batches":   fetched.BatchesRequested,
		"partial":   fetched.Partial,
	}).Info("Fetched content")

	if fetched.Profile != nil {
		s.saveProfile(ctx, account, fetched.Profile)
	}

	records := make([]*models.VideoRecord, 0, len(fetched.New)+len(fetched.Refreshed))
	records = append(records, fetched.New...)
	records = append(records, fetched.Refreshed...)

	s.ingestThumbnails(ctx, scope, records)

	if err := s.deps.Accounts.UpdateProgress(ctx, scope, account.ID, types.SyncSyncing,
		models.NewSyncProgress(50, fmt.Sprintf("Saving %d videos...", len(records)))); err != nil {
		return nil, err
	}

	manager := snapshot.NewManager(snapshot.NewIndexLookup(existing))
	ops := make([]*snapshot.Reconciliation, 0, len(records))
	for _, rec := range records {
		rec.Scope = scope
		rec.AccountID = account.ID
		op, err := manager.Reconcile(ctx, scope, rec, req.Origin)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	committed, err := s.deps.Committer.Commit(ctx, ops)
	if err != nil {
		return nil, err
	}
	s.mirrorSnapshots(ctx, ops)

	count := committed.VideosPersisted
	if err := s.deps.Accounts.MarkCompleted(ctx, scope, account.ID,
		models.NewSyncProgress(100, fmt.Sprintf("Successfully synced %d videos", count)), s.now().UTC()); err != nil {
		return nil, err
	}

	s.startCleanup(ctx, scope)

	logger.WithField("videos", count).Info("Sync completed")
	return &SyncResult{VideosCount: count, Username: account.Username}, nil
}

// saveProfile ingests the avatar and stores the profile. Failures are logged only.
func (s *SyncService) saveProfile(ctx context.Context, account *models.TrackedAccount, profile *models.ProfileInfo) {
	logger := logging.FromContext(ctx)

	avatar, err := media.ResolveURL(ctx, s.deps.Ingester, profile.AvatarURL, account.Scope,
		fmt.Sprintf("%s_%s.jpg", account.Platform, account.ID), profileFolder)
	if err != nil {
		logger.WithError(err).Warn("Profile picture not stored")
	}

	if err := s.deps.Accounts.UpdateProfile(ctx, account.Scope, account.ID, profile, avatar); err != nil {
		logger.WithError(err).Warn("Failed to update profile")
	}
}

// ingestThumbnails resolves every record's thumbnail through the worker pool.
// Each task writes only its own record.
func (s *SyncService) ingestThumbnails(ctx context.Context, scope models.Scope, records []*models.VideoRecord) {
	errs := s.deps.Pool.Run(ctx, len(records), func(ctx context.Context, i int) error {
		rec := records[i]
		if rec.RemoteThumbnailURL == "" {
			return nil
		}
		url, err := media.ResolveURL(ctx, s.deps.Ingester, rec.RemoteThumbnailURL, scope,
			fmt.Sprintf("%s_%s.jpg", rec.Platform, rec.VideoID), thumbnailFolder)
		rec.Thumbnail = url
		return err
	})

	if failed := worker.Failed(errs); failed > 0 {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"failed": failed,
			"total":  len(records),
		}).Warn("Some thumbnails could not be stored")
	}
}

func (s *SyncService) mirrorSnapshots(ctx context.Context, ops []*snapshot.Reconciliation) {
	if s.deps.Mirror == nil || len(ops) == 0 {
		return
	}
	snaps := make([]*models.Snapshot, 0, len(ops))
	for _, op := range ops {
		snaps = append(snaps, op.Snapshot)
	}
	if err := s.deps.Mirror.Append(ctx, snaps); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Snapshot mirror append failed")
	}
}

// startCleanup runs the project cleanup in the background with its own deadline
func (s *SyncService) startCleanup(ctx context.Context, scope models.Scope) {
	logger := logging.FromContext(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", fmt.Sprint(r)).Error("Cleanup panicked")
			}
			if s.cleanupDone != nil {
				s.cleanupDone <- struct{}{}
			}
		}()

		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CleanupTimeout)
		defer cancel()

		res, err := s.deps.Cleaner.RunFullCleanup(cctx, scope.OrgID, scope.ProjectID)
		if err != nil {
			logger.WithError(err).Warn("Post-sync cleanup failed")
			return
		}
		logger.WithFields(map[string]interface{}{
			"videos_deleted":   res.VideosDeleted,
			"accounts_deleted": res.AccountsDeleted,
		}).Info("Post-sync cleanup finished")
	}()
}

// recordFailure moves the account to the error state and emits an ErrorEvent
func (s *SyncService) recordFailure(ctx context.Context, req SyncRequest, account *models.TrackedAccount, runErr error, stack string) {
	logger := logging.FromContext(ctx).WithError(runErr)
	logger.Error("Sync failed")

	message := runErr.Error()
	if stack == "" {
		stack = errorTrace(runErr)
	}
	attempt := 0
	if account != nil {
		retries, err := s.deps.Accounts.MarkFailed(ctx, req.Scope, account.ID, message)
		if err != nil {
			logger.WithField("mark_error", err.Error()).Error("Failed to record sync failure")
			attempt = account.SyncRetryCount + 1
		} else {
			attempt = retries
		}
	}

	event := &models.ErrorEvent{
		Type:          models.ErrorEventType,
		AccountID:     req.AccountID,
		Message:       message,
		Stack:         stack,
		OrgID:         req.Scope.OrgID,
		ProjectID:     req.Scope.ProjectID,
		Timestamp:     s.now().UTC(),
		AttemptNumber: attempt,
	}
	if account != nil {
		event.Platform = account.Platform
		event.Username = account.Username
	}

	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.NotifyError(ctx, event); err != nil {
		logger.WithField("notify_error", err.Error()).Warn("Failed to deliver sync error event")
	}
}

// errorTrace lists runErr's wrap chain outermost first, followed by the
// stack of the goroutine that recorded it
func errorTrace(runErr error) string {
	var b strings.Builder
	for e := runErr; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(&b, "%T: %s\n", e, e.Error())
	}
	b.WriteString("\n")
	b.Write(debug.Stack())
	return b.String()
}

// GetSyncStatus returns the polling view of an account
func (s *SyncService) GetSyncStatus(ctx context.Context, scope models.Scope, accountID string) (*models.SyncStatusView, error) {
	account, err := s.deps.Accounts.Get(ctx, scope, accountID)
	if err != nil {
		return nil, err
	}
	return account.StatusView(), nil
}
