// Package fetcher discovers new platform content for a tracked account with
// progressively larger provider batches, stopping at the first already-known item.
package fetcher

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/provider"
	"github.com/creator-sync/internal/types"
)

// DefaultBatchSizes are the ascending discovery batch sizes
var DefaultBatchSizes = []int{5, 10, 15, 20}

// Fetcher fetches content for one platform
type Fetcher interface {
	Platform() types.Platform
	FetchNewContent(ctx context.Context, account *models.TrackedAccount, existing models.DedupIndex) (*Result, error)
}

// Result is the outcome of one fetch. New holds unseen items newest first,
// Refreshed holds updated metrics for already-known items.
type Result struct {
	New              []*models.VideoRecord
	Refreshed        []*models.VideoRecord
	Profile          *models.ProfileInfo
	BatchesRequested []int
	Partial          bool // a batch failed and escalation stopped early
}

// Options configures platform fetchers
type Options struct {
	BatchSizes []int
	ProxyGroup string
	Now        func() time.Time
}

// platformDef holds everything that differs between platforms
type platformDef struct {
	platform types.Platform

	// refreshURL builds the post URL used by bulk refresh. Nil disables refresh.
	refreshURL func(account *models.TrackedAccount, videoID, storedURL string) string

	normalize func(item provider.RawItem, account *models.TrackedAccount, now time.Time) *models.VideoRecord
	profile   func(item provider.RawItem) *models.ProfileInfo
}

type platformFetcher struct {
	def    platformDef
	runner provider.Runner
	sizes  []int
	proxy  string
	now    func() time.Time
}

func newPlatformFetcher(def platformDef, runner provider.Runner, opts Options) *platformFetcher {
	sizes := opts.BatchSizes
	if len(sizes) == 0 {
		sizes = DefaultBatchSizes
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &platformFetcher{def: def, runner: runner, sizes: sizes, proxy: opts.ProxyGroup, now: now}
}

func (f *platformFetcher) Platform() types.Platform {
	return f.def.platform
}

// FetchNewContent runs discovery (automatic accounts only) and bulk refresh
func (f *platformFetcher) FetchNewContent(ctx context.Context, account *models.TrackedAccount, existing models.DedupIndex) (*Result, error) {
	logger := logging.FromContext(ctx).WithField("component", "fetcher")
	result := &Result{}

	if account.IsStatic() {
		logger.Info("Static account, skipping discovery")
	} else {
		d := discover(ctx, f.sizes, account.MaxVideos, existing, f.batch(account), logger)
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewProviderFetchError(f.def.platform, account.Username, err)
		}
		result.New = d.collected
		result.BatchesRequested = d.requested
		result.Partial = d.partial
		result.Profile = d.profile
	}

	if f.def.refreshURL != nil && len(existing) > 0 {
		refreshed, profile, err := f.refresh(ctx, account, existing)
		if err != nil {
			logger.WithError(err).Warn("Bulk refresh failed, keeping stored metrics")
		} else {
			result.Refreshed = refreshed
			if result.Profile == nil {
				result.Profile = profile
			}
		}
	}

	logger.WithFields(map[string]interface{}{
		"new":       len(result.New),
		"refreshed": len(result.Refreshed),
		"batches":   result.BatchesRequested,
		"partial":   result.Partial,
	}).Info("Fetch finished")

	return result, nil
}

// batch returns the function that fetches and normalizes the newest size items
func (f *platformFetcher) batch(account *models.TrackedAccount) batchFunc {
	return func(ctx context.Context, size int) (*batch, error) {
		items, err := f.runner.Run(ctx, f.def.platform, provider.Request{
			Target:    account.Username,
			Limit:     size,
			SortOrder: provider.SortNewest,
			Proxy:     f.proxy,
		})
		if err != nil {
			return nil, err
		}
		return f.normalizeAll(ctx, items, account), nil
	}
}

func (f *platformFetcher) normalizeAll(ctx context.Context, items []provider.RawItem, account *models.TrackedAccount) *batch {
	now := f.now().UTC()
	b := &batch{returned: len(items)}
	for _, item := range items {
		if b.profile == nil && f.def.profile != nil {
			b.profile = f.def.profile(item)
		}
		rec := f.def.normalize(item, account, now)
		if rec == nil || rec.VideoID == "" {
			logging.FromContext(ctx).Warn("Dropping provider item without an id")
			continue
		}
		rec.Platform = f.def.platform
		rec.AccountID = account.ID
		rec.Scope = account.Scope
		b.records = append(b.records, rec)
	}
	return b
}

func (f *platformFetcher) refresh(ctx context.Context, account *models.TrackedAccount, existing models.DedupIndex) ([]*models.VideoRecord, *models.ProfileInfo, error) {
	ids := existing.IDs()
	urls := make([]string, 0, len(ids))
	for _, id := range ids {
		if u := f.def.refreshURL(account, id, existing[id]); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil, nil, nil
	}

	items, err := f.runner.Run(ctx, f.def.platform, provider.Request{
		Target: account.Username,
		Limit:  len(urls),
		Proxy:  f.proxy,
		URLs:   urls,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("refresh %d %s posts: %w", len(urls), f.def.platform, err)
	}

	b := f.normalizeAll(ctx, items, account)
	refreshed := make([]*models.VideoRecord, 0, len(b.records))
	done := make(map[string]struct{}, len(b.records))
	for _, rec := range b.records {
		if !existing.Contains(rec.VideoID) {
			continue
		}
		if _, dup := done[rec.VideoID]; dup {
			continue
		}
		done[rec.VideoID] = struct{}{}
		refreshed = append(refreshed, rec)
	}
	return refreshed, b.profile, nil
}

// Registry dispatches to the fetcher for a platform
type Registry struct {
	fetchers map[types.Platform]Fetcher
}

// NewRegistry builds fetchers for every supported platform on top of runner
func NewRegistry(runner provider.Runner, opts Options) *Registry {
	r := &Registry{fetchers: make(map[types.Platform]Fetcher)}
	for _, def := range []platformDef{tiktokDef(), instagramDef(), youtubeDef(), twitterDef()} {
		r.Register(newPlatformFetcher(def, runner, opts))
	}
	return r
}

// Register adds or replaces the fetcher for its platform
func (r *Registry) Register(f Fetcher) {
	r.fetchers[f.Platform()] = f
}

// Get returns the fetcher for platform
func (r *Registry) Get(platform types.Platform) (Fetcher, error) {
	f, ok := r.fetchers[platform]
	if !ok {
		return nil, apperrors.NewInvalidParameterError("platform", fmt.Sprintf("unsupported platform %q", platform))
	}
	return f, nil
}
