package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/provider"
	"github.com/creator-sync/internal/types"
)

type runnerCall struct {
	platform types.Platform
	req      provider.Request
}

// fakeRunner answers discovery calls from history and refresh calls from refreshed
type fakeRunner struct {
	history    []provider.RawItem
	historyErr error
	refreshed  []provider.RawItem
	refreshErr error
	calls      []runnerCall
}

func (r *fakeRunner) Run(ctx context.Context, platform types.Platform, req provider.Request) ([]provider.RawItem, error) {
	r.calls = append(r.calls, runnerCall{platform: platform, req: req})
	if len(req.URLs) > 0 {
		return r.refreshed, r.refreshErr
	}
	if r.historyErr != nil {
		return nil, r.historyErr
	}
	n := req.Limit
	if n > len(r.history) {
		n = len(r.history)
	}
	return r.history[:n], nil
}

func (r *fakeRunner) discoveryCalls() int {
	n := 0
	for _, c := range r.calls {
		if len(c.req.URLs) == 0 {
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testAccount(platform types.Platform) *models.TrackedAccount {
	return &models.TrackedAccount{
		ID:          "acc-1",
		Scope:       models.Scope{OrgID: "org-1", ProjectID: "proj-1"},
		Platform:    platform,
		Username:    "creator",
		CreatorType: types.CreatorAutomatic,
	}
}

func newTestFetcher(t *testing.T, platform types.Platform, runner provider.Runner) Fetcher {
	t.Helper()
	reg := NewRegistry(runner, Options{Now: func() time.Time { return fixedNow }})
	f, err := reg.Get(platform)
	require.NoError(t, err)
	return f
}

func tiktokItem(id string, plays float64) provider.RawItem {
	return provider.RawItem{
		"id":            id,
		"webVideoUrl":   "https://www.tiktok.com/@creator/video/" + id,
		"text":          "clip " + id,
		"createTimeISO": "2026-02-01T10:00:00.000Z",
		"playCount":     plays,
		"diggCount":     float64(10),
		"commentCount":  float64(2),
		"shareCount":    float64(1),
		"collectCount":  float64(3),
		"videoMeta":     map[string]any{"coverUrl": "https://p16-sign.tiktokcdn.com/" + id + ".heic", "duration": float64(31)},
		"authorMeta":    map[string]any{"nickName": "Creator", "avatar": "https://p16.tiktokcdn.com/a.jpg", "fans": float64(1200), "verified": true},
	}
}

func TestFetchNewContent_EndToEndShortBatch(t *testing.T) {
	runner := &fakeRunner{history: []provider.RawItem{
		tiktokItem("1", 100), tiktokItem("2", 200), tiktokItem("3", 300), tiktokItem("4", 400),
	}}
	f := newTestFetcher(t, types.PlatformTikTok, runner)

	res, err := f.FetchNewContent(context.Background(), testAccount(types.PlatformTikTok), models.DedupIndex{})
	require.NoError(t, err)

	assert.Len(t, res.New, 4)
	assert.Equal(t, []int{5}, res.BatchesRequested)
	assert.Equal(t, 1, runner.discoveryCalls())
	assert.Empty(t, res.Refreshed)

	first := res.New[0]
	assert.Equal(t, "1", first.VideoID)
	assert.Equal(t, types.PlatformTikTok, first.Platform)
	assert.Equal(t, "acc-1", first.AccountID)
	assert.Equal(t, "org-1", first.Scope.OrgID)
	assert.Equal(t, 31, first.Duration)
	assert.Equal(t, int64(100), first.Metrics.Views)
	assert.Equal(t, int64(3), first.Metrics.Saves)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), first.UploadDate)
	assert.Empty(t, first.Thumbnail)
	assert.Contains(t, first.RemoteThumbnailURL, "tiktokcdn.com")

	require.NotNil(t, res.Profile)
	assert.Equal(t, "Creator", res.Profile.DisplayName)
	assert.Equal(t, int64(1200), res.Profile.FollowerCount)
	assert.True(t, res.Profile.IsVerified)
}

func TestFetchNewContent_RefreshesKnownVideos(t *testing.T) {
	runner := &fakeRunner{
		history:   []provider.RawItem{tiktokItem("9", 1), tiktokItem("1", 1)},
		refreshed: []provider.RawItem{tiktokItem("1", 5000), tiktokItem("unknown", 1)},
	}
	f := newTestFetcher(t, types.PlatformTikTok, runner)

	existing := models.DedupIndex{"1": ""}
	res, err := f.FetchNewContent(context.Background(), testAccount(types.PlatformTikTok), existing)
	require.NoError(t, err)

	require.Len(t, res.New, 1)
	assert.Equal(t, "9", res.New[0].VideoID)
	require.Len(t, res.Refreshed, 1)
	assert.Equal(t, int64(5000), res.Refreshed[0].Metrics.Views)

	last := runner.calls[len(runner.calls)-1]
	assert.Equal(t, []string{"https://www.tiktok.com/@creator/video/1"}, last.req.URLs)
}

func TestFetchNewContent_RefreshFailureIsNotFatal(t *testing.T) {
	runner := &fakeRunner{
		history:    []provider.RawItem{tiktokItem("1", 1)},
		refreshErr: errors.New("actor crashed"),
	}
	f := newTestFetcher(t, types.PlatformTikTok, runner)

	res, err := f.FetchNewContent(context.Background(), testAccount(types.PlatformTikTok), models.DedupIndex{"1": "u"})
	require.NoError(t, err)
	assert.Empty(t, res.New)
	assert.Empty(t, res.Refreshed)
}

func TestFetchNewContent_StaticAccountSkipsDiscovery(t *testing.T) {
	runner := &fakeRunner{
		history:   []provider.RawItem{tiktokItem("2", 1)},
		refreshed: []provider.RawItem{tiktokItem("1", 77)},
	}
	f := newTestFetcher(t, types.PlatformTikTok, runner)
	account := testAccount(types.PlatformTikTok)
	account.CreatorType = types.CreatorStatic

	res, err := f.FetchNewContent(context.Background(), account, models.DedupIndex{"1": ""})
	require.NoError(t, err)

	assert.Empty(t, res.New)
	assert.Equal(t, 0, runner.discoveryCalls())
	require.Len(t, res.Refreshed, 1)
	assert.Equal(t, int64(77), res.Refreshed[0].Metrics.Views)
}

type failingRunner struct{}

func (failingRunner) Run(ctx context.Context, platform types.Platform, req provider.Request) ([]provider.RawItem, error) {
	return nil, errors.New("timeout")
}

func TestFetchNewContent_FirstBatchFailureIsPartial(t *testing.T) {
	f := newTestFetcher(t, types.PlatformYouTube, failingRunner{})

	res, err := f.FetchNewContent(context.Background(), testAccount(types.PlatformYouTube), models.DedupIndex{})
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Empty(t, res.New)
	assert.Equal(t, []int{5}, res.BatchesRequested)
}

func TestFetchNewContent_CancelledRunIsError(t *testing.T) {
	f := newTestFetcher(t, types.PlatformYouTube, failingRunner{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchNewContent(ctx, testAccount(types.PlatformYouTube), models.DedupIndex{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeProviderFetch))
}

func TestFetchNewContent_FirstBatchFailureStillRefreshes(t *testing.T) {
	runner := &fakeRunner{
		historyErr: errors.New("timeout"),
		refreshed:  []provider.RawItem{tiktokItem("1", 4200)},
	}
	f := newTestFetcher(t, types.PlatformTikTok, runner)

	res, err := f.FetchNewContent(context.Background(), testAccount(types.PlatformTikTok), models.DedupIndex{"1": ""})
	require.NoError(t, err)

	assert.True(t, res.Partial)
	assert.Empty(t, res.New)
	assert.Equal(t, 1, runner.discoveryCalls())
	require.Len(t, res.Refreshed, 1)
	assert.Equal(t, int64(4200), res.Refreshed[0].Metrics.Views)
}

func TestFetchNewContent_DropsItemsWithoutID(t *testing.T) {
	runner := &fakeRunner{history: []provider.RawItem{
		{"title": "no id"},
		{"id": "abc", "title": "Video", "duration": "01:02:03", "date": "2026-01-05"},
	}}
	f := newTestFetcher(t, types.PlatformYouTube, runner)

	res, err := f.FetchNewContent(context.Background(), testAccount(types.PlatformYouTube), models.DedupIndex{})
	require.NoError(t, err)

	require.Len(t, res.New, 1)
	v := res.New[0]
	assert.Equal(t, 3723, v.Duration)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", v.VideoURL)
	assert.Equal(t, "https://i.ytimg.com/vi/abc/hqdefault.jpg", v.RemoteThumbnailURL)
	assert.Equal(t, []int{5}, res.BatchesRequested)
}

func TestRegistry_UnknownPlatform(t *testing.T) {
	reg := NewRegistry(&fakeRunner{}, Options{})
	_, err := reg.Get(types.Platform("vine"))
	assert.Error(t, err)
}
