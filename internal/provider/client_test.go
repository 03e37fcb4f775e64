package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creator-sync/internal/retry"
	"github.com/creator-sync/internal/types"
)

func testRetry() *retry.Config {
	return &retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestClient_RunPostsActorInput(t *testing.T) {
	var gotPath, gotToken string
	var gotInput map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotToken = r.Header.Get("Authorization")
		assert.Empty(t, r.URL.RawQuery)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotInput))
		_, _ = w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Token: "secret", RPS: 100, Retry: testRetry()})
	items, err := c.Run(context.Background(), types.PlatformTikTok, Request{
		Target: "@creator", Limit: 5, SortOrder: SortNewest, Proxy: "RESIDENTIAL",
	})

	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "/acts/clockworks~tiktok-scraper/run-sync-get-dataset-items", gotPath)
	assert.Equal(t, "Bearer secret", gotToken)
	assert.Equal(t, []any{"creator"}, gotInput["profiles"])
	assert.EqualValues(t, 5, gotInput["resultsPerPage"])
	assert.Equal(t, "latest", gotInput["profileSorting"])
	assert.NotNil(t, gotInput["proxyConfiguration"])
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RPS: 100, Retry: testRetry()})
	items, err := c.Run(context.Background(), types.PlatformYouTube, Request{Target: "c", Limit: 5})

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RPS: 100, Retry: testRetry()})
	_, err := c.Run(context.Background(), types.PlatformTwitter, Request{Target: "c", Limit: 5})

	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RPS: 100, Retry: testRetry()})
	_, err := c.Run(context.Background(), types.PlatformInstagram, Request{Target: "c", Limit: 5})
	assert.Error(t, err)
}

func TestBuildInput_RefreshByURL(t *testing.T) {
	urls := []string{"https://www.instagram.com/p/a/", "https://www.instagram.com/p/b/"}
	input, err := BuildInput(types.PlatformInstagram, Request{URLs: urls})
	require.NoError(t, err)
	assert.Equal(t, urls, input["directUrls"])
	assert.Equal(t, 2, input["resultsLimit"])
	assert.NotContains(t, input, "proxyConfiguration")
}

func TestBuildInput_UnknownPlatform(t *testing.T) {
	_, err := BuildInput(types.Platform("myspace"), Request{Target: "x"})
	assert.Error(t, err)
}

func TestLoadCatalog_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actors:\n  youtube: someone~yt-scraper\n"), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)

	actor, err := catalog.Actor(types.PlatformYouTube)
	require.NoError(t, err)
	assert.Equal(t, "someone~yt-scraper", actor)

	actor, err = catalog.Actor(types.PlatformTikTok)
	require.NoError(t, err)
	assert.Equal(t, "clockworks~tiktok-scraper", actor)
}

func TestLoadCatalog_RejectsUnknownPlatform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actors:\n  myspace: x\n"), 0o600))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

type stubBudget struct {
	limits []int
	err    error
}

func (b *stubBudget) Wait(ctx context.Context, platform types.Platform, limit int) error {
	b.limits = append(b.limits, limit)
	return b.err
}

func TestClient_ChargesBudgetOncePerRun(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	budget := &stubBudget{}
	c := NewClient(Options{BaseURL: srv.URL, RPS: 100, Retry: testRetry(), Budget: budget})
	_, err := c.Run(context.Background(), types.PlatformInstagram, Request{URLs: []string{"a", "b", "c"}})

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []int{3}, budget.limits, "retries are not charged again and URL count sets the limit")
}

func TestClient_BudgetExhaustedSkipsCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	exhausted := errors.New("exhausted")
	c := NewClient(Options{BaseURL: srv.URL, RPS: 100, Retry: testRetry(), Budget: &stubBudget{err: exhausted}})
	_, err := c.Run(context.Background(), types.PlatformTikTok, Request{Target: "creator", Limit: 5})

	assert.ErrorIs(t, err, exhausted)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClient_NetworkErrorDoesNotLeakToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: addr, Token: "SUPERSECRET", RPS: 100, Retry: testRetry()})
	_, err := c.Run(context.Background(), types.PlatformTikTok, Request{Target: "creator", Limit: 5})

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPERSECRET")
}

func TestClient_KeepsLargeNumericIDsExact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":7301234567890123457,"playCount":12}]`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, RPS: 100, Retry: testRetry()})
	items, err := c.Run(context.Background(), types.PlatformTikTok, Request{Target: "creator", Limit: 5})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, json.Number("7301234567890123457"), items[0]["id"])
}
