package fetcher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
)

// fakeHistory serves the newest size items of a creator's history
type fakeHistory struct {
	ids      []string
	calls    []int
	failFrom int // 1-based call number that starts failing, 0 never
}

func newFakeHistory(n int) *fakeHistory {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("v%03d", i)
	}
	return &fakeHistory{ids: ids}
}

func (h *fakeHistory) fetch(ctx context.Context, size int) (*batch, error) {
	h.calls = append(h.calls, size)
	if h.failFrom > 0 && len(h.calls) >= h.failFrom {
		return nil, errors.New("provider unavailable")
	}
	n := size
	if n > len(h.ids) {
		n = len(h.ids)
	}
	b := &batch{returned: n}
	for _, id := range h.ids[:n] {
		b.records = append(b.records, &models.VideoRecord{VideoID: id})
	}
	return b, nil
}

// persistedFrom marks ids[k:] as already stored
func persistedFrom(ids []string, k int) models.DedupIndex {
	idx := models.DedupIndex{}
	if k < 0 {
		return idx
	}
	for _, id := range ids[k:] {
		idx[id] = ""
	}
	return idx
}

func videoIDs(records []*models.VideoRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.VideoID
	}
	return out
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func TestDiscover_Scenarios(t *testing.T) {
	logger := logging.NewNopLogger()
	sizes := []int{5, 10, 15, 20}

	tests := []struct {
		name      string
		history   int
		boundary  int // index of the newest persisted item, -1 for none
		maxNew    int
		wantNew   int
		wantCalls []int
	}{
		{name: "empty history", history: 0, boundary: -1, wantNew: 0, wantCalls: []int{5}},
		{name: "short first batch", history: 4, boundary: -1, wantNew: 4, wantCalls: []int{5}},
		{name: "boundary in first batch", history: 30, boundary: 2, wantNew: 2, wantCalls: []int{5}},
		{name: "boundary at head", history: 30, boundary: 0, wantNew: 0, wantCalls: []int{5}},
		{name: "boundary in third batch", history: 30, boundary: 12, wantNew: 12, wantCalls: []int{5, 10, 15}},
		{name: "no boundary, long history", history: 100, boundary: -1, wantNew: 20, wantCalls: []int{5, 10, 15, 20}},
		{name: "end of history mid escalation", history: 12, boundary: -1, wantNew: 12, wantCalls: []int{5, 10, 15}},
		{name: "exact batch size escalates", history: 10, boundary: -1, wantNew: 10, wantCalls: []int{5, 10, 15}},
		{name: "max videos caps", history: 100, boundary: -1, maxNew: 7, wantNew: 7, wantCalls: []int{5, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFakeHistory(tt.history)
			d := discover(context.Background(), sizes, tt.maxNew, persistedFrom(h.ids, tt.boundary), h.fetch, logger)

			assert.Len(t, d.collected, tt.wantNew)
			assert.Equal(t, tt.wantCalls, h.calls)
			assert.Equal(t, tt.wantCalls, d.requested)
			assert.Equal(t, h.ids[:tt.wantNew], videoIDs(d.collected))
			assert.False(t, d.partial)
		})
	}
}

func TestDiscover_FirstBatchFailureIsPartial(t *testing.T) {
	h := newFakeHistory(30)
	h.failFrom = 1

	d := discover(context.Background(), []int{5, 10}, 0, models.DedupIndex{}, h.fetch, logging.NewNopLogger())
	assert.True(t, d.partial)
	assert.Empty(t, d.collected)
	assert.Equal(t, []int{5}, h.calls)
	assert.Equal(t, []int{5}, d.requested)
}

func TestDiscover_LaterBatchFailureKeepsPartialResults(t *testing.T) {
	h := newFakeHistory(30)
	h.failFrom = 2

	d := discover(context.Background(), []int{5, 10, 15}, 0, models.DedupIndex{}, h.fetch, logging.NewNopLogger())
	assert.True(t, d.partial)
	assert.Equal(t, h.ids[:5], videoIDs(d.collected))
	assert.Equal(t, []int{5, 10}, h.calls)
}

func TestScanBatch_ThreadsSeenSet(t *testing.T) {
	records := []*models.VideoRecord{{VideoID: "a"}, {VideoID: "b"}, {VideoID: "c"}}
	seen := seenSet{"a": {}}

	acc, seen, boundary := scanBatch(records, models.DedupIndex{"c": ""}, seen, nil, 0)

	assert.True(t, boundary)
	assert.Equal(t, []string{"b"}, videoIDs(acc))
	assert.Contains(t, seen, "b")
	assert.NotContains(t, seen, "c")
}

func TestDiscover_Properties(t *testing.T) {
	sizes := []int{5, 10, 15, 20}
	logger := logging.NewNopLogger()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	// Calls exactly the smallest prefix of sizes that reaches the boundary, the
	// end of history or the cap, and collects exactly the unseen prefix
	properties.Property("collects the newest unseen prefix with the smallest batch prefix", prop.ForAll(
		func(historyLen, boundary, maxNew int) bool {
			h := newFakeHistory(historyLen)
			if boundary >= historyLen {
				boundary = -1
			}
			d := discover(context.Background(), sizes, maxNew, persistedFrom(h.ids, boundary), h.fetch, logger)
			if !slices.Equal(h.calls, expectedCalls(sizes, historyLen, boundary, maxNew)) {
				return false
			}

			known := historyLen
			if boundary >= 0 {
				known = boundary
			}
			want := minInt(known, sizes[len(sizes)-1])
			if maxNew > 0 {
				want = minInt(want, maxNew)
			}

			got := videoIDs(d.collected)
			if len(got) != want {
				return false
			}
			for i, id := range got {
				if id != h.ids[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 60),
		gen.IntRange(-1, 60),
		gen.IntRange(0, 25),
	))

	// No collected item is already persisted and none repeats
	properties.Property("results are disjoint from the index and unique", prop.ForAll(
		func(historyLen, boundary int) bool {
			h := newFakeHistory(historyLen)
			if boundary >= historyLen {
				boundary = -1
			}
			persisted := persistedFrom(h.ids, boundary)
			d := discover(context.Background(), sizes, 0, persisted, h.fetch, logger)
			seen := map[string]bool{}
			for _, r := range d.collected {
				if persisted.Contains(r.VideoID) || seen[r.VideoID] {
					return false
				}
				seen[r.VideoID] = true
			}
			return true
		},
		gen.IntRange(0, 60),
		gen.IntRange(-1, 60),
	))

	properties.TestingRun(t)
}

// expectedCalls is sizes[:j+1] for the first j whose batch reaches the
// boundary, runs past the end of history or fills the cap
func expectedCalls(sizes []int, historyLen, boundary, maxNew int) []int {
	for j, size := range sizes {
		if boundary >= 0 && boundary < size {
			return sizes[:j+1]
		}
		if historyLen < size {
			return sizes[:j+1]
		}
		if maxNew > 0 && size >= maxNew {
			return sizes[:j+1]
		}
	}
	return sizes
}
