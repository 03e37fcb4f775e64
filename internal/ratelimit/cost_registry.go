package ratelimit

import (
	"sync"

	"github.com/creator-sync/internal/types"
)

// Default run costs. Actors bill per run plus per returned item, so a run is
// charged its fixed cost plus one unit per requested item.
const (
	DefaultRunCost     = 5
	DefaultPerItemCost = 1
)

// Cost is what one actor run is charged against the budget.
type Cost struct {
	PerRun  int `yaml:"perRun"`
	PerItem int `yaml:"perItem"`
}

// Units returns the charge for a run requesting limit items.
func (c Cost) Units(limit int) int {
	if limit < 0 {
		limit = 0
	}
	return c.PerRun + c.PerItem*limit
}

// CostRegistry maps platforms to run costs. It is safe for concurrent use.
type CostRegistry struct {
	mu       sync.RWMutex
	costs    map[types.Platform]Cost
	fallback Cost
}

// NewCostRegistry creates a registry. Profile-heavy actors cost more per run.
func NewCostRegistry(overrides map[types.Platform]Cost) *CostRegistry {
	costs := map[types.Platform]Cost{
		types.PlatformTikTok:    {PerRun: DefaultRunCost, PerItem: DefaultPerItemCost},
		types.PlatformInstagram: {PerRun: 2 * DefaultRunCost, PerItem: DefaultPerItemCost},
		types.PlatformYouTube:   {PerRun: DefaultRunCost, PerItem: DefaultPerItemCost},
		types.PlatformTwitter:   {PerRun: DefaultRunCost, PerItem: DefaultPerItemCost},
	}
	for p, c := range overrides {
		costs[p] = c
	}
	return &CostRegistry{
		costs:    costs,
		fallback: Cost{PerRun: DefaultRunCost, PerItem: DefaultPerItemCost},
	}
}

// Get returns the cost for platform, or the default for unknown platforms.
func (r *CostRegistry) Get(platform types.Platform) Cost {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.costs[platform]; ok {
		return c
	}
	return r.fallback
}

// Set overrides the cost for platform.
func (r *CostRegistry) Set(platform types.Platform, c Cost) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.costs[platform] = c
}
