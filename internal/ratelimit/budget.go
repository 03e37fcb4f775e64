package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/types"
)

// ErrBudgetExhausted is returned when no budget frees up within the max wait.
var ErrBudgetExhausted = errors.New("provider budget exhausted")

// DefaultMaxWait bounds how long a run waits for budget.
const DefaultMaxWait = 90 * time.Second

type priorityKey struct{}

// WithPriority tags ctx with the pool that provider runs made under it draw from.
func WithPriority(ctx context.Context, p Priority) context.Context {
	return context.WithValue(ctx, priorityKey{}, p)
}

// PriorityFromContext returns the tagged priority, PriorityLow by default.
func PriorityFromContext(ctx context.Context) Priority {
	if p, ok := ctx.Value(priorityKey{}).(Priority); ok {
		return p
	}
	return PriorityLow
}

// PriorityForOrigin maps who started a sync to its budget pool.
func PriorityForOrigin(origin types.TriggerOrigin) Priority {
	if origin == types.OriginUser {
		return PriorityHigh
	}
	return PriorityLow
}

// Budget gates provider runs on the shared tracker.
type Budget struct {
	tracker *BudgetTracker
	costs   *CostRegistry
	maxWait time.Duration
}

// NewBudget creates a budget gate. A nil costs uses NewCostRegistry(nil).
func NewBudget(tracker *BudgetTracker, costs *CostRegistry, maxWait time.Duration) *Budget {
	if costs == nil {
		costs = NewCostRegistry(nil)
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Budget{tracker: tracker, costs: costs, maxWait: maxWait}
}

// Wait blocks until the run is charged or the max wait or ctx runs out.
func (b *Budget) Wait(ctx context.Context, platform types.Platform, limit int) error {
	units := b.costs.Get(platform).Units(limit)
	priority := PriorityFromContext(ctx)
	deadline := time.Now().Add(b.maxWait)

	for attempt := 1; ; attempt++ {
		ok, wait := b.tracker.TryConsume(ctx, units, priority)
		if ok {
			return nil
		}
		if time.Now().Add(wait).After(deadline) {
			logging.FromContext(ctx).WithFields(map[string]interface{}{
				"platform": string(platform),
				"units":    units,
				"priority": priority.String(),
				"attempts": attempt,
			}).Warn("Provider budget exhausted")
			return ErrBudgetExhausted
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
