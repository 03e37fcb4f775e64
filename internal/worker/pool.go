// Package worker runs independent tasks with bounded concurrency.
package worker

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the number of tasks run concurrently when none is configured
const DefaultLimit = 4

// Pool runs tasks with at most limit in flight. A failing task never cancels
// its siblings; every task's error is reported in its own slot.
type Pool struct {
	limit int
}

// NewPool creates a pool. limit <= 0 uses DefaultLimit.
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Pool{limit: limit}
}

// Limit returns the concurrency bound
func (p *Pool) Limit() int {
	return p.limit
}

// Run calls fn for each index in [0, n) and returns the per-index errors.
// A panicking task is reported as an error in its slot.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	var g errgroup.Group
	g.SetLimit(p.limit)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("task %d panicked: %v", i, r)
				}
			}()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Failed counts the non-nil errors returned by Run
func Failed(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
