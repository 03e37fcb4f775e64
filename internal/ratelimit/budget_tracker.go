// Package ratelimit shares the scraping provider's spend budget across every
// service instance. Usage is counted in Redis per fixed window and split into
// a reserved pool for user-triggered refreshes and a shared pool for
// scheduled ones.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget configuration values.
const (
	DefaultTotalBudget    = 2000        // units per window
	DefaultReservedBudget = 800         // reserved for user-triggered syncs
	DefaultWindowSize     = time.Minute // fixed window
	DefaultKeyPrefix      = "creator-sync:budget:"
)

// Priority selects the budget pool a run draws from.
type Priority int

const (
	// PriorityHigh is for user-triggered refreshes (reserved pool).
	PriorityHigh Priority = iota
	// PriorityLow is for scheduled refreshes (shared pool).
	PriorityLow
)

// String returns a string representation of the priority level.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// consumeScript checks both counters and increments them atomically.
var consumeScript = redis.NewScript(`
	local totalKey = KEYS[1]
	local poolKey = KEYS[2]
	local units = tonumber(ARGV[1])
	local totalBudget = tonumber(ARGV[2])
	local poolBudget = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local totalUsed = tonumber(redis.call('GET', totalKey) or '0')
	local poolUsed = tonumber(redis.call('GET', poolKey) or '0')

	if totalUsed + units > totalBudget or poolUsed + units > poolBudget then
		return {0, totalUsed, poolUsed}
	end

	redis.call('INCRBY', totalKey, units)
	redis.call('EXPIRE', totalKey, ttl)
	redis.call('INCRBY', poolKey, units)
	redis.call('EXPIRE', poolKey, ttl)

	return {1, totalUsed + units, poolUsed + units}
`)

// BudgetTracker coordinates provider spend across instances using Redis.
type BudgetTracker struct {
	redis          redis.Cmdable
	prefix         string
	totalBudget    int
	reservedBudget int
	sharedBudget   int
	windowSize     time.Duration
	now            func() time.Time
}

// BudgetTrackerConfig holds configuration for the budget tracker.
type BudgetTrackerConfig struct {
	// Redis is required. The tracker cannot function without it.
	Redis redis.Cmdable

	// TotalBudget is the units allowed per window. Default: 2000.
	TotalBudget int

	// ReservedBudget is the part of TotalBudget kept for PriorityHigh. Default: 800.
	ReservedBudget int

	// WindowSize is the counting window. Default: 1m.
	WindowSize time.Duration

	// KeyPrefix namespaces the Redis counters.
	KeyPrefix string
}

// Usage contains the current window's consumption.
type Usage struct {
	TotalUsed      int       `json:"totalUsed"`
	ReservedUsed   int       `json:"reservedUsed"`
	SharedUsed     int       `json:"sharedUsed"`
	TotalBudget    int       `json:"totalBudget"`
	ReservedBudget int       `json:"reservedBudget"`
	SharedBudget   int       `json:"sharedBudget"`
	WindowStart    time.Time `json:"windowStart"`
}

// Validate checks if the configuration is valid.
func (c *BudgetTrackerConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.TotalBudget < 0 || c.ReservedBudget < 0 {
		return errors.New("budgets cannot be negative")
	}

	total, reserved := c.budgets()
	if reserved > total {
		return fmt.Errorf("reserved budget (%d) cannot exceed total budget (%d)", reserved, total)
	}
	return nil
}

func (c *BudgetTrackerConfig) budgets() (total, reserved int) {
	total, reserved = c.TotalBudget, c.ReservedBudget
	if total == 0 {
		total = DefaultTotalBudget
	}
	if reserved == 0 {
		reserved = DefaultReservedBudget
		if reserved > total {
			reserved = total / 2
		}
	}
	return total, reserved
}

// NewBudgetTracker creates a tracker. Zero values in cfg take the defaults.
func NewBudgetTracker(cfg *BudgetTrackerConfig) (*BudgetTracker, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	total, reserved := cfg.budgets()
	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &BudgetTracker{
		redis:          cfg.Redis,
		prefix:         prefix,
		totalBudget:    total,
		reservedBudget: reserved,
		sharedBudget:   total - reserved,
		windowSize:     windowSize,
		now:            time.Now,
	}, nil
}

func (t *BudgetTracker) windowStart() time.Time {
	return t.now().Truncate(t.windowSize)
}

func (t *BudgetTracker) keys(window time.Time) (totalKey, reservedKey, sharedKey string) {
	ts := strconv.FormatInt(window.UnixMilli(), 10)
	return t.prefix + "total:" + ts, t.prefix + "reserved:" + ts, t.prefix + "shared:" + ts
}

// TryConsume takes units from the pool matching priority. When the pool or
// the total is exhausted it returns false with the time until the next
// window. Redis failures deny the request.
func (t *BudgetTracker) TryConsume(ctx context.Context, units int, priority Priority) (bool, time.Duration) {
	if units <= 0 {
		return true, 0
	}

	window := t.windowStart()
	totalKey, reservedKey, sharedKey := t.keys(window)

	poolKey, poolBudget := sharedKey, t.sharedBudget
	if priority == PriorityHigh {
		poolKey, poolBudget = reservedKey, t.reservedBudget
	}

	ttl := int((2 * t.windowSize).Seconds())
	if ttl < 1 {
		ttl = 1
	}

	result, err := consumeScript.Run(ctx, t.redis, []string{totalKey, poolKey},
		units, t.totalBudget, poolBudget, ttl).Int64Slice()
	if err != nil || len(result) == 0 || result[0] != 1 {
		return false, t.untilNextWindow(window)
	}
	return true, 0
}

func (t *BudgetTracker) untilNextWindow(window time.Time) time.Duration {
	wait := window.Add(t.windowSize).Sub(t.now())
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}

// GetUsage returns the current window's counters. Missing keys count as zero.
func (t *BudgetTracker) GetUsage(ctx context.Context) (*Usage, error) {
	window := t.windowStart()
	totalKey, reservedKey, sharedKey := t.keys(window)

	pipe := t.redis.Pipeline()
	totalCmd := pipe.Get(ctx, totalKey)
	reservedCmd := pipe.Get(ctx, reservedKey)
	sharedCmd := pipe.Get(ctx, sharedKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read budget usage: %w", err)
	}

	return &Usage{
		TotalUsed:      intOrZero(totalCmd),
		ReservedUsed:   intOrZero(reservedCmd),
		SharedUsed:     intOrZero(sharedCmd),
		TotalBudget:    t.totalBudget,
		ReservedBudget: t.reservedBudget,
		SharedBudget:   t.sharedBudget,
		WindowStart:    window,
	}, nil
}

func intOrZero(cmd *redis.StringCmd) int {
	val, err := cmd.Int()
	if err != nil {
		return 0
	}
	return val
}

// AvailableBudget returns what is left in the pool for priority.
func (t *BudgetTracker) AvailableBudget(ctx context.Context, priority Priority) (int, error) {
	usage, err := t.GetUsage(ctx)
	if err != nil {
		return 0, err
	}

	available := t.sharedBudget - usage.SharedUsed
	if priority == PriorityHigh {
		available = t.reservedBudget - usage.ReservedUsed
	}
	if left := t.totalBudget - usage.TotalUsed; left < available {
		available = left
	}
	if available < 0 {
		available = 0
	}
	return available, nil
}

// WindowSize returns the configured window size.
func (t *BudgetTracker) WindowSize() time.Duration {
	return t.windowSize
}
