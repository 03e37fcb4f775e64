// Package lease serializes sync runs per account with a Redis-held lease.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLeaseHeld is returned when another run holds the account's lease
var ErrLeaseHeld = errors.New("lease held by another run")

// ErrLeaseLost is returned by Release when the lease expired or was taken over
var ErrLeaseLost = errors.New("lease no longer owned")

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquirer hands out account leases
type Acquirer interface {
	Acquire(ctx context.Context, accountID string, ttl time.Duration) (*Lease, error)
}

// Locker hands out account leases backed by Redis
type Locker struct {
	client redis.UniversalClient
	prefix string
}

// NewLocker creates a locker using keys under prefix
func NewLocker(client redis.UniversalClient, prefix string) *Locker {
	if prefix == "" {
		prefix = "creator-sync:lease:"
	}
	return &Locker{client: client, prefix: prefix}
}

// Lease is a held account lease
type Lease struct {
	client redis.UniversalClient
	key    string
	token  string
}

// Acquire takes the lease for accountID or returns ErrLeaseHeld
func (l *Locker) Acquire(ctx context.Context, accountID string, ttl time.Duration) (*Lease, error) {
	key := l.prefix + accountID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	return &Lease{client: l.client, key: key, token: token}, nil
}

// Release gives the lease back if it is still ours
func (le *Lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, le.client, []string{le.key}, le.token).Int()
	if err != nil {
		return fmt.Errorf("release lease %s: %w", le.key, err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}
