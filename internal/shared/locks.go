package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// PlannerLockKey guards the full production requirement recompute.
func PlannerLockKey() string {
	return "production:planner:lock"
}

// DispatchLockKey serialises dispatch settlement per purchase order.
func DispatchLockKey(orderID int64) string {
	return fmt.Sprintf("orders:%d:dispatch:lock", orderID)
}

// Locker acquires short-lived mutual-exclusion locks backed by Redis.
type Locker struct {
	client *redislock.Client
}

// NewLocker builds a Locker on top of the shared Redis client.
func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// Acquire obtains the named lock, retrying briefly before giving up.
// The returned release func is safe to call once.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	})
	if err != nil {
		return nil, fmt.Errorf("shared: obtain lock %s: %w", key, err)
	}
	return func() { _ = lock.Release(context.WithoutCancel(ctx)) }, nil
}
