package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client)
}

func TestLockerAcquireAndRelease(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, PlannerLockKey(), time.Second)
	require.NoError(t, err)
	release()

	// Released locks can be taken again immediately.
	release, err = locker.Acquire(ctx, PlannerLockKey(), time.Second)
	require.NoError(t, err)
	release()
}

func TestLockerBlocksConcurrentHolder(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, DispatchLockKey(42), 5*time.Second)
	require.NoError(t, err)
	defer release()

	shortCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(shortCtx, DispatchLockKey(42), time.Second)
	require.Error(t, err)

	// A different order is an independent lock.
	otherRelease, err := locker.Acquire(ctx, DispatchLockKey(43), time.Second)
	require.NoError(t, err)
	otherRelease()
}

func TestLockerReleaseIsIdempotent(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, PlannerLockKey(), time.Second)
	require.NoError(t, err)
	release()
	release()

	release, err = locker.Acquire(ctx, PlannerLockKey(), time.Second)
	require.NoError(t, err)
	release()
}
