package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, time.Minute), mr
}

func lockers(t *testing.T) map[string]Locker {
	r, _ := newRedisLocker(t)
	return map[string]Locker{
		"local": NewLocal(),
		"redis": r,
	}
}

func TestTryLock_Exclusive(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			h, err := l.TryLock(ctx, "reconcile")
			require.NoError(t, err)

			_, err = l.TryLock(ctx, "reconcile")
			assert.ErrorIs(t, err, ErrHeld)

			other, err := l.TryLock(ctx, "another-key")
			require.NoError(t, err)
			require.NoError(t, other.Unlock(ctx))

			require.NoError(t, h.Unlock(ctx))

			again, err := l.TryLock(ctx, "reconcile")
			require.NoError(t, err)
			require.NoError(t, again.Unlock(ctx))
		})
	}
}

func TestUnlock_Twice(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h, err := l.TryLock(ctx, "k")
			require.NoError(t, err)
			require.NoError(t, h.Unlock(ctx))
			assert.Error(t, h.Unlock(ctx))
		})
	}
}

func TestLocal_ConcurrentTryLock(t *testing.T) {
	l := NewLocal()
	var acquired atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.TryLock(context.Background(), "k"); err == nil {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())
}

func TestRedis_ExpiredLockCanBeRetaken(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	_, err := l.TryLock(ctx, "reconcile")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	h, err := l.TryLock(ctx, "reconcile")
	require.NoError(t, err)
	require.NoError(t, h.Unlock(ctx))
}

func TestLocal_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal().TryLock(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
