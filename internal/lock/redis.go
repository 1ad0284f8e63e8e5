package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "wykonczymy:lock:"

// Redis is a Locker backed by a redsync mutex. Expiry bounds how long a
// crashed holder can keep the lock.
type Redis struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

func NewRedis(client redis.UniversalClient, expiry time.Duration) *Redis {
	return &Redis{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
	}
}

func (r *Redis) TryLock(ctx context.Context, key string) (Handle, error) {
	mutex := r.rs.NewMutex(
		keyPrefix+key,
		redsync.WithExpiry(r.expiry),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	return &redisHandle{mutex: mutex}, nil
}

type redisHandle struct {
	mutex *redsync.Mutex
}

func (h *redisHandle) Unlock(ctx context.Context) error {
	ok, err := h.mutex.UnlockContext(ctx)
	if err != nil {
		return fmt.Errorf("release %s: %w", h.mutex.Name(), err)
	}
	if !ok {
		return ErrNotHeld
	}
	return nil
}
