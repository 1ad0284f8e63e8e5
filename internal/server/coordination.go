package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wykonczymy/internal/config"
	"wykonczymy/internal/events"
	"wykonczymy/internal/lock"
	"wykonczymy/internal/logger"
)

// Coordination is the cross-process plumbing shared by the API and the
// operator CLI: where invalidation events go and which lock serializes
// reconciliation runs.
type Coordination struct {
	Publisher events.Publisher
	Locker    lock.Locker
	client    *redis.Client
}

// NewCoordination connects to Redis when REDIS_ADDR is set. Without it both
// the lock and the events stay in-process, which is only correct for a
// single replica.
func NewCoordination(ctx context.Context, cfg *config.Config) (*Coordination, error) {
	log := logger.Named("events")
	logPublisher := events.NewLogPublisher(log)

	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, using in-process lock and log-only invalidation events")
		return &Coordination{Publisher: logPublisher, Locker: lock.NewLocal()}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Coordination{
		Publisher: events.Multi{logPublisher, events.NewRedisPublisher(client, cfg.InvalidationChannel, log)},
		Locker:    lock.NewRedis(client, cfg.ReconcileLockTTL),
		client:    client,
	}, nil
}

// Ping checks the Redis connection, if any.
func (c *Coordination) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis connection, if any.
func (c *Coordination) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
