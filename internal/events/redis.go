package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// RedisPublisher sends each event as a JSON message on a pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	log     *zap.SugaredLogger
}

func NewRedisPublisher(client redis.UniversalClient, channel string, log *zap.SugaredLogger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, log: log}
}

// Publish pipelines all events in one round trip. The caller's context may
// already be done once a request has been answered, so publishing uses a
// detached context with its own timeout.
func (p *RedisPublisher) Publish(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	pipe := p.client.Pipeline()
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			p.log.Errorw("failed to encode invalidation event", "kind", e.Kind, "id", e.ID, "error", err)
			continue
		}
		pipe.Publish(ctx, p.channel, payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warnw("failed to publish invalidation events", "channel", p.channel, "count", len(events), "error", err)
	}
}
