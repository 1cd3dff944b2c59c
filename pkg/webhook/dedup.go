package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisDeduper struct {
	client *redis.Client
	prefix string
}

// NewRedisDeduper returns a Deduper backed by Redis SET NX with a TTL, so
// processed event IDs survive process restarts and expire on their own.
func NewRedisDeduper(client *redis.Client, keyPrefix string) Deduper {
	if keyPrefix == "" {
		keyPrefix = "webhook:event:"
	}
	return &redisDeduper{client: client, prefix: keyPrefix}
}

func (d *redisDeduper) MarkSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+eventID, 1, ttl).Result()
}
