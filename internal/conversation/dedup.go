package conversation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "inbound:dedup:"

// RedisDeduper caches inbound wire ids that already reached the store, so
// webhook redeliveries are dropped before they touch the database. Ids are
// cached only after the inbound record is durable; a retry after a store
// failure must not look like a duplicate.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper with the given retention window.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

// Seen reports whether the wire id is cached. It never claims the id.
func (d *RedisDeduper) Seen(ctx context.Context, wireID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKeyPrefix+wireID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark caches the wire id for the retention window. Called once the inbound
// record is persisted.
func (d *RedisDeduper) Mark(ctx context.Context, wireID string) error {
	return d.client.Set(ctx, dedupKeyPrefix+wireID, 1, d.ttl).Err()
}
