package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache on Redis. Values are
// pre-serialized response snapshots; the browse read path serves hits
// directly and the pipeline invalidates the namespace after each run.
type SnapshotCache struct {
	rdb *redis.Client
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

func snapshotKey(key string) string {
	return "marketscout:snapshot:" + key
}

// Get returns the cached snapshot, or domain.ErrNotFound on a miss.
func (sc *SnapshotCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(key)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get snapshot %s: %w", key, err)
	}
	return data, nil
}

// Set stores a snapshot with the given TTL.
func (sc *SnapshotCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := sc.rdb.Set(ctx, snapshotKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes every snapshot under the given prefix using SCAN, so a
// completed sync run immediately drops stale browse responses.
func (sc *SnapshotCache) Invalidate(ctx context.Context, prefix string) error {
	pattern := snapshotKey(prefix) + "*"

	var cursor uint64
	for {
		keys, next, err := sc.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis: scan snapshots %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := sc.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis: delete snapshots %s: %w", prefix, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
