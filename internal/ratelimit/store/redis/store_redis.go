// Package redis implements the rate limit store on Redis so limits are
// shared across replicas. Counter keys carry the window as TTL; blocks are
// separate keys whose TTL is the remaining lockout.
package redis

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func counterKey(sourceID string) string {
	return fmt.Sprintf("ratelimit:ip:%s", sourceID)
}

func blockKey(sourceID string) string {
	return fmt.Sprintf("ratelimit:ip:%s:block", sourceID)
}

func (s *Store) IsBlocked(ctx context.Context, sourceID string, _ time.Time) (time.Duration, bool, error) {
	ttl, err := s.client.PTTL(ctx, blockKey(sourceID)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("check block key: %w", err)
	}
	// PTTL returns a negative duration when the key does not exist or has
	// no expiration; either way the source is not serving a block.
	if ttl <= 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

func (s *Store) Increment(ctx context.Context, sourceID string, now time.Time, window time.Duration) (int, time.Time, error) {
	key := counterKey(sourceID)
	pipe := s.client.TxPipeline()
	counter := pipe.Incr(ctx, key)
	// NX keeps the original window start; the key expiring IS the window reset.
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("increment counter: %w", err)
	}
	windowStart := now
	if remaining := ttl.Val(); remaining > 0 {
		windowStart = now.Add(remaining - window)
	}
	return int(counter.Val()), windowStart, nil
}

func (s *Store) SetBlock(ctx context.Context, sourceID string, _ time.Time, d time.Duration) error {
	if d <= 0 {
		return s.client.Del(ctx, blockKey(sourceID)).Err()
	}
	return s.client.Set(ctx, blockKey(sourceID), "1", d).Err()
}
