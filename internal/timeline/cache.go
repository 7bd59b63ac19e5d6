package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps assembled trip timelines in redis. Entries are keyed by a
// per-trip generation that Invalidate bumps, so a read racing a commit can
// only ever store under a generation nobody will look up again.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns nil when client is nil or ttl is not positive. A nil
// *Cache is a valid always-miss cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

func generationKey(tripID string) string {
	return fmt.Sprintf("roadtrip:timeline:%s:gen", tripID)
}

func entryKey(tripID string, gen int64) string {
	return fmt.Sprintf("roadtrip:timeline:%s:%d", tripID, gen)
}

// Generation reads the trip's current generation. Callers pass it back to
// Set once assembly is done.
func (c *Cache) Generation(ctx context.Context, tripID string) (int64, error) {
	if c == nil {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, generationKey(tripID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached timeline for the given generation. ok is false on
// a miss.
func (c *Cache) Get(ctx context.Context, tripID string, gen int64) (TripTimelineModel, bool, error) {
	if c == nil {
		return TripTimelineModel{}, false, nil
	}
	data, err := c.client.Get(ctx, entryKey(tripID, gen)).Bytes()
	if err == redis.Nil {
		return TripTimelineModel{}, false, nil
	}
	if err != nil {
		return TripTimelineModel{}, false, err
	}

	var m TripTimelineModel
	if err := json.Unmarshal(data, &m); err != nil {
		return TripTimelineModel{}, false, fmt.Errorf("failed to unmarshal cached timeline: %w", err)
	}
	return m, true, nil
}

func (c *Cache) Set(ctx context.Context, tripID string, gen int64, m TripTimelineModel) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %w", err)
	}
	return c.client.Set(ctx, entryKey(tripID, gen), data, c.ttl).Err()
}

// Invalidate bumps the generation of every trip given.
func (c *Cache) Invalidate(ctx context.Context, tripIDs ...string) error {
	if c == nil || len(tripIDs) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, id := range tripIDs {
		pipe.Incr(ctx, generationKey(id))
	}
	_, err := pipe.Exec(ctx)
	return err
}
