package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SnapshotCache caches snapshot reads in Redis for a short TTL. Concurrent
// requests for the same scope are collapsed into a single database read.
// A nil cache (or nil client) degrades to direct loads.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewSnapshotCache instantiates the cache helper.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

// Fetch loads a cached snapshot or populates it using the loader.
func (c *SnapshotCache) Fetch(ctx context.Context, key string, loader func(context.Context) ([]SnapshotEntry, error)) ([]SnapshotEntry, error) {
	if loader == nil {
		return nil, errors.New("inventory: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var entries []SnapshotEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
		// Corrupt entry: fall through and reload.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("inventory: cache get: %w", err)
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		entries, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(entries); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]SnapshotEntry), nil
}

// Invalidate drops a cached snapshot, used after commits touch its scope.
func (c *SnapshotCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	_ = c.client.Del(ctx, keys...).Err()
}

// SiteKey builds the cache key for a site snapshot.
func SiteKey(siteID int64) string {
	return fmt.Sprintf("inventory:snapshot:site:%d", siteID)
}

// ProjectKey builds the cache key for a project outward snapshot.
func ProjectKey(projectID int64) string {
	return fmt.Sprintf("inventory:snapshot:project:%d", projectID)
}
