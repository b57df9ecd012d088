package statecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
)

const (
	keyPrefix   = "device:state:"
	pingTimeout = 5 * time.Second
	scanCount   = 100
)

// Entry is the last value written for one capability.
type Entry struct {
	Value any       `json:"value"`
	TS    time.Time `json:"ts"`
}

// Cache keeps the last-known capability values of every device in one
// Redis hash per device (field = capability id). Each write refreshes the
// hash TTL, so devices that stop reporting age out.
//
// Thread Safety: safe for concurrent use.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect creates the Redis client and pings the server.
func Connect(cfg config.RedisConfig) (*Cache, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck // best effort on error path
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return New(rdb, time.Duration(cfg.TTL)*time.Second), nil
}

// New wraps an existing client. A non-positive ttl disables expiry.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key returns the Redis key holding a device's values.
func Key(deviceID string) string { return keyPrefix + deviceID }

// Set stores the value for one capability, stamped with ts.
func (c *Cache) Set(ctx context.Context, deviceID, capability string, value any, ts time.Time) error {
	payload, err := json.Marshal(Entry{Value: value, TS: ts.UTC()})
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", capability, err)
	}

	key := Key(deviceID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, capability, payload)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("caching %s/%s: %w", deviceID, capability, err)
	}
	return nil
}

// Get returns every cached capability value of a device. A device with no
// cached values yields an empty map and no error.
func (c *Cache) Get(ctx context.Context, deviceID string) (map[string]Entry, error) {
	raw, err := c.rdb.HGetAll(ctx, Key(deviceID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string]Entry{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", deviceID, err)
	}
	return decodeEntries(raw), nil
}

// Delete drops all cached values of a device.
func (c *Cache) Delete(ctx context.Context, deviceID string) error {
	return c.rdb.Del(ctx, Key(deviceID)).Err()
}

// RemoveAllExcept deletes cached devices not listed in keepIDs and returns
// the removed IDs. Used at startup to drop devices that left the registry.
func (c *Cache) RemoveAllExcept(ctx context.Context, keepIDs []string) ([]string, error) {
	keep := make(map[string]struct{}, len(keepIDs))
	for _, id := range keepIDs {
		if id != "" {
			keep[id] = struct{}{}
		}
	}

	var removed []string
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		id, ok := strings.CutPrefix(iter.Val(), keyPrefix)
		if !ok {
			continue
		}
		if _, kept := keep[id]; kept {
			continue
		}
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, err
		}
		removed = append(removed, id)
	}
	return removed, iter.Err()
}

// HealthCheck pings the server.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("statecache health check failed: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// decodeEntries parses hash fields, skipping any that are not valid
// entries.
func decodeEntries(raw map[string]string) map[string]Entry {
	out := make(map[string]Entry, len(raw))
	for field, v := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		out[field] = e
	}
	return out
}
