// Package cache memoizes resolved page lists, extracted posts and summaries
// for a bounded time. Expired entries simply cause a re-fetch.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Backend names accepted by the configuration
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// DefaultTTL keeps entries for ten minutes.
const DefaultTTL = 10 * time.Minute

// Cache stores opaque values under string keys with a fixed expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Close() error
}

// GetJSON decodes the cached value for key into v. Undecodable entries count as misses.
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	c.Set(ctx, key, data)
	return nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte)        {}
func (Nop) Close() error                               { return nil }
