package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory is an in-process cache with a single TTL for every entry.
type Memory struct {
	items *ttlcache.Cache[string, []byte]
}

// NewMemory starts a memory cache whose entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	items := ttlcache.New[string, []byte](
		ttlcache.WithTTL[string, []byte](ttl),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go items.Start()

	return &Memory{items: items}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	item := m.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false
	}
	return item.Value(), true
}

func (m *Memory) Set(_ context.Context, key string, value []byte) {
	m.items.Set(key, value, ttlcache.DefaultTTL)
}

// Close stops the expiry loop.
func (m *Memory) Close() error {
	m.items.Stop()
	return nil
}
