package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davidroman0O/nairaland-archiver/internal/logger"
	"github.com/redis/go-redis/v9"
)

// connectionTimeout bounds the startup ping.
const connectionTimeout = 5 * time.Second

// keyPrefix namespaces every key written by the archiver.
const keyPrefix = "nairaland-archiver:"

// Redis shares cached entries between processes.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(addr string, ttl time.Duration, log logger.Logger) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{client: client, ttl: ttl, log: log}, nil
}

// Get treats every Redis failure as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("Cache read failed", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := r.client.Set(ctx, keyPrefix+key, value, r.ttl).Err(); err != nil {
		r.log.Warn("Cache write failed", logger.String("key", key), logger.Error(err))
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
