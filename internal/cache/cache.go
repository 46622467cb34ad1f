package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the content cache used by the gateway. Two instances exist:
// one for whole moderation responses and one for per-image score maps.
// Implemented by the memory cache (dev) and the Redis cache (prod).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Config struct {
	Backend string
	TTL     time.Duration
}

// New picks a backend. Anything other than "redis" gets the in-memory
// cache, which is only meant for local development and tests.
func New(cfg Config, redisClient *redis.Client) Store {
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(redisClient)
	default:
		return NewMemoryStore(cfg.TTL)
	}
}
