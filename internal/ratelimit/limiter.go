// Package ratelimit implements per-client admission control with a
// sliding window over a Redis sorted set. The set holds one member per
// admitted request, scored by unix timestamp; the in-window cardinality
// after pruning is the authoritative count. Redis provides the
// atomicity, so no client-side locking is needed.
package ratelimit

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"modgate/pkg/logging/logging"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	// grace extends the key expiry past the window so a slow prune
	// never drops live members.
	grace time.Duration
}

func New(client *redis.Client, limit int, window, grace time.Duration) *Limiter {
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		grace:  grace,
	}
}

// Admit checks and records one request for (clientID, endpoint).
//
// Any Redis failure is fail-open: the error is logged and the request
// is allowed. Rate limiting must never make the gateway unavailable
// because the counter store is.
func (l *Limiter) Admit(ctx context.Context, clientID, endpoint string) Decision {
	logger := logging.L(ctx)

	key := fmt.Sprintf("rate_limit:%s:%s", clientID, endpoint)
	now := time.Now().Unix()
	windowSeconds := int64(l.window.Seconds())
	windowStart := now - windowSeconds

	// Prune everything that has slid out of the window.
	if err := l.client.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10)).Err(); err != nil {
		logger.Error("rate limit prune failed, allowing request", zap.Error(err))
		return Decision{Allowed: true}
	}

	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		logger.Error("rate limit count failed, allowing request", zap.Error(err))
		return Decision{Allowed: true}
	}

	if count >= int64(l.limit) {
		retryAfter := l.window

		// The window reopens when the oldest surviving member expires.
		oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			retryAfter = time.Duration(int64(oldest[0].Score)+windowSeconds-now) * time.Second
		}
		if retryAfter < time.Second {
			retryAfter = time.Second
		}

		logger.Warn("rate limit exceeded",
			zap.String("client_id", clientID),
			zap.String("endpoint", endpoint),
			zap.Int64("count", count),
			zap.Int("limit", l.limit),
			zap.Duration("retry_after", retryAfter),
		)

		return Decision{Allowed: false, RetryAfter: retryAfter}
	}

	// Member must be unique per call; two admissions in the same
	// second would otherwise collapse into one.
	member := fmt.Sprintf("%d_%s", now, randomSuffix())
	if err := l.client.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: member}).Err(); err != nil {
		logger.Error("rate limit record failed, allowing request", zap.Error(err))
		return Decision{Allowed: true}
	}

	if err := l.client.Expire(ctx, key, l.window+l.grace).Err(); err != nil {
		// The zset still self-prunes on every check; log and move on.
		logger.Warn("rate limit key expire failed", zap.Error(err))
	}

	return Decision{Allowed: true}
}

func randomSuffix() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:8]
}
