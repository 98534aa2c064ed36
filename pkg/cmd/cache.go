package cmd

import (
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/coinflux/ruleflow/pkg/cache"
)

const defaultExpressionTTL = 15 * time.Minute

// NewExpressionCache builds the Redis-backed compiled-expression cache.
// An empty URL disables caching; dispatchers then read the stored logic
// state on every event.
func NewExpressionCache(logger *slog.Logger, redisURL string) *cache.ExpressionCache {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic("invalid redis URL: " + err.Error())
	}

	logger.Info("Expression cache enabled", "addr", opts.Addr)

	return cache.NewExpressionCache(redis.NewClient(opts), defaultExpressionTTL)
}
