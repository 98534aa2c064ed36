// Package cache provides a Redis-backed cache of compiled expressions so
// dispatchers avoid re-decoding the stored logic state on every event.
// Entries are keyed by workflow and stamped with the compiled version;
// a version mismatch is a stale entry and is ignored.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/coinflux/ruleflow/pkg/models"
)

const keyPrefix = "ruleflow:expression:"

// ExpressionCache caches compiled expressions per workflow.
type ExpressionCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewExpressionCache(client redis.UniversalClient, ttl time.Duration) *ExpressionCache {
	return &ExpressionCache{client: client, ttl: ttl}
}

// Get returns the cached expression for the workflow if it matches the
// wanted version. A miss, a stale entry or a Redis error all report
// ok=false; the caller falls back to the stored logic state.
func (c *ExpressionCache) Get(ctx context.Context, workflowID string, version int) (*models.Expression, bool) {
	data, err := c.client.Get(ctx, keyPrefix+workflowID).Bytes()
	if err != nil {
		return nil, false
	}

	var expression models.Expression
	if err := json.Unmarshal(data, &expression); err != nil {
		return nil, false
	}

	if expression.Version != version {
		return nil, false
	}

	return &expression, true
}

// Set stores the compiled expression for the workflow, replacing any
// previous (now stale) entry.
func (c *ExpressionCache) Set(ctx context.Context, workflowID string, expression *models.Expression) error {
	if expression == nil {
		return errors.New("expression is required")
	}

	data, err := json.Marshal(expression)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, keyPrefix+workflowID, data, c.ttl).Err()
}

// Invalidate drops the cached expression for the workflow.
func (c *ExpressionCache) Invalidate(ctx context.Context, workflowID string) error {
	return c.client.Del(ctx, keyPrefix+workflowID).Err()
}
