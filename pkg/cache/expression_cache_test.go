package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflux/ruleflow/pkg/models"
)

func newTestCache(t *testing.T) (*ExpressionCache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	return NewExpressionCache(client, time.Minute), server
}

func expressionFixture(version int) *models.Expression {
	return &models.Expression{
		Version: version,
		Root: &models.ExprNode{
			Kind:    models.ExprBranch,
			Actions: []models.Action{{Type: models.ActionFlagForReview}},
		},
	}
}

func TestExpressionCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "w1", expressionFixture(3)))

	cached, ok := cache.Get(ctx, "w1", 3)
	require.True(t, ok)
	assert.Equal(t, 3, cached.Version)
	require.Len(t, cached.Root.Actions, 1)
	assert.Equal(t, models.ActionFlagForReview, cached.Root.Actions[0].Type)
}

func TestExpressionCache_Miss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, ok := cache.Get(context.Background(), "unknown", 1)
	assert.False(t, ok)
}

func TestExpressionCache_StaleVersionIsAMiss(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "w1", expressionFixture(3)))

	// The workflow was republished at version 4; the cached version 3
	// entry must not be served.
	_, ok := cache.Get(ctx, "w1", 4)
	assert.False(t, ok)
}

func TestExpressionCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "w1", expressionFixture(1)))
	require.NoError(t, cache.Invalidate(ctx, "w1"))

	_, ok := cache.Get(ctx, "w1", 1)
	assert.False(t, ok)
}

func TestExpressionCache_CorruptEntryIsAMiss(t *testing.T) {
	cache, server := newTestCache(t)

	server.Set(keyPrefix+"w1", "{not json")

	_, ok := cache.Get(context.Background(), "w1", 1)
	assert.False(t, ok)
}

func TestExpressionCache_SetRequiresExpression(t *testing.T) {
	cache, _ := newTestCache(t)

	assert.Error(t, cache.Set(context.Background(), "w1", nil))
}

func TestExpressionCache_EntriesExpire(t *testing.T) {
	cache, server := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "w1", expressionFixture(1)))

	server.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "w1", 1)
	assert.False(t, ok)
}
