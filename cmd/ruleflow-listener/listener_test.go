package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflux/ruleflow/pkg/cache"
	"github.com/coinflux/ruleflow/pkg/eventbus"
	"github.com/coinflux/ruleflow/pkg/events"
	"github.com/coinflux/ruleflow/pkg/models"
)

func invalidationFixture(t *testing.T) (*eventbus.WatermillEventBus, *cache.ExpressionCache) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	expressions := cache.NewExpressionCache(client, time.Minute)

	channel := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(channel, channel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registerExpressionInvalidation(bus, expressions, logger)

	return bus, expressions
}

func cachedExpression(version int) *models.Expression {
	return &models.Expression{
		Version: version,
		Root: &models.ExprNode{
			Kind:    models.ExprBranch,
			Actions: []models.Action{{Type: models.ActionFreezeOrder}},
		},
	}
}

func TestListener_PublishEventInvalidatesCachedExpression(t *testing.T) {
	bus, expressions := invalidationFixture(t)
	ctx := context.Background()

	require.NoError(t, bus.Subscribe(ctx))
	require.NoError(t, expressions.Set(ctx, "w1", cachedExpression(1)))

	event := events.NewWorkflowPublished(&models.Workflow{
		ID:      "w1",
		Name:    "Large order freeze",
		Trigger: models.TriggerOrderCreated,
		Version: 2,
	})
	require.NoError(t, bus.Publish(ctx, event.Key(), event))

	assert.Eventually(t, func() bool {
		_, ok := expressions.Get(ctx, "w1", 1)

		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListener_ArchiveEventInvalidatesCachedExpression(t *testing.T) {
	bus, expressions := invalidationFixture(t)
	ctx := context.Background()

	require.NoError(t, bus.Subscribe(ctx))
	require.NoError(t, expressions.Set(ctx, "w2", cachedExpression(3)))

	event := events.NewWorkflowArchived(&models.Workflow{
		ID:      "w2",
		Trigger: models.TriggerOrderCreated,
	})
	require.NoError(t, bus.Publish(ctx, event.Key(), event))

	assert.Eventually(t, func() bool {
		_, ok := expressions.Get(ctx, "w2", 3)

		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListener_UnrelatedEventLeavesCacheAlone(t *testing.T) {
	bus, expressions := invalidationFixture(t)
	ctx := context.Background()

	require.NoError(t, bus.Subscribe(ctx))
	require.NoError(t, expressions.Set(ctx, "w3", cachedExpression(1)))

	event := events.NewDispatchCompleted(&models.ExecutionReport{
		ID:         "rep-1",
		Trigger:    models.TriggerOrderCreated,
		EntityType: "order",
		EntityID:   "ord-1",
	})
	require.NoError(t, bus.Publish(ctx, event.Key(), event))

	time.Sleep(50 * time.Millisecond)

	_, ok := expressions.Get(ctx, "w3", 1)
	assert.True(t, ok)
}
