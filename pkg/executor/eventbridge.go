package executor

import (
	"context"

	"github.com/coinflux/ruleflow/pkg/eventbus"
	"github.com/coinflux/ruleflow/pkg/events"
)

// The event bridges implement the collaborator interfaces by publishing
// command events for the surrounding back office to apply. The engine
// decides; the order, notification and review subsystems consume and
// execute.

type OrderBridge struct {
	bus eventbus.EventPublisher
}

func NewOrderBridge(bus eventbus.EventPublisher) *OrderBridge {
	return &OrderBridge{bus: bus}
}

var _ OrderService = (*OrderBridge)(nil)

func (b *OrderBridge) SetStatus(ctx context.Context, entityType, entityID string, status OrderStatus, reason string) error {
	event := events.NewOrderStatusRequested(entityType, entityID, string(status), reason, false)

	return b.bus.Publish(ctx, event.Key(), event)
}

func (b *OrderBridge) RequireApproval(ctx context.Context, entityType, entityID string, reason string) error {
	event := events.NewOrderStatusRequested(entityType, entityID, "", reason, true)

	return b.bus.Publish(ctx, event.Key(), event)
}

type NotificationBridge struct {
	bus eventbus.EventPublisher
}

func NewNotificationBridge(bus eventbus.EventPublisher) *NotificationBridge {
	return &NotificationBridge{bus: bus}
}

var _ NotificationService = (*NotificationBridge)(nil)

func (b *NotificationBridge) Create(ctx context.Context, notification Notification) error {
	event := events.NewNotificationRequested(
		notification.RecipientID,
		notification.Title,
		notification.Message,
		notification.Data,
	)

	return b.bus.Publish(ctx, event.Key(), event)
}

type ReviewBridge struct {
	bus eventbus.EventPublisher
}

func NewReviewBridge(bus eventbus.EventPublisher) *ReviewBridge {
	return &ReviewBridge{bus: bus}
}

var _ ReviewTaskService = (*ReviewBridge)(nil)

func (b *ReviewBridge) Create(ctx context.Context, task ReviewTask) error {
	event := events.NewReviewTaskRequested(
		task.EntityType,
		task.EntityID,
		task.Reason,
		string(task.Priority),
		task.AssignedRole,
		task.Escalated,
	)

	return b.bus.Publish(ctx, event.Key(), event)
}
