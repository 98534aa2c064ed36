// Package executor maps matched action specs to concrete side effects
// against collaborating subsystems, isolating failures per action.
package executor

import "context"

// OrderStatus is the target state of a set-style order mutation. Actions
// are expressed as "set to X" rather than "transition from X" so repeated
// delivery of the same action converges instead of double-applying.
type OrderStatus string

const (
	OrderStatusFrozen   OrderStatus = "FROZEN"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusApproved OrderStatus = "APPROVED"
)

// OrderService mutates orders and transactions. Implementations must make
// SetStatus idempotent for the same (entityType, entityID, status).
type OrderService interface {
	SetStatus(ctx context.Context, entityType, entityID string, status OrderStatus, reason string) error
	RequireApproval(ctx context.Context, entityType, entityID string, reason string) error
}

// Notification is the shape handed to the notification collaborator.
// Delivery is at-least-once: a re-dispatched event may produce duplicates.
type Notification struct {
	RecipientID string         `json:"recipient_id"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
}

// NotificationService creates notifications for operators or users.
type NotificationService interface {
	Create(ctx context.Context, notification Notification) error
}

// ReviewPriority orders review tasks in the back-office queue.
type ReviewPriority string

const (
	ReviewPriorityLow    ReviewPriority = "LOW"
	ReviewPriorityMedium ReviewPriority = "MEDIUM"
	ReviewPriorityHigh   ReviewPriority = "HIGH"
)

// ReviewTask is the shape handed to the review-queue collaborator.
type ReviewTask struct {
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	Reason       string         `json:"reason"`
	Priority     ReviewPriority `json:"priority"`
	AssignedRole string         `json:"assigned_role,omitempty"`
	Escalated    bool           `json:"escalated"`
}

// ReviewTaskService creates manual review tasks.
type ReviewTaskService interface {
	Create(ctx context.Context, task ReviewTask) error
}
