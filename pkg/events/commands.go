package events

// Command events carry the side effects of matched actions out to the
// surrounding back office. The engine owns the decision; applying it to
// orders, notification inboxes and review queues happens downstream.

const (
	OrderStatusRequestedEvent  EventType = "command.order_status_requested"
	NotificationRequestedEvent EventType = "command.notification_requested"
	ReviewTaskRequestedEvent   EventType = "command.review_task_requested"
)

// OrderStatusRequested asks the order subsystem to set an entity to a
// target status. Set-style semantics: re-delivery converges.
type OrderStatusRequested struct {
	BaseEvent

	EntityType      string `json:"entity_type"`
	EntityID        string `json:"entity_id"`
	Status          string `json:"status,omitempty"`
	Reason          string `json:"reason,omitempty"`
	RequireApproval bool   `json:"require_approval,omitempty"`
}

func NewOrderStatusRequested(entityType, entityID, status, reason string, requireApproval bool) OrderStatusRequested {
	return OrderStatusRequested{
		BaseEvent:       newBaseEvent(),
		EntityType:      entityType,
		EntityID:        entityID,
		Status:          status,
		Reason:          reason,
		RequireApproval: requireApproval,
	}
}

func (o OrderStatusRequested) GetType() EventType { return OrderStatusRequestedEvent }
func (o OrderStatusRequested) Key() string        { return o.EntityID }

// NotificationRequested asks the notification subsystem to deliver a
// message. Delivery is at-least-once end to end.
type NotificationRequested struct {
	BaseEvent

	RecipientID string         `json:"recipient_id"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
}

func NewNotificationRequested(recipientID, title, message string, data map[string]any) NotificationRequested {
	return NotificationRequested{
		BaseEvent:   newBaseEvent(),
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Data:        data,
	}
}

func (n NotificationRequested) GetType() EventType { return NotificationRequestedEvent }
func (n NotificationRequested) Key() string        { return n.RecipientID }

// ReviewTaskRequested asks the back office to open a manual review task.
type ReviewTaskRequested struct {
	BaseEvent

	EntityType   string `json:"entity_type"`
	EntityID     string `json:"entity_id"`
	Reason       string `json:"reason"`
	Priority     string `json:"priority"`
	AssignedRole string `json:"assigned_role,omitempty"`
	Escalated    bool   `json:"escalated"`
}

func NewReviewTaskRequested(entityType, entityID, reason, priority, assignedRole string, escalated bool) ReviewTaskRequested {
	return ReviewTaskRequested{
		BaseEvent:    newBaseEvent(),
		EntityType:   entityType,
		EntityID:     entityID,
		Reason:       reason,
		Priority:     priority,
		AssignedRole: assignedRole,
		Escalated:    escalated,
	}
}

func (r ReviewTaskRequested) GetType() EventType { return ReviewTaskRequestedEvent }
func (r ReviewTaskRequested) Key() string        { return r.EntityID }
