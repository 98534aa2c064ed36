package executor

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// decodeConfig maps the free-form action config onto a typed handler
// config. Unknown keys are tolerated; they belong to other consumers of
// the same editor document.
func decodeConfig(config map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(config)
}

func reasonOrDefault(reason, fallback string) string {
	if reason == "" {
		return fallback
	}

	return reason
}

type statusConfig struct {
	Reason string `mapstructure:"reason"`
}

// FreezeOrderHandler sets the order to FROZEN. Setting an already frozen
// order to FROZEN is a no-op for the collaborator, which is what makes the
// action safe under redelivery.
type FreezeOrderHandler struct {
	Orders OrderService
}

func (h *FreezeOrderHandler) Execute(ctx context.Context, config map[string]any, entityType, entityID string) error {
	var cfg statusConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return err
	}

	reason := reasonOrDefault(cfg.Reason, "frozen by workflow automation")

	return h.Orders.SetStatus(ctx, entityType, entityID, OrderStatusFrozen, reason)
}

// RejectTransactionHandler sets the transaction to REJECTED.
type RejectTransactionHandler struct {
	Orders OrderService
}

func (h *RejectTransactionHandler) Execute(ctx context.Context, config map[string]any, entityType, entityID string) error {
	var cfg statusConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return err
	}

	reason := reasonOrDefault(cfg.Reason, "rejected by workflow automation")

	return h.Orders.SetStatus(ctx, entityType, entityID, OrderStatusRejected, reason)
}

// AutoApproveHandler sets the order to APPROVED.
type AutoApproveHandler struct {
	Orders OrderService
}

func (h *AutoApproveHandler) Execute(ctx context.Context, config map[string]any, entityType, entityID string) error {
	var cfg statusConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return err
	}

	reason := reasonOrDefault(cfg.Reason, "auto-approved by workflow automation")

	return h.Orders.SetStatus(ctx, entityType, entityID, OrderStatusApproved, reason)
}

// RequireApprovalHandler flags the entity as requiring manual approval.
type RequireApprovalHandler struct {
	Orders OrderService
}

func (h *RequireApprovalHandler) Execute(ctx context.Context, config map[string]any, entityType, entityID string) error {
	var cfg statusConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return err
	}

	reason := reasonOrDefault(cfg.Reason, "manual approval required by workflow automation")

	return h.Orders.RequireApproval(ctx, entityType, entityID, reason)
}

type requestDocumentConfig struct {
	RecipientID  string `mapstructure:"recipient_id"`
	DocumentType string `mapstructure:"document_type"`
	Message      string `mapstructure:"message"`
}

// RequestDocumentHandler notifies the user that an additional document is
// required.
type RequestDocumentHandler struct {
	Notifications NotificationService
}

func (h *RequestDocumentHandler) Execute(ctx context.Context, config map[string]any, entityType, entityID string) error {
	var cfg requestDocumentConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return err
	}

	message := cfg.Message
	if message == "" {
		message = fmt.Sprintf("Please provide an additional document (%s) to continue.", cfg.DocumentType)
	}

	return h.Notifications.Create(ctx, Notification{
		RecipientID: cfg.RecipientID,
		Title:       "Additional document required",
		Message:     message,
		Data: map[string]any{
			"document_type": cfg.DocumentType,
			"entity_type":   entityType,
			"entity_id":     entityID,
		},
	})
}

type sendNotificationConfig struct {
	RecipientID string         `mapstructure:"recipient_id"`
	Title       string         `mapstructure:"title"`
	Message     string         `mapstructure:"message"`
	Data        map[string]any `mapstructure:"data"`
}

// SendNotificationHandler delivers a configured notification. Delivery is
// at-least-once: redelivered events may duplicate it.
type SendNotificationHandler struct {
	Notifications NotificationService
}

func (h *SendNotificationHandler) Execute(ctx context.Context, config map[string]any, entityType, entityID string) error {
	var cfg sendNotificationConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return err
	}

	data := cfg.Data
	if data == nil {
		data = make(map[string]any)
	}

	data["entity_type"] = entityType
	data["entity_id"] = entityID

	return h.Notifications.Create(ctx, Notification{
		RecipientID: cfg.RecipientID,
		Title:       cfg.Title,
		Message:     cfg.Message,
		Data:        data,
	})
}

type reviewConfig struct {
	Reason       string `mapstructure:"reason"`
	Priority     string `mapstructure:"priority"`
	AssignedRole string `mapstructure:"assigned_role"`
}

// FlagForReviewHandler creates a manual review task.
type FlagForReviewHandler struct {
	Reviews ReviewTaskService
}

func (h *FlagForReviewHandler) Execute(ctx context.Context, config map[string]any, entityType, entityID string) error {
	var cfg reviewConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return err
	}

	priority := ReviewPriority(cfg.Priority)
	if priority == "" {
		priority = ReviewPriorityMedium
	}

	return h.Reviews.Create(ctx, ReviewTask{
		EntityType:   entityType,
		EntityID:     entityID,
		Reason:       reasonOrDefault(cfg.Reason, "flagged by workflow automation"),
		Priority:     priority,
		AssignedRole: cfg.AssignedRole,
		Escalated:    false,
	})
}

type escalationConfig struct {
	Reason      string `mapstructure:"reason"`
	RecipientID string `mapstructure:"recipient_id"`
}

// EscalateToComplianceHandler creates a high-priority escalated review task
// for the compliance role and notifies the configured recipient.
type EscalateToComplianceHandler struct {
	Reviews       ReviewTaskService
	Notifications NotificationService
}

func (h *EscalateToComplianceHandler) Execute(ctx context.Context, config map[string]any, entityType, entityID string) error {
	var cfg escalationConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return err
	}

	reason := reasonOrDefault(cfg.Reason, "escalated by workflow automation")

	err := h.Reviews.Create(ctx, ReviewTask{
		EntityType:   entityType,
		EntityID:     entityID,
		Reason:       reason,
		Priority:     ReviewPriorityHigh,
		AssignedRole: "compliance",
		Escalated:    true,
	})
	if err != nil {
		return err
	}

	return h.Notifications.Create(ctx, Notification{
		RecipientID: cfg.RecipientID,
		Title:       "Compliance escalation",
		Message:     reason,
		Data: map[string]any{
			"entity_type": entityType,
			"entity_id":   entityID,
		},
	})
}
