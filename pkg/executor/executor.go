package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coinflux/ruleflow/pkg/models"
)

// ActionHandler executes one action type against its collaborator.
// Handlers receive the raw action config and the entity the dispatch was
// tagged with; new action types are added by registering a handler, without
// touching the dispatcher.
type ActionHandler interface {
	Execute(ctx context.Context, config map[string]any, entityType, entityID string) error
}

// Executor looks up the registered handler for each matched action and
// captures its outcome. Failures are returned as results, never propagated:
// the dispatcher records them and moves on to the sibling actions.
type Executor struct {
	handlers map[models.ActionType]ActionHandler
	logger   *slog.Logger
}

func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{
		handlers: make(map[models.ActionType]ActionHandler),
		logger:   logger.With("module", "action_executor"),
	}
}

// NewDefaultExecutor registers the built-in handler for every action type.
func NewDefaultExecutor(
	logger *slog.Logger,
	orders OrderService,
	notifications NotificationService,
	reviews ReviewTaskService,
) *Executor {
	e := NewExecutor(logger)

	e.Register(models.ActionFreezeOrder, &FreezeOrderHandler{Orders: orders})
	e.Register(models.ActionRejectTransaction, &RejectTransactionHandler{Orders: orders})
	e.Register(models.ActionAutoApprove, &AutoApproveHandler{Orders: orders})
	e.Register(models.ActionRequireApproval, &RequireApprovalHandler{Orders: orders})
	e.Register(models.ActionRequestDocument, &RequestDocumentHandler{Notifications: notifications})
	e.Register(models.ActionSendNotification, &SendNotificationHandler{Notifications: notifications})
	e.Register(models.ActionFlagForReview, &FlagForReviewHandler{Reviews: reviews})
	e.Register(models.ActionEscalateToCompliance, &EscalateToComplianceHandler{
		Reviews:       reviews,
		Notifications: notifications,
	})

	return e
}

// Register binds a handler to an action type, replacing any previous one.
func (e *Executor) Register(actionType models.ActionType, handler ActionHandler) {
	e.handlers[actionType] = handler
}

// Execute runs a single matched action. An unregistered action type is a
// logged no-op, not an error.
func (e *Executor) Execute(ctx context.Context, action models.Action, entityType, entityID string) models.ActionResult {
	result := models.ActionResult{Type: action.Type}

	handler, ok := e.handlers[action.Type]
	if !ok {
		e.logger.Warn("No handler registered for action type, skipping",
			"action_type", action.Type,
			"entity_type", entityType,
			"entity_id", entityID)

		result.Skipped = true
		result.Detail = "no handler registered, skipped"

		return result
	}

	if err := e.run(ctx, handler, action, entityType, entityID); err != nil {
		e.logger.Error("Action execution failed",
			"action_type", action.Type,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err)

		result.Error = err.Error()
	}

	return result
}

// run isolates a single handler call, converting panics into errors so one
// misbehaving handler cannot take down the dispatch.
func (e *Executor) run(ctx context.Context, handler ActionHandler, action models.Action, entityType, entityID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action handler panicked: %v", r)
		}
	}()

	return handler.Execute(ctx, action.Config, entityType, entityID)
}
