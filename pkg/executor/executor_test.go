package executor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflux/ruleflow/pkg/models"
)

type statusCall struct {
	entityType string
	entityID   string
	status     OrderStatus
	reason     string
}

type fakeOrderService struct {
	statusCalls   []statusCall
	approvalCalls []statusCall
	err           error
}

func (f *fakeOrderService) SetStatus(_ context.Context, entityType, entityID string, status OrderStatus, reason string) error {
	f.statusCalls = append(f.statusCalls, statusCall{entityType, entityID, status, reason})

	return f.err
}

func (f *fakeOrderService) RequireApproval(_ context.Context, entityType, entityID string, reason string) error {
	f.approvalCalls = append(f.approvalCalls, statusCall{entityType: entityType, entityID: entityID, reason: reason})

	return f.err
}

type fakeNotificationService struct {
	notifications []Notification
	err           error
}

func (f *fakeNotificationService) Create(_ context.Context, notification Notification) error {
	f.notifications = append(f.notifications, notification)

	return f.err
}

type fakeReviewService struct {
	tasks []ReviewTask
	err   error
}

func (f *fakeReviewService) Create(_ context.Context, task ReviewTask) error {
	f.tasks = append(f.tasks, task)

	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestExecutor() (*Executor, *fakeOrderService, *fakeNotificationService, *fakeReviewService) {
	orders := &fakeOrderService{}
	notifications := &fakeNotificationService{}
	reviews := &fakeReviewService{}

	return NewDefaultExecutor(testLogger(), orders, notifications, reviews), orders, notifications, reviews
}

func TestExecutor_UnregisteredActionTypeIsNoOp(t *testing.T) {
	exec := NewExecutor(testLogger())

	result := exec.Execute(context.Background(), models.Action{Type: models.ActionFreezeOrder}, "order", "o-1")

	assert.Empty(t, result.Error)
	assert.True(t, result.Skipped)
	assert.Equal(t, "no handler registered, skipped", result.Detail)
	assert.Equal(t, models.ActionFreezeOrder, result.Type)
}

func TestExecutor_HandlerErrorIsCaptured(t *testing.T) {
	exec, orders, _, _ := newTestExecutor()
	orders.err = errors.New("order service unavailable")

	result := exec.Execute(context.Background(), models.Action{Type: models.ActionFreezeOrder}, "order", "o-1")

	assert.Equal(t, "order service unavailable", result.Error)
}

type panickyHandler struct{}

func (panickyHandler) Execute(context.Context, map[string]any, string, string) error {
	panic("boom")
}

func TestExecutor_HandlerPanicIsContained(t *testing.T) {
	exec := NewExecutor(testLogger())
	exec.Register(models.ActionAutoApprove, panickyHandler{})

	result := exec.Execute(context.Background(), models.Action{Type: models.ActionAutoApprove}, "order", "o-1")

	assert.Contains(t, result.Error, "panicked")
}

func TestFreezeOrder_DefaultReason(t *testing.T) {
	exec, orders, _, _ := newTestExecutor()

	result := exec.Execute(context.Background(), models.Action{Type: models.ActionFreezeOrder}, "order", "o-1")

	require.Empty(t, result.Error)
	require.Len(t, orders.statusCalls, 1)
	assert.Equal(t, OrderStatusFrozen, orders.statusCalls[0].status)
	assert.Equal(t, "order", orders.statusCalls[0].entityType)
	assert.Equal(t, "o-1", orders.statusCalls[0].entityID)
	assert.Equal(t, "frozen by workflow automation", orders.statusCalls[0].reason)
}

func TestFreezeOrder_ConfiguredReason(t *testing.T) {
	exec, orders, _, _ := newTestExecutor()

	action := models.Action{
		Type:   models.ActionFreezeOrder,
		Config: map[string]any{"reason": "sanctions screening hit"},
	}

	result := exec.Execute(context.Background(), action, "order", "o-1")

	require.Empty(t, result.Error)
	require.Len(t, orders.statusCalls, 1)
	assert.Equal(t, "sanctions screening hit", orders.statusCalls[0].reason)
}

func TestRejectAndApproveSetTargetStatus(t *testing.T) {
	exec, orders, _, _ := newTestExecutor()

	exec.Execute(context.Background(), models.Action{Type: models.ActionRejectTransaction}, "transaction", "tx-1")
	exec.Execute(context.Background(), models.Action{Type: models.ActionAutoApprove}, "order", "o-1")

	require.Len(t, orders.statusCalls, 2)
	assert.Equal(t, OrderStatusRejected, orders.statusCalls[0].status)
	assert.Equal(t, OrderStatusApproved, orders.statusCalls[1].status)
}

func TestRequireApproval(t *testing.T) {
	exec, orders, _, _ := newTestExecutor()

	result := exec.Execute(context.Background(), models.Action{Type: models.ActionRequireApproval}, "payout", "p-1")

	require.Empty(t, result.Error)
	require.Len(t, orders.approvalCalls, 1)
	assert.Equal(t, "payout", orders.approvalCalls[0].entityType)
}

func TestRequestDocument_BuildsNotification(t *testing.T) {
	exec, _, notifications, _ := newTestExecutor()

	action := models.Action{
		Type: models.ActionRequestDocument,
		Config: map[string]any{
			"recipient_id":  "u-7",
			"document_type": "proof_of_funds",
		},
	}

	result := exec.Execute(context.Background(), action, "order", "o-1")

	require.Empty(t, result.Error)
	require.Len(t, notifications.notifications, 1)

	notification := notifications.notifications[0]
	assert.Equal(t, "u-7", notification.RecipientID)
	assert.Contains(t, notification.Message, "proof_of_funds")
	assert.Equal(t, "proof_of_funds", notification.Data["document_type"])
	assert.Equal(t, "o-1", notification.Data["entity_id"])
}

func TestSendNotification_TagsEntity(t *testing.T) {
	exec, _, notifications, _ := newTestExecutor()

	action := models.Action{
		Type: models.ActionSendNotification,
		Config: map[string]any{
			"recipient_id": "ops-team",
			"title":        "Large payout requested",
			"message":      "Review the payout",
		},
	}

	result := exec.Execute(context.Background(), action, "payout", "p-9")

	require.Empty(t, result.Error)
	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, "payout", notifications.notifications[0].Data["entity_type"])
	assert.Equal(t, "p-9", notifications.notifications[0].Data["entity_id"])
}

func TestFlagForReview_DefaultsToMediumPriority(t *testing.T) {
	exec, _, _, reviews := newTestExecutor()

	result := exec.Execute(context.Background(), models.Action{Type: models.ActionFlagForReview}, "order", "o-1")

	require.Empty(t, result.Error)
	require.Len(t, reviews.tasks, 1)
	assert.Equal(t, ReviewPriorityMedium, reviews.tasks[0].Priority)
	assert.False(t, reviews.tasks[0].Escalated)
}

func TestEscalateToCompliance_CreatesTaskAndNotification(t *testing.T) {
	exec, _, notifications, reviews := newTestExecutor()

	action := models.Action{
		Type:   models.ActionEscalateToCompliance,
		Config: map[string]any{"reason": "possible structuring", "recipient_id": "compliance-lead"},
	}

	result := exec.Execute(context.Background(), action, "transaction", "tx-4")

	require.Empty(t, result.Error)
	require.Len(t, reviews.tasks, 1)
	assert.Equal(t, ReviewPriorityHigh, reviews.tasks[0].Priority)
	assert.Equal(t, "compliance", reviews.tasks[0].AssignedRole)
	assert.True(t, reviews.tasks[0].Escalated)

	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, "compliance-lead", notifications.notifications[0].RecipientID)
	assert.Equal(t, "possible structuring", notifications.notifications[0].Message)
}

func TestEscalateToCompliance_ReviewFailureSkipsNotification(t *testing.T) {
	exec, _, notifications, reviews := newTestExecutor()
	reviews.err = errors.New("review queue full")

	result := exec.Execute(context.Background(), models.Action{Type: models.ActionEscalateToCompliance}, "order", "o-1")

	assert.Equal(t, "review queue full", result.Error)
	assert.Empty(t, notifications.notifications)
}
