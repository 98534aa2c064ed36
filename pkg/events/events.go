// Package events defines the event types the engine publishes and the
// business event shape it consumes.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/coinflux/ruleflow/pkg/models"
)

type EventType string

// Kafka topics.
const (
	// Topic carries engine lifecycle and audit events.
	Topic = "ruleflow.events"

	// BusinessEventTopic carries inbound business events from the
	// surrounding back office; the listener consumes it and dispatches.
	BusinessEventTopic = "ruleflow.business.events"
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowPublishedEvent EventType = "workflow.published"
	WorkflowArchivedEvent  EventType = "workflow.archived"
	DispatchCompletedEvent EventType = "dispatch.completed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func newBaseEvent() BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}
}

// WorkflowPublished announces that a workflow went ACTIVE with a freshly
// compiled expression.
type WorkflowPublished struct {
	BaseEvent

	WorkflowID string             `json:"workflow_id"`
	Name       string             `json:"name"`
	Trigger    models.TriggerKind `json:"trigger"`
	Version    int                `json:"version"`
	Priority   int                `json:"priority"`
}

func NewWorkflowPublished(workflow *models.Workflow) WorkflowPublished {
	return WorkflowPublished{
		BaseEvent:  newBaseEvent(),
		WorkflowID: workflow.ID,
		Name:       workflow.Name,
		Trigger:    workflow.Trigger,
		Version:    workflow.Version,
		Priority:   workflow.Priority,
	}
}

func (w WorkflowPublished) GetType() EventType { return WorkflowPublishedEvent }
func (w WorkflowPublished) Key() string        { return w.WorkflowID }

// WorkflowArchived announces the terminal retirement of a workflow.
type WorkflowArchived struct {
	BaseEvent

	WorkflowID string             `json:"workflow_id"`
	Trigger    models.TriggerKind `json:"trigger"`
}

func NewWorkflowArchived(workflow *models.Workflow) WorkflowArchived {
	return WorkflowArchived{
		BaseEvent:  newBaseEvent(),
		WorkflowID: workflow.ID,
		Trigger:    workflow.Trigger,
	}
}

func (w WorkflowArchived) GetType() EventType { return WorkflowArchivedEvent }
func (w WorkflowArchived) Key() string        { return w.WorkflowID }

// DispatchCompleted summarizes one dispatch for downstream audit
// consumers; the full report is persisted separately.
type DispatchCompleted struct {
	BaseEvent

	ReportID           string             `json:"report_id"`
	Trigger            models.TriggerKind `json:"trigger"`
	EntityType         string             `json:"entity_type"`
	EntityID           string             `json:"entity_id"`
	WorkflowsEvaluated int                `json:"workflows_evaluated"`
	Matched            bool               `json:"matched"`
	ActionFailures     int                `json:"action_failures"`
}

func NewDispatchCompleted(report *models.ExecutionReport) DispatchCompleted {
	return DispatchCompleted{
		BaseEvent:          newBaseEvent(),
		ReportID:           report.ID,
		Trigger:            report.Trigger,
		EntityType:         report.EntityType,
		EntityID:           report.EntityID,
		WorkflowsEvaluated: len(report.Results),
		Matched:            report.Matched(),
		ActionFailures:     report.FailureCount(),
	}
}

func (d DispatchCompleted) GetType() EventType { return DispatchCompletedEvent }
func (d DispatchCompleted) Key() string        { return d.EntityID }

// BusinessEvent is the inbound message shape on BusinessEventTopic.
type BusinessEvent struct {
	Trigger    models.TriggerKind      `json:"trigger"     validate:"required"`
	EntityType string                  `json:"entity_type" validate:"required"`
	EntityID   string                  `json:"entity_id"   validate:"required"`
	Context    models.ExecutionContext `json:"context"`
}
