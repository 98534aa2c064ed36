// Package web provides the HTTP handlers and request/response types of the
// workflow management API.
package web

import "github.com/coinflux/ruleflow/pkg/models"

// CreateWorkflowRequest is the body for creating a new workflow. Workflows
// always start as inactive drafts; the graph may be supplied up front or
// attached later through the graph endpoint.
type CreateWorkflowRequest struct {
	Name          string             `json:"name"                     validate:"required,min=3"`
	Description   string             `json:"description,omitempty"`
	Trigger       models.TriggerKind `json:"trigger"                  validate:"required"`
	TriggerConfig map[string]any     `json:"trigger_config,omitempty"`
	Priority      int                `json:"priority"                 validate:"min=0,max=100"`
	VisualState   *models.Graph      `json:"visual_state,omitempty"`
	CreatedBy     string             `json:"created_by"               validate:"required"`
}

// UpdateWorkflowRequest is the body for partial metadata updates. The graph
// has its own endpoint because graph edits bump the version.
type UpdateWorkflowRequest struct {
	Name          *string        `json:"name,omitempty"           validate:"omitempty,min=3"`
	Description   *string        `json:"description,omitempty"`
	Priority      *int           `json:"priority,omitempty"       validate:"omitempty,min=0,max=100"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
}

// UpdateGraphRequest replaces the editor graph of a draft or paused
// workflow.
type UpdateGraphRequest struct {
	VisualState *models.Graph `json:"visual_state" validate:"required"`
}

// DispatchRequest injects a business event through the HTTP surface. The
// Kafka listener is the production entry point; this endpoint serves
// back-office tooling and replay.
type DispatchRequest struct {
	Trigger    models.TriggerKind      `json:"trigger"     validate:"required"`
	EntityType string                  `json:"entity_type" validate:"required"`
	EntityID   string                  `json:"entity_id"   validate:"required"`
	Context    models.ExecutionContext `json:"context"`
}
