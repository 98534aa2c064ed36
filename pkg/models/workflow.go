// Package models defines the core domain models for the rule engine:
// workflows, decision graphs, compiled expressions, actions and the
// execution records produced by dispatching business events.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "DRAFT"    // Editable, never dispatched
	WorkflowStatusActive   WorkflowStatus = "ACTIVE"   // Published, eligible for dispatch
	WorkflowStatusPaused   WorkflowStatus = "PAUSED"   // Configuration retained, not dispatched
	WorkflowStatusArchived WorkflowStatus = "ARCHIVED" // Terminal, excluded from all lookups
)

// TriggerKind is the business event kind that makes a workflow eligible
// for evaluation.
type TriggerKind string

const (
	TriggerOrderCreated    TriggerKind = "ORDER_CREATED"
	TriggerPayinReceived   TriggerKind = "PAYIN_RECEIVED"
	TriggerPayoutRequested TriggerKind = "PAYOUT_REQUESTED"
	TriggerKYCSubmitted    TriggerKind = "KYC_SUBMITTED"
	TriggerUserRegistered  TriggerKind = "USER_REGISTERED"
	TriggerWalletAdded     TriggerKind = "WALLET_ADDED"
	TriggerAmountThreshold TriggerKind = "AMOUNT_THRESHOLD"
)

// TriggerKinds lists every supported trigger kind.
var TriggerKinds = []TriggerKind{
	TriggerOrderCreated,
	TriggerPayinReceived,
	TriggerPayoutRequested,
	TriggerKYCSubmitted,
	TriggerUserRegistered,
	TriggerWalletAdded,
	TriggerAmountThreshold,
}

// IsValid reports whether the trigger kind is one of the supported kinds.
func (t TriggerKind) IsValid() bool {
	for _, kind := range TriggerKinds {
		if kind == t {
			return true
		}
	}

	return false
}

// Workflow is the unit of automation: a decision graph authored in the
// visual editor (VisualState) and its compiled execution form (LogicState).
//
// LogicState is derived, never hand-edited. It must always be re-derivable
// from VisualState by the compiler; any edit to VisualState bumps Version
// and invalidates LogicState until the workflow is republished.
type Workflow struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"                      validate:"required,min=3"`
	Description    string         `json:"description,omitempty"`
	Trigger        TriggerKind    `json:"trigger"                   validate:"required"`
	TriggerConfig  map[string]any `json:"trigger_config,omitempty"`
	VisualState    *Graph         `json:"visual_state"`
	LogicState     *Expression    `json:"logic_state,omitempty"`
	Status         WorkflowStatus `json:"status"                    validate:"required"`
	IsActive       bool           `json:"is_active"`
	Priority       int            `json:"priority"                  validate:"min=0,max=100"`
	Version        int            `json:"version"`
	ExecutionCount int64          `json:"execution_count"`
	LastExecutedAt *time.Time     `json:"last_executed_at,omitempty"`
	CreatedBy      string         `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Dispatchable reports whether the dispatcher may evaluate this workflow.
// Status and the IsActive kill switch gate dispatch independently.
func (w *Workflow) Dispatchable() bool {
	return w.Status == WorkflowStatusActive && w.IsActive
}

// LogicStale reports whether the compiled expression no longer matches the
// editor state. A stale workflow is treated as non-matching at dispatch time
// and must be republished through the compiler.
func (w *Workflow) LogicStale() bool {
	return w.LogicState == nil || w.LogicState.Version != w.Version
}
