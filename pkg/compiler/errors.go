// Package compiler transforms editor decision graphs into executable
// expression trees. Compilation is a pure function: the same graph always
// produces a byte-identical expression, and validation failures are
// returned as a list rather than raised.
package compiler

import "fmt"

// ErrorCode classifies a graph validation failure.
type ErrorCode string

const (
	CodeNoTrigger         ErrorCode = "no_trigger"
	CodeMultipleTriggers  ErrorCode = "multiple_triggers"
	CodeCycle             ErrorCode = "cycle"
	CodeMissingBranch     ErrorCode = "missing_branch"
	CodeAmbiguousBranch   ErrorCode = "ambiguous_branch"
	CodeOrphanNode        ErrorCode = "orphan_node"
	CodeUnknownNodeType   ErrorCode = "unknown_node_type"
	CodeUnknownActionType ErrorCode = "unknown_action_type"
	CodeInvalidCondition  ErrorCode = "invalid_condition"
	CodeInvalidChain      ErrorCode = "invalid_chain"
)

// CompileError describes one validation failure found while compiling a
// graph. A non-empty error list blocks the workflow from going ACTIVE; it
// is surfaced to the editor, never to the dispatcher.
type CompileError struct {
	Code    ErrorCode `json:"code"`
	NodeID  string    `json:"node_id,omitempty"`
	Message string    `json:"message"`
}

func (e CompileError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s (node %s): %s", e.Code, e.NodeID, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
