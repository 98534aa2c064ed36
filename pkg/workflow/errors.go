// Package workflow provides the workflow repository and the lifecycle
// service that moves workflows between DRAFT, ACTIVE, PAUSED and ARCHIVED.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coinflux/ruleflow/pkg/compiler"
)

var (
	// ErrWorkflowArchived indicates an operation on a terminally archived
	// workflow.
	ErrWorkflowArchived = errors.New("workflow is archived")

	// ErrCannotEditActive indicates an attempt to edit the graph of an
	// ACTIVE workflow; it must be paused first.
	ErrCannotEditActive = errors.New("cannot edit an active workflow, pause it first")

	// ErrNotActive indicates a pause on a workflow that is not ACTIVE.
	ErrNotActive = errors.New("workflow is not active")

	// ErrNotPaused indicates a resume on a workflow that is not PAUSED.
	ErrNotPaused = errors.New("workflow is not paused")
)

// CompileFailedError carries the full validation error list of a rejected
// publish so the editor can surface every problem at once.
type CompileFailedError struct {
	WorkflowID string
	Errors     []compiler.CompileError
}

func (e *CompileFailedError) Error() string {
	messages := make([]string, len(e.Errors))
	for i, compileErr := range e.Errors {
		messages[i] = compileErr.Error()
	}

	return fmt.Sprintf("workflow %s failed to compile: %s", e.WorkflowID, strings.Join(messages, "; "))
}

// IsCompileFailed checks whether the error is a rejected publish.
func IsCompileFailed(err error) bool {
	var target *CompileFailedError

	return errors.As(err, &target)
}

// IsConflict checks whether the error is a lifecycle conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrWorkflowArchived) ||
		errors.Is(err, ErrCannotEditActive) ||
		errors.Is(err, ErrNotActive) ||
		errors.Is(err, ErrNotPaused)
}
