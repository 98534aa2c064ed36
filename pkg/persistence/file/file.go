// Package file provides a file-system backed persistence implementation.
// It exists for local development and tests; one JSON document per
// workflow or execution report.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coinflux/ruleflow/pkg/models"
	"github.com/coinflux/ruleflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory.
// A single process-wide mutex serializes writes; that is what keeps
// RecordExecution's read-modify-write of the counter atomic for this
// adapter.
type Persistence struct {
	root string
	mu   sync.Mutex
}

// NewPersistence creates a file persistence rooted at the given directory,
// accepting either a plain path or a file:// URL.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.TrimPrefix(root, "file://")

	for _, dir := range []string{workflowsDir(cleanRoot), reportsDir(cleanRoot)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create persistence directory %s: %w", dir, err)
		}
	}

	return &Persistence{root: cleanRoot}, nil
}

func workflowsDir(root string) string { return filepath.Join(root, "workflows") }
func reportsDir(root string) string   { return filepath.Join(root, "reports") }

func (p *Persistence) workflowPath(id string) string {
	return filepath.Join(workflowsDir(p.root), id+".json")
}

func (p *Persistence) reportPath(id string) string {
	return filepath.Join(reportsDir(p.root), id+".json")
}

func (p *Persistence) Workflows(_ context.Context) ([]*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.readWorkflows()
}

func (p *Persistence) readWorkflows() ([]*models.Workflow, error) {
	entries, err := os.ReadDir(workflowsDir(p.root))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflows directory: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		workflow, err := p.readWorkflow(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (p *Persistence) readWorkflow(id string) (*models.Workflow, error) {
	data, err := os.ReadFile(p.workflowPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("Read", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("Read", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("Read", id, err)
	}

	return &workflow, nil
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.readWorkflow(id)
}

func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.writeWorkflow(workflow)
}

func (p *Persistence) writeWorkflow(workflow *models.Workflow) error {
	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := os.WriteFile(p.workflowPath(workflow.ID), data, 0o644); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.workflowPath(id)); err != nil {
		if os.IsNotExist(err) {
			return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

// ListActiveWorkflowsByTrigger filters to dispatchable workflows for the
// trigger and applies the dispatch ordering: priority descending, then
// created-at ascending.
func (p *Persistence) ListActiveWorkflowsByTrigger(_ context.Context, trigger models.TriggerKind) ([]*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	all, err := p.readWorkflows()
	if err != nil {
		return nil, err
	}

	matching := make([]*models.Workflow, 0)

	for _, workflow := range all {
		if workflow.Trigger == trigger && workflow.Dispatchable() {
			matching = append(matching, workflow)
		}
	}

	sort.SliceStable(matching, func(i, j int) bool {
		if matching[i].Priority != matching[j].Priority {
			return matching[i].Priority > matching[j].Priority
		}

		return matching[i].CreatedAt.Before(matching[j].CreatedAt)
	})

	return matching, nil
}

// RecordExecution bumps the execution counter and stamps the attempt time.
// The write happens under the adapter mutex, so concurrent dispatches of
// the same workflow cannot lose increments.
func (p *Persistence) RecordExecution(_ context.Context, workflowID string, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, err := p.readWorkflow(workflowID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	workflow.ExecutionCount++
	workflow.LastExecutedAt = &now

	return p.writeWorkflow(workflow)
}

func (p *Persistence) SaveExecutionReport(_ context.Context, report *models.ExecutionReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution report %s: %w", report.ID, err)
	}

	if err := os.WriteFile(p.reportPath(report.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write execution report %s: %w", report.ID, err)
	}

	return nil
}

func (p *Persistence) ExecutionReports(_ context.Context, entityType, entityID string) ([]*models.ExecutionReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries, err := os.ReadDir(reportsDir(p.root))
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	reports := make([]*models.ExecutionReport, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(reportsDir(p.root), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read execution report %s: %w", entry.Name(), err)
		}

		var report models.ExecutionReport
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("failed to decode execution report %s: %w", entry.Name(), err)
		}

		if report.EntityType == entityType && report.EntityID == entityID {
			reports = append(reports, &report)
		}
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].StartedAt.Before(reports[j].StartedAt)
	})

	return reports, nil
}

func (p *Persistence) PruneExecutionReports(_ context.Context, olderThan time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries, err := os.ReadDir(reportsDir(p.root))
	if err != nil {
		return 0, fmt.Errorf("failed to read reports directory: %w", err)
	}

	pruned := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(reportsDir(p.root), entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			return pruned, fmt.Errorf("failed to read execution report %s: %w", entry.Name(), err)
		}

		var report models.ExecutionReport
		if err := json.Unmarshal(data, &report); err != nil {
			return pruned, fmt.Errorf("failed to decode execution report %s: %w", entry.Name(), err)
		}

		if report.StartedAt.Before(olderThan) {
			if err := os.Remove(path); err != nil {
				return pruned, fmt.Errorf("failed to prune execution report %s: %w", entry.Name(), err)
			}

			pruned++
		}
	}

	return pruned, nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
