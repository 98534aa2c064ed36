// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/coinflux/ruleflow/pkg/models"
	"github.com/coinflux/ruleflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on PostgreSQL. Workflow
// documents (graph, expression, trigger config) are stored as jsonb.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence opens the database, verifies connectivity and runs the
// idempotent schema migration.
func NewPersistence(ctx context.Context, databaseURL string, logger *slog.Logger) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		return nil, err
	}

	return &Persistence{db: db, logger: logger.With("module", "postgresql")}, nil
}

const workflowColumns = `
	id, name, description, trigger_kind, trigger_config, visual_state, logic_state,
	status, is_active, priority, version, execution_count, last_executed_at,
	created_by, created_at, updated_at`

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at ASC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	return p.collectWorkflows(ctx, rows)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	triggerConfig, err := marshalJSONB(workflow.TriggerConfig)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	visualState, err := marshalJSONB(workflow.VisualState)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	logicState, err := marshalJSONB(workflow.LogicState)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_kind = EXCLUDED.trigger_kind,
			trigger_config = EXCLUDED.trigger_config,
			visual_state = EXCLUDED.visual_state,
			logic_state = EXCLUDED.logic_state,
			status = EXCLUDED.status,
			is_active = EXCLUDED.is_active,
			priority = EXCLUDED.priority,
			version = EXCLUDED.version,
			created_by = EXCLUDED.created_by,
			updated_at = EXCLUDED.updated_at`

	_, err = p.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		string(workflow.Trigger),
		triggerConfig,
		visualState,
		logicState,
		string(workflow.Status),
		workflow.IsActive,
		workflow.Priority,
		workflow.Version,
		workflow.ExecutionCount,
		workflow.LastExecutedAt,
		workflow.CreatedBy,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// ListActiveWorkflowsByTrigger returns dispatchable workflows in dispatch
// order. The ordering lives in the query so two dispatchers can never see
// different effective precedence.
func (p *Persistence) ListActiveWorkflowsByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE trigger_kind = $1
		  AND status = $2
		  AND is_active = TRUE
		ORDER BY priority DESC, created_at ASC`

	rows, err := p.db.QueryContext(ctx, query, string(trigger), string(models.WorkflowStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to query active workflows: %w", err)
	}

	return p.collectWorkflows(ctx, rows)
}

// RecordExecution bumps the counter with a single atomic UPDATE.
func (p *Persistence) RecordExecution(ctx context.Context, workflowID string, _ bool) error {
	query := `
		UPDATE workflows
		SET execution_count = execution_count + 1,
		    last_executed_at = NOW()
		WHERE id = $1`

	result, err := p.db.ExecContext(ctx, query, workflowID)
	if err != nil {
		return persistence.NewWorkflowError("RecordExecution", workflowID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("RecordExecution", workflowID, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("RecordExecution", workflowID, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (p *Persistence) SaveExecutionReport(ctx context.Context, report *models.ExecutionReport) error {
	results, err := marshalJSONB(report.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal execution report %s: %w", report.ID, err)
	}

	query := `
		INSERT INTO execution_reports (id, trigger_kind, entity_type, entity_id, started_at, duration_ms, results)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err = p.db.ExecContext(ctx, query,
		report.ID,
		string(report.Trigger),
		report.EntityType,
		report.EntityID,
		report.StartedAt,
		report.DurationMs,
		results,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution report %s: %w", report.ID, err)
	}

	return nil
}

func (p *Persistence) ExecutionReports(ctx context.Context, entityType, entityID string) ([]*models.ExecutionReport, error) {
	query := `
		SELECT id, trigger_kind, entity_type, entity_id, started_at, duration_ms, results
		FROM execution_reports
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY started_at ASC`

	rows, err := p.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution reports: %w", err)
	}

	defer p.closeRows(ctx, rows)

	reports := make([]*models.ExecutionReport, 0)

	for rows.Next() {
		var (
			report  models.ExecutionReport
			trigger string
			results []byte
		)

		err := rows.Scan(&report.ID, &trigger, &report.EntityType, &report.EntityID,
			&report.StartedAt, &report.DurationMs, &results)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution report: %w", err)
		}

		report.Trigger = models.TriggerKind(trigger)

		if len(results) > 0 {
			if err := json.Unmarshal(results, &report.Results); err != nil {
				return nil, fmt.Errorf("failed to decode execution report %s: %w", report.ID, err)
			}
		}

		reports = append(reports, &report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution reports: %w", err)
	}

	return reports, nil
}

func (p *Persistence) PruneExecutionReports(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := p.db.ExecContext(ctx, `DELETE FROM execution_reports WHERE started_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune execution reports: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned execution reports: %w", err)
	}

	return int(affected), nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	return p.db.Close()
}

func (p *Persistence) collectWorkflows(ctx context.Context, rows *sql.Rows) ([]*models.Workflow, error) {
	defer p.closeRows(ctx, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (p *Persistence) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		p.logger.ErrorContext(ctx, "Failed to close rows", "error", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		trigger       string
		status        string
		triggerConfig []byte
		visualState   []byte
		logicState    []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&trigger,
		&triggerConfig,
		&visualState,
		&logicState,
		&status,
		&workflow.IsActive,
		&workflow.Priority,
		&workflow.Version,
		&workflow.ExecutionCount,
		&workflow.LastExecutedAt,
		&workflow.CreatedBy,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Trigger = models.TriggerKind(trigger)
	workflow.Status = models.WorkflowStatus(status)

	if len(triggerConfig) > 0 {
		if err := json.Unmarshal(triggerConfig, &workflow.TriggerConfig); err != nil {
			return nil, fmt.Errorf("failed to decode trigger config: %w", err)
		}
	}

	if len(visualState) > 0 {
		if err := json.Unmarshal(visualState, &workflow.VisualState); err != nil {
			return nil, fmt.Errorf("failed to decode visual state: %w", err)
		}
	}

	if len(logicState) > 0 {
		if err := json.Unmarshal(logicState, &workflow.LogicState); err != nil {
			return nil, fmt.Errorf("failed to decode logic state: %w", err)
		}
	}

	return &workflow, nil
}

// marshalJSONB renders a document column, keeping NULL for absent values.
func marshalJSONB(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	if string(data) == "null" {
		return nil, nil
	}

	return data, nil
}
