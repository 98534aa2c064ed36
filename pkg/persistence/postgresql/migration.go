package postgresql

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate creates the schema if it does not exist. Statements are
// idempotent so startup can run them unconditionally.
func migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS workflows (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			trigger_kind     TEXT NOT NULL,
			trigger_config   JSONB,
			visual_state     JSONB,
			logic_state      JSONB,
			status           TEXT NOT NULL,
			is_active        BOOLEAN NOT NULL DEFAULT FALSE,
			priority         INTEGER NOT NULL DEFAULT 0,
			version          INTEGER NOT NULL DEFAULT 0,
			execution_count  BIGINT NOT NULL DEFAULT 0,
			last_executed_at TIMESTAMPTZ,
			created_by       TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workflows_dispatch
			ON workflows (trigger_kind, status, is_active, priority DESC, created_at ASC)`,
		`CREATE TABLE IF NOT EXISTS execution_reports (
			id          TEXT PRIMARY KEY,
			trigger_kind TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			results     JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_execution_reports_entity
			ON execution_reports (entity_type, entity_id, started_at)`,
	}

	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
