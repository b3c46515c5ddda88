package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is a single schema change applied in order.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrator applies schema migrations, tracking applied versions in
// schema_migrations.
type Migrator struct {
	db *DB
}

// NewMigrator creates a migrator for the given database.
func NewMigrator(db *DB) *Migrator {
	return &Migrator{db: db}
}

// migrations is the ordered list of schema changes.
// The missions table holds one definition record per run, written once at
// submission time. The mission_nodes table holds the latest status snapshot
// per (run_id, step_id). The mission_events table is append-only; seq is the
// replay order key.
var migrations = []Migration{
	{
		Version:     1,
		Description: "create missions table",
		SQL: `
			CREATE TABLE IF NOT EXISTS missions (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				goal TEXT NOT NULL DEFAULT '',
				risk_level TEXT NOT NULL DEFAULT 'low',
				inputs TEXT,
				edges TEXT,
				status TEXT NOT NULL DEFAULT 'pending',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		Version:     2,
		Description: "create mission_nodes table",
		SQL: `
			CREATE TABLE IF NOT EXISTS mission_nodes (
				run_id TEXT NOT NULL,
				step_id TEXT NOT NULL,
				capability TEXT NOT NULL,
				team_scope TEXT NOT NULL DEFAULT '',
				deps TEXT,
				status TEXT NOT NULL DEFAULT 'pending',
				result TEXT,
				error TEXT,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (run_id, step_id),
				FOREIGN KEY (run_id) REFERENCES missions(id) ON DELETE CASCADE
			);
		`,
	},
	{
		Version:     3,
		Description: "create mission_events table",
		SQL: `
			CREATE TABLE IF NOT EXISTS mission_events (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL,
				run_id TEXT NOT NULL,
				step_id TEXT NOT NULL,
				parent_id TEXT,
				event_type TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT '',
				payload TEXT,
				merged_from TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_mission_events_run
				ON mission_events(run_id, seq);
		`,
	},
}

// Migrate applies all pending migrations in version order.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	current, err := m.currentVersion(ctx)
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", mig.Version, mig.Description, err)
		}
	}
	return nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) currentVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := m.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read current schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	return m.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			mig.Version, mig.Description,
		)
		return err
	})
}
