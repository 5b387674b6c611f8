package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migrationLockID serializes schema changes across API replicas sharing a database.
const migrationLockID = 7_305_021

type migration struct {
	version     int
	description string
	statement   string
}

var migrations = []migration{
	{
		version:     1,
		description: "pipelines table",
		statement: `
			CREATE TABLE pipelines (
				id VARCHAR(128) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				node_count INT NOT NULL DEFAULT 0,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_pipelines_created_at ON pipelines(created_at);
			CREATE INDEX idx_pipelines_deleted_at ON pipelines(deleted_at);
		`,
	},
	{
		version:     2,
		description: "node index",
		statement:   `CREATE INDEX idx_pipelines_document_nodes ON pipelines USING GIN ((document -> 'nodes'));`,
	},
}

func latestVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate brings the schema to the latest version in a single transaction.
func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to lock schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to query current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		logger.InfoContext(ctx, "Applying migration", "version", m.version, "description", m.description)

		if _, err := tx.ExecContext(ctx, m.statement); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			m.version, m.description); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	logger.InfoContext(ctx, "Schema is up to date", "from", current, "version", latestVersion())

	return nil
}
