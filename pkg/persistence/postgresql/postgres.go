// Package postgresql provides PostgreSQL persistence for pipelines.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// postgres driver
	_ "github.com/lib/pq"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/persistence"
)

// Persistence stores each pipeline as a JSONB document.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	err = migrate(ctx, database, logger)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Pipelines(ctx context.Context) ([]models.PipelineDocument, error) {
	query := `
		SELECT document
		FROM pipelines
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	docs := make([]models.PipelineDocument, 0)

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pipelines: %w", err)
	}

	return docs, nil
}

func (p *Persistence) PipelineByID(ctx context.Context, id string) (models.PipelineDocument, error) {
	query := `
		SELECT document
		FROM pipelines
		WHERE id = $1 AND deleted_at IS NULL
	`

	doc, err := scanDocument(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PipelineDocument{}, persistence.NewPipelineError("PipelineByID", id, persistence.ErrPipelineNotFound)
	}

	if err != nil {
		return models.PipelineDocument{}, persistence.NewPipelineError("PipelineByID", id, err)
	}

	return doc, nil
}

// SavePipeline inserts or replaces the pipeline. Saving a deleted pipeline
// restores it.
func (p *Persistence) SavePipeline(ctx context.Context, doc models.PipelineDocument) error {
	if err := persistence.ValidatePipelineID(doc.ID); err != nil {
		return persistence.NewPipelineError("SavePipeline", doc.ID, err)
	}

	document, err := json.Marshal(doc)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", doc.ID, err)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO pipelines (id, name, node_count, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , node_count = EXCLUDED.node_count
		  , document = EXCLUDED.document
		  , updated_at = NOW()
		  , deleted_at = NULL
	`

	_, err = p.db.ExecContext(ctx, query, doc.ID, doc.Name, len(doc.Nodes), document, createdAt)
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", doc.ID, err)
	}

	return nil
}

// DeletePipeline soft deletes a pipeline by setting deleted_at timestamp.
func (p *Persistence) DeletePipeline(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `UPDATE pipelines SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return persistence.NewPipelineError("DeletePipeline", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewPipelineError("DeletePipeline", id, err)
	}

	if affected == 0 {
		return persistence.NewPipelineError("DeletePipeline", id, persistence.ErrPipelineNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (models.PipelineDocument, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return models.PipelineDocument{}, err
	}

	var doc models.PipelineDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.PipelineDocument{}, fmt.Errorf("failed to decode pipeline document: %w", err)
	}

	return doc, nil
}
