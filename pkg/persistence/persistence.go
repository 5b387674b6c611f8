// Package persistence stores pipeline documents.
package persistence

import (
	"context"

	"github.com/dukex/idpflow/pkg/models"
)

type Persistence interface {
	// Pipelines returns every stored pipeline, most recently created first.
	Pipelines(ctx context.Context) ([]models.PipelineDocument, error)
	PipelineByID(ctx context.Context, id string) (models.PipelineDocument, error)
	SavePipeline(ctx context.Context, doc models.PipelineDocument) error
	DeletePipeline(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
