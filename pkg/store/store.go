// Package store provides the storage abstraction for registered pipeline
// definitions.
package store

import (
	"context"

	"github.com/lensflow/lensflow/pkg/models"
)

// PipelineStore persists validated pipeline definitions. The registry is
// append-only: implementations reject a save whose id is already stored.
type PipelineStore interface {
	Pipelines(ctx context.Context) ([]*models.PipelineDefinition, error)
	SavePipeline(ctx context.Context, def *models.PipelineDefinition) error
	PipelineByID(ctx context.Context, id string) (*models.PipelineDefinition, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
