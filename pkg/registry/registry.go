// Package registry holds the set of validated pipeline definitions available
// for execution. Registration is append-only: a definition is validated once,
// stored, and never mutated afterwards.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/pipeline"
	"github.com/lensflow/lensflow/pkg/store"
)

// ErrPipelineExists indicates a registration under an id that is already
// taken.
var ErrPipelineExists = errors.New("pipeline already registered")

// ErrPipelineNotFound indicates a lookup for an id that was never registered.
var ErrPipelineNotFound = errors.New("pipeline not registered")

type Registry struct {
	logger  *slog.Logger
	store   store.PipelineStore
	catalog catalog.Catalog

	mu        sync.RWMutex
	pipelines map[string]*models.PipelineDefinition
	order     []string
}

// NewRegistry hydrates the registry from the store. Every stored definition
// is re-validated against the current catalog; a definition that no longer
// validates (a tool disappeared, types changed) fails startup rather than
// being silently skipped.
func NewRegistry(ctx context.Context, logger *slog.Logger, st store.PipelineStore, cat catalog.Catalog) (*Registry, error) {
	r := &Registry{
		logger:    logger.With("module", "registry"),
		store:     st,
		catalog:   cat,
		pipelines: make(map[string]*models.PipelineDefinition),
	}

	stored, err := st.Pipelines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipelines: %w", err)
	}

	for _, def := range stored {
		if errs := pipeline.Validate(def, cat); len(errs) > 0 {
			return nil, fmt.Errorf("stored pipeline %s no longer validates: %w", def.ID, errs)
		}

		r.pipelines[def.ID] = def
		r.order = append(r.order, def.ID)
	}

	r.logger.InfoContext(ctx, "Registry hydrated", "pipelines", len(r.order))

	return r, nil
}

// Register validates the definition and, when it is clean, persists and
// indexes it. On violations the full list is returned as
// pipeline.ValidationErrors and nothing is stored.
func (r *Registry) Register(ctx context.Context, def *models.PipelineDefinition) error {
	if errs := pipeline.Validate(def, r.catalog); len(errs) > 0 {
		return errs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pipelines[def.ID]; exists {
		return fmt.Errorf("pipeline %s: %w", def.ID, ErrPipelineExists)
	}

	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now().UTC()
	}

	err := r.store.SavePipeline(ctx, def)
	if err != nil {
		if errors.Is(err, store.ErrPipelineExists) {
			return fmt.Errorf("pipeline %s: %w", def.ID, ErrPipelineExists)
		}

		return err
	}

	r.pipelines[def.ID] = def
	r.order = append(r.order, def.ID)

	r.logger.InfoContext(ctx, "Pipeline registered",
		"pipeline_id", def.ID,
		"nodes", len(def.Nodes),
		"edges", len(def.Edges),
	)

	return nil
}

// Get returns the registered definition for id.
func (r *Registry) Get(id string) (*models.PipelineDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.pipelines[id]
	if !ok {
		return nil, fmt.Errorf("pipeline %s: %w", id, ErrPipelineNotFound)
	}

	return def, nil
}

// List returns summaries of every registered pipeline in registration order.
func (r *Registry) List() []models.PipelineSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]models.PipelineSummary, 0, len(r.order))
	for _, id := range r.order {
		summaries = append(summaries, r.pipelines[id].Summary())
	}

	return summaries
}

// HealthCheck reports the backing store's health.
func (r *Registry) HealthCheck(ctx context.Context) error {
	return r.store.HealthCheck(ctx)
}
