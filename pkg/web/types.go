// Package web provides the HTTP API for pipeline management and job
// lifecycle operations.
package web

import "github.com/lensflow/lensflow/pkg/models"

// RunRequest is the body for submitting a pipeline run.
type RunRequest struct {
	Payload map[string]any `json:"payload"`
}

// RunResponse acknowledges an accepted run submission.
type RunResponse struct {
	JobID string `json:"job_id"`
}

// RegisterPipelineRequest is the body for registering a pipeline definition.
type RegisterPipelineRequest struct {
	ID          string                 `json:"id"          validate:"required,min=1"`
	Name        string                 `json:"name"        validate:"required,min=1"`
	Description string                 `json:"description"`
	Nodes       []*models.PipelineNode `json:"nodes"       validate:"required,min=1"`
	Edges       []*models.PipelineEdge `json:"edges"`
	EntryNodes  []string               `json:"entry_nodes" validate:"required,min=1"`
	OutputNodes []string               `json:"output_nodes" validate:"required,min=1"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
}

// Definition converts the request into a pipeline definition.
func (r *RegisterPipelineRequest) Definition() *models.PipelineDefinition {
	return &models.PipelineDefinition{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
		EntryNodes:  r.EntryNodes,
		OutputNodes: r.OutputNodes,
		Metadata:    r.Metadata,
	}
}

// ValidateResponse reports the outcome of a dry-run validation.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
