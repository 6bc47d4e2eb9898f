package models

// ExecutionContext holds the per-run state accumulated while walking a
// pipeline. It lives only for the duration of one run.
type ExecutionContext struct {
	RunID          string                    `json:"run_id"`
	PipelineID     string                    `json:"pipeline_id"`
	InitialPayload map[string]any            `json:"initial_payload,omitempty"`
	NodeOutputs    map[string]map[string]any `json:"node_outputs,omitempty"`
}

// NewExecutionContext creates the run state for one pipeline execution.
func NewExecutionContext(runID, pipelineID string, initialPayload map[string]any) *ExecutionContext {
	return &ExecutionContext{
		RunID:          runID,
		PipelineID:     pipelineID,
		InitialPayload: initialPayload,
		NodeOutputs:    make(map[string]map[string]any),
	}
}
