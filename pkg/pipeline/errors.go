// Package pipeline implements validation and deterministic DAG execution of
// tool pipelines.
package pipeline

import (
	"fmt"
	"strings"
)

// ValidationErrorKind discriminates the structural and type errors a
// pipeline definition can carry.
type ValidationErrorKind string

const (
	ErrKindDuplicateNode   ValidationErrorKind = "duplicate_node"
	ErrKindUnknownEdgeNode ValidationErrorKind = "unknown_edge_node"
	ErrKindUnknownEntry    ValidationErrorKind = "unknown_entry_node"
	ErrKindUnknownOutput   ValidationErrorKind = "unknown_output_node"
	ErrKindCycle           ValidationErrorKind = "cycle"
	ErrKindUnreachable     ValidationErrorKind = "unreachable_node"
	ErrKindSinkNotOutput   ValidationErrorKind = "sink_not_output"
	ErrKindUnknownTool     ValidationErrorKind = "unknown_tool"
	ErrKindTypeMismatch    ValidationErrorKind = "type_mismatch"
)

// ValidationError describes one violation found in a pipeline definition.
// Validation always reports the full list of violations, never just the
// first one.
type ValidationError struct {
	Kind    ValidationErrorKind `json:"kind"`
	NodeID  string              `json:"node_id,omitempty"`
	NodeIDs []string            `json:"node_ids,omitempty"`
	Message string              `json:"message"`
}

func (e ValidationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: node %s: %s", e.Kind, e.NodeID, e.Message)
	}

	if len(e.NodeIDs) > 0 {
		return fmt.Sprintf("%s: nodes [%s]: %s", e.Kind, strings.Join(e.NodeIDs, ", "), e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ValidationErrors aggregates all violations of one definition so the
// registry can reject it with a single error value.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, validationErr := range e {
		messages = append(messages, validationErr.Error())
	}

	return fmt.Sprintf("pipeline validation failed: %s", strings.Join(messages, "; "))
}

// Strings returns the individual error messages, the shape exposed by the
// validate endpoint.
func (e ValidationErrors) Strings() []string {
	messages := make([]string, 0, len(e))
	for _, validationErr := range e {
		messages = append(messages, validationErr.Error())
	}

	return messages
}

// ErrKindToolInvocation labels execution errors in job records and events.
const ErrKindToolInvocation = "tool_invocation"

// ExecutionError wraps a tool invocation failure mid-run. It is always fatal
// to the run: no partial or degraded result is ever returned.
type ExecutionError struct {
	NodeID   string
	PluginID string
	ToolID   string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %s (%s/%s) failed: %v", e.NodeID, e.PluginID, e.ToolID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
