// Package protocol defines the interfaces and contracts for pluggable
// analysis tools.
package protocol

import (
	"context"

	"github.com/lensflow/lensflow/pkg/models"
)

// Tool is one configured analysis tool instance. Invoke receives the merged
// input payload for a pipeline node and returns the tool's output payload.
// Payloads are untyped key-value maps: tool schemas are declared only as
// coarse type tags on the capability, never as field-level schemas.
type Tool interface {
	Invoke(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// ToolFactory creates tool instances and declares their capability.
type ToolFactory interface {
	// Create creates a configured tool instance.
	Create(config map[string]any) (Tool, error)

	// Capability returns the declared input/output type tags for the tool.
	Capability() models.ToolCapability

	// ConfigSchema returns the JSON schema for the tool's configuration,
	// or nil when the tool takes no configuration.
	ConfigSchema() map[string]any
}
