// Package catalog exposes the tool catalog consumed by the pipeline engine:
// declared capabilities per (plugin_id, tool_id) and a uniform invoke
// contract over arbitrary plugin implementations.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/lensflow/lensflow/pkg/models"
)

// ErrToolNotFound indicates no tool is registered under (plugin_id, tool_id).
var ErrToolNotFound = errors.New("tool not found")

// Catalog is the capability interface the engine programs against. The
// validator uses Capability only; the executor additionally calls Invoke.
type Catalog interface {
	// Capability resolves the declared type tags for a tool. Unknown tools
	// yield an error wrapping ErrToolNotFound.
	Capability(pluginID, toolID string) (models.ToolCapability, error)

	// Invoke runs the tool against the given payload and returns its output
	// payload. Tool errors are returned as-is; the caller is responsible for
	// wrapping them with node context.
	Invoke(ctx context.Context, pluginID, toolID string, payload map[string]any) (map[string]any, error)

	// HealthCheck returns a human-readable status and whether the catalog is
	// usable.
	HealthCheck() (string, bool)
}

// InvocationError wraps a configuration problem surfaced while registering or
// instantiating a tool, as opposed to an error raised by the tool itself.
type InvocationError struct {
	PluginID string
	ToolID   string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool %s/%s: %v", e.PluginID, e.ToolID, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
