// Package transform provides a key remapping tool: payload keys are renamed
// or dropped according to a configured mapping.
package transform

import (
	"context"
	"fmt"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/protocol"
)

type ToolFactory struct {
	capability models.ToolCapability
}

func NewToolFactory(capability models.ToolCapability) *ToolFactory {
	return &ToolFactory{capability: capability}
}

// Create builds a transform tool. An absent or empty mapping yields the
// identity transform.
func (f *ToolFactory) Create(config map[string]any) (protocol.Tool, error) {
	rawMapping, _ := config["mapping"].(map[string]any)

	mapping := make(map[string]string, len(rawMapping))

	for from, to := range rawMapping {
		target, ok := to.(string)
		if !ok {
			return nil, fmt.Errorf("transform mapping for %q must be a string", from)
		}

		mapping[from] = target
	}

	return &Tool{mapping: mapping}, nil
}

func (f *ToolFactory) Capability() models.ToolCapability {
	return f.capability
}

func (f *ToolFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mapping": map[string]any{
				"type":        "object",
				"description": "Source key to target key. An empty target drops the key.",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
		},
	}
}

type Tool struct {
	mapping map[string]string
}

// Invoke renames mapped keys and keeps unmapped keys as they are. Mapping a
// key to the empty string drops it.
func (t *Tool) Invoke(_ context.Context, payload map[string]any) (map[string]any, error) {
	output := make(map[string]any, len(payload))

	for key, value := range payload {
		target, mapped := t.mapping[key]
		if !mapped {
			output[key] = value

			continue
		}

		if target == "" {
			continue
		}

		output[target] = value
	}

	return output, nil
}
