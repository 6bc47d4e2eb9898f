// Package annotate provides a structured log sink tool. It records the
// payload it receives and passes it through unchanged, so it can sit at any
// point of a pipeline.
package annotate

import (
	"context"
	"log/slog"
	"maps"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/protocol"
)

type ToolFactory struct {
	logger     *slog.Logger
	capability models.ToolCapability
}

func NewToolFactory(logger *slog.Logger, capability models.ToolCapability) *ToolFactory {
	return &ToolFactory{
		logger:     logger,
		capability: capability,
	}
}

func (f *ToolFactory) Create(config map[string]any) (protocol.Tool, error) {
	if config == nil {
		config = map[string]any{}
	}

	label, _ := config["label"].(string)
	if label == "" {
		label = "annotate"
	}

	return &Tool{
		logger: f.logger.With("tool", "annotate", "label", label),
		label:  label,
	}, nil
}

func (f *ToolFactory) Capability() models.ToolCapability {
	return f.capability
}

func (f *ToolFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"label": map[string]any{
				"type":        "string",
				"description": "Label attached to every logged payload",
				"default":     "annotate",
			},
		},
	}
}

type Tool struct {
	logger *slog.Logger
	label  string
}

func (t *Tool) Invoke(ctx context.Context, payload map[string]any) (map[string]any, error) {
	t.logger.InfoContext(ctx, "Payload annotated", "keys", len(payload))

	output := make(map[string]any, len(payload)+1)
	maps.Copy(output, payload)
	output["annotated_by"] = t.label

	return output, nil
}
