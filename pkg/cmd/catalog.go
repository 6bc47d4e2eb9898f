package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/tools/annotate"
	"github.com/lensflow/lensflow/pkg/tools/httpinvoke"
	"github.com/lensflow/lensflow/pkg/tools/transform"
)

// passthroughTypes are the tags native pass-through tools accept and emit,
// so they can sit between any pair of analysis tools.
var passthroughTypes = []string{"image", "detections", "text", "metadata"}

// NewCatalog builds the tool catalog: native tools first, then every
// manifest-declared plugin from manifestsPath as an HTTP-delegating tool.
func NewCatalog(ctx context.Context, logger *slog.Logger, manifestsPath string) (*catalog.InMemoryCatalog, error) {
	cat := catalog.NewInMemoryCatalog(logger)

	err := registerNativeTools(logger, cat)
	if err != nil {
		return nil, err
	}

	manifests, err := catalog.LoadManifests(manifestsPath)
	if err != nil {
		return nil, err
	}

	for _, manifest := range manifests {
		config := map[string]any{"endpoint": manifest.Endpoint}
		for key, value := range manifest.Config {
			config[key] = value
		}

		err = cat.Register(httpinvoke.NewToolFactory(manifest.Capability()), config)
		if err != nil {
			return nil, fmt.Errorf("failed to register manifest tool %s/%s: %w",
				manifest.PluginID, manifest.ToolID, err)
		}
	}

	logger.InfoContext(ctx, "Tool catalog initialized", "manifests", len(manifests))

	return cat, nil
}

func registerNativeTools(logger *slog.Logger, cat *catalog.InMemoryCatalog) error {
	annotateFactory := annotate.NewToolFactory(logger, models.ToolCapability{
		PluginID:    "core",
		ToolID:      "annotate",
		InputTypes:  passthroughTypes,
		OutputTypes: passthroughTypes,
	})

	err := cat.Register(annotateFactory, nil)
	if err != nil {
		return fmt.Errorf("failed to register annotate tool: %w", err)
	}

	transformFactory := transform.NewToolFactory(models.ToolCapability{
		PluginID:    "core",
		ToolID:      "transform",
		InputTypes:  passthroughTypes,
		OutputTypes: passthroughTypes,
	})

	err = cat.Register(transformFactory, nil)
	if err != nil {
		return fmt.Errorf("failed to register transform tool: %w", err)
	}

	return nil
}
