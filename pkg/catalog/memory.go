package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type entry struct {
	capability models.ToolCapability
	tool       protocol.Tool
}

// InMemoryCatalog holds registered tools keyed by plugin_id/tool_id. Writes
// happen at startup (native tools, manifest-declared plugins); reads are
// concurrent from validators and workers.
type InMemoryCatalog struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	entries map[string]entry
}

func NewInMemoryCatalog(logger *slog.Logger) *InMemoryCatalog {
	return &InMemoryCatalog{
		logger:  logger.With("module", "catalog"),
		entries: make(map[string]entry),
	}
}

// Register instantiates a tool from its factory and adds it under its
// capability key. Registering the same key twice is an error: capabilities
// are immutable once published to validators.
func (c *InMemoryCatalog) Register(factory protocol.ToolFactory, config map[string]any) error {
	capability := factory.Capability()

	if schema := factory.ConfigSchema(); schema != nil {
		if err := validateConfig(schema, config); err != nil {
			return &InvocationError{PluginID: capability.PluginID, ToolID: capability.ToolID, Err: err}
		}
	}

	tool, err := factory.Create(config)
	if err != nil {
		return &InvocationError{PluginID: capability.PluginID, ToolID: capability.ToolID, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := capability.Key()
	if _, exists := c.entries[key]; exists {
		return &InvocationError{
			PluginID: capability.PluginID,
			ToolID:   capability.ToolID,
			Err:      fmt.Errorf("tool %q already registered", key),
		}
	}

	c.entries[key] = entry{capability: capability, tool: tool}
	c.logger.Info("Registered tool",
		"plugin_id", capability.PluginID,
		"tool_id", capability.ToolID,
		"input_types", capability.InputTypes,
		"output_types", capability.OutputTypes,
	)

	return nil
}

func (c *InMemoryCatalog) Capability(pluginID, toolID string) (models.ToolCapability, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ent, ok := c.entries[pluginID+"/"+toolID]
	if !ok {
		return models.ToolCapability{}, fmt.Errorf("%w: %s/%s", ErrToolNotFound, pluginID, toolID)
	}

	return ent.capability, nil
}

func (c *InMemoryCatalog) Invoke(ctx context.Context, pluginID, toolID string, payload map[string]any) (map[string]any, error) {
	c.mu.RLock()
	ent, ok := c.entries[pluginID+"/"+toolID]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrToolNotFound, pluginID, toolID)
	}

	return ent.tool.Invoke(ctx, payload)
}

func (c *InMemoryCatalog) HealthCheck() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.entries) == 0 {
		return "no tools registered", false
	}

	return fmt.Sprintf("%d tools registered", len(c.entries)), true
}

// Capabilities returns all registered capabilities, for discovery endpoints.
func (c *InMemoryCatalog) Capabilities() []models.ToolCapability {
	c.mu.RLock()
	defer c.mu.RUnlock()

	capabilities := make([]models.ToolCapability, 0, len(c.entries))
	for _, ent := range c.entries {
		capabilities = append(capabilities, ent.capability)
	}

	return capabilities
}

// validateConfig validates tool configuration against the factory's declared
// JSON schema.
func validateConfig(schema, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	configLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, configLoader)
	if err != nil {
		return fmt.Errorf("config schema validation: %w", err)
	}

	if !result.Valid() {
		detail := ""
		for _, desc := range result.Errors() {
			if detail != "" {
				detail += "; "
			}

			detail += desc.String()
		}

		return fmt.Errorf("invalid tool config: %s", detail)
	}

	return nil
}
