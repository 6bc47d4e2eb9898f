package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lensflow/lensflow/pkg/models"
)

// Manifest declares an externally hosted analysis tool: its capability type
// tags plus the endpoint the engine delegates invocations to. Manifests are
// the load format for plugins the process does not link natively.
type Manifest struct {
	PluginID    string         `json:"plugin_id"    validate:"required"`
	ToolID      string         `json:"tool_id"      validate:"required"`
	InputTypes  []string       `json:"input_types"  validate:"required,min=1"`
	OutputTypes []string       `json:"output_types" validate:"required,min=1"`
	Endpoint    string         `json:"endpoint"     validate:"required,url"`
	Config      map[string]any `json:"config,omitempty"`
}

// Capability returns the capability declared by the manifest.
func (m Manifest) Capability() models.ToolCapability {
	return models.ToolCapability{
		PluginID:    m.PluginID,
		ToolID:      m.ToolID,
		InputTypes:  m.InputTypes,
		OutputTypes: m.OutputTypes,
	}
}

// LoadManifests reads all *.json manifests under dir. A missing directory is
// not an error: deployments without external plugins simply have none.
func LoadManifests(dir string) ([]Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read manifests directory %s: %w", dir, err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	var manifests []Manifest

	for _, fileEntry := range entries {
		if fileEntry.IsDir() || !strings.HasSuffix(fileEntry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, fileEntry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
		}

		if err := validate.Struct(manifest); err != nil {
			return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
		}

		manifests = append(manifests, manifest)
	}

	return manifests, nil
}
