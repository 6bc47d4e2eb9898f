package mocks

import (
	"context"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockCatalog is a mock implementation of the catalog.Catalog interface.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Capability(pluginID, toolID string) (models.ToolCapability, error) {
	args := m.Called(pluginID, toolID)

	capability, _ := args.Get(0).(models.ToolCapability)

	return capability, args.Error(1)
}

func (m *MockCatalog) Invoke(ctx context.Context, pluginID, toolID string, payload map[string]any) (map[string]any, error) {
	args := m.Called(ctx, pluginID, toolID, payload)

	output, _ := args.Get(0).(map[string]any)

	return output, args.Error(1)
}

func (m *MockCatalog) HealthCheck() (string, bool) {
	args := m.Called()

	return args.String(0), args.Bool(1)
}
