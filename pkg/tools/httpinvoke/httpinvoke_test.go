package httpinvoke

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lensflow/lensflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCapability() models.ToolCapability {
	return models.ToolCapability{
		PluginID:    "vision",
		ToolID:      "detect",
		InputTypes:  []string{"image"},
		OutputTypes: []string{"detections"},
	}
}

func TestToolFactory_Create_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	factory := NewToolFactory(testCapability())

	_, err := factory.Create(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestTool_Invoke(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any

		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "frame.png", payload["image"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"detections": []string{"person"}})
	}))
	defer server.Close()

	factory := NewToolFactory(testCapability())

	tool, err := factory.Create(map[string]any{"endpoint": server.URL})
	require.NoError(t, err)

	output, err := tool.Invoke(context.Background(), map[string]any{"image": "frame.png"})
	require.NoError(t, err)
	assert.Equal(t, []any{"person"}, output["detections"])
}

func TestTool_Invoke_ErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	factory := NewToolFactory(testCapability())

	tool, err := factory.Create(map[string]any{"endpoint": server.URL})
	require.NoError(t, err)

	_, err = tool.Invoke(context.Background(), map[string]any{"image": "frame.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "model not loaded")
}
