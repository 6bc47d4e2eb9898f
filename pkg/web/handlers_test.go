package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/jobs"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/pipeline"
	"github.com/lensflow/lensflow/pkg/registry"
	"github.com/lensflow/lensflow/pkg/store/file"
	"github.com/lensflow/lensflow/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	capabilities map[string]models.ToolCapability
}

func (c *stubCatalog) Capability(pluginID, toolID string) (models.ToolCapability, error) {
	capability, ok := c.capabilities[pluginID+"/"+toolID]
	if !ok {
		return models.ToolCapability{}, fmt.Errorf("%w: %s/%s", catalog.ErrToolNotFound, pluginID, toolID)
	}

	return capability, nil
}

func (c *stubCatalog) Invoke(_ context.Context, pluginID, toolID string, payload map[string]any) (map[string]any, error) {
	if _, ok := c.capabilities[pluginID+"/"+toolID]; !ok {
		return nil, fmt.Errorf("%w: %s/%s", catalog.ErrToolNotFound, pluginID, toolID)
	}

	return map[string]any{"invoked": pluginID + "/" + toolID}, nil
}

func (c *stubCatalog) HealthCheck() (string, bool) {
	return fmt.Sprintf("%d tools registered", len(c.capabilities)), len(c.capabilities) > 0
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{capabilities: map[string]models.ToolCapability{
		"vision/detect": {
			PluginID:    "vision",
			ToolID:      "detect",
			InputTypes:  []string{"image"},
			OutputTypes: []string{"detections"},
		},
		"vision/render": {
			PluginID:    "vision",
			ToolID:      "render",
			InputTypes:  []string{"detections"},
			OutputTypes: []string{"image"},
		},
	}}
}

func setupTestApp(t *testing.T) (*fiber.App, *jobs.Manager) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	cat := newStubCatalog()

	st, err := file.NewStore(t.TempDir())
	require.NoError(t, err)

	reg, err := registry.NewRegistry(context.Background(), logger, st, cat)
	require.NoError(t, err)

	executor := pipeline.NewExecutor(logger, cat, nil)
	queue := jobs.NewMemoryQueue(16)
	manager := jobs.NewManager(logger, reg, executor, queue, nil)
	manager.Start(1)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_ = manager.Stop(ctx)
	})

	handlers := web.NewAPIHandlers(reg, manager, cat, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Register(app)

	return app, manager
}

func validRegisterRequest(id string) web.RegisterPipelineRequest {
	return web.RegisterPipelineRequest{
		ID:   id,
		Name: "Detect and Render",
		Nodes: []*models.PipelineNode{
			{ID: "detect", PluginID: "vision", ToolID: "detect"},
			{ID: "render", PluginID: "vision", ToolID: "render"},
		},
		Edges: []*models.PipelineEdge{
			{From: "detect", To: "render"},
		},
		EntryNodes:  []string{"detect"},
		OutputNodes: []string{"render"},
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func registerPipeline(t *testing.T, app *fiber.App, id string) {
	t.Helper()

	resp, _ := doJSON(t, app, http.MethodPost, "/pipelines", validRegisterRequest(id))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPIHandlers_RegisterPipeline(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/pipelines", validRegisterRequest("p1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var def models.PipelineDefinition

	require.NoError(t, json.Unmarshal(body, &def))
	assert.Equal(t, "p1", def.ID)
	assert.Len(t, def.Nodes, 2)
}

func TestAPIHandlers_RegisterPipeline_ValidationFailure(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := validRegisterRequest("bad")
	req.Edges = append(req.Edges, &models.PipelineEdge{From: "render", To: "detect"})

	resp, body := doJSON(t, app, http.MethodPost, "/pipelines", req)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var problem struct {
		Errors []string `json:"errors"`
	}

	require.NoError(t, json.Unmarshal(body, &problem))
	assert.NotEmpty(t, problem.Errors)
}

func TestAPIHandlers_RegisterPipeline_Duplicate(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	registerPipeline(t, app, "p1")

	resp, _ := doJSON(t, app, http.MethodPost, "/pipelines", validRegisterRequest("p1"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIHandlers_ValidatePipeline(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/pipelines/validate", validRegisterRequest("p1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result web.ValidateResponse

	require.NoError(t, json.Unmarshal(body, &result))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)

	// Validation has no side effect: the pipeline is not registered.
	resp, _ = doJSON(t, app, http.MethodGet, "/pipelines/p1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ValidatePipeline_ReportsAllErrors(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := validRegisterRequest("bad")
	req.Nodes = append(req.Nodes, &models.PipelineNode{ID: "ghost", PluginID: "vision", ToolID: "missing"})
	req.Edges = append(req.Edges, &models.PipelineEdge{From: "render", To: "detect"})

	resp, body := doJSON(t, app, http.MethodPost, "/pipelines/validate", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result web.ValidateResponse

	require.NoError(t, json.Unmarshal(body, &result))
	assert.False(t, result.Valid)
	assert.GreaterOrEqual(t, len(result.Errors), 2)
}

func TestAPIHandlers_ListAndGetPipelines(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	registerPipeline(t, app, "p1")
	registerPipeline(t, app, "p2")

	resp, body := doJSON(t, app, http.MethodGet, "/pipelines", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Pipelines []models.PipelineSummary `json:"pipelines"`
		Count     int                      `json:"count"`
	}

	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "p1", list.Pipelines[0].ID)

	resp, body = doJSON(t, app, http.MethodGet, "/pipelines/p2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var def models.PipelineDefinition

	require.NoError(t, json.Unmarshal(body, &def))
	assert.Equal(t, "p2", def.ID)
}

func TestAPIHandlers_RunPipeline(t *testing.T) {
	t.Parallel()

	app, manager := setupTestApp(t)
	registerPipeline(t, app, "p1")

	resp, body := doJSON(t, app, http.MethodPost, "/pipelines/p1/run", web.RunRequest{
		Payload: map[string]any{"image": "frame.png"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var run web.RunResponse

	require.NoError(t, json.Unmarshal(body, &run))
	require.NotEmpty(t, run.JobID)

	require.Eventually(t, func() bool {
		return manager.Status(run.JobID).Status == models.JobStatusDone
	}, 2*time.Second, 10*time.Millisecond)

	resp, body = doJSON(t, app, http.MethodGet, "/jobs/"+run.JobID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var job models.Job

	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, models.JobStatusDone, job.Status)
	assert.Contains(t, job.Result, "invoked")
	assert.Contains(t, job.Result, "image")
}

func TestAPIHandlers_RunPipeline_UnknownPipeline(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/pipelines/missing/run", web.RunRequest{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetJob_Unknown(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/jobs/unknown-id", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var job models.Job

	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, models.JobStatusNotFound, job.Status)
}

func TestAPIHandlers_CancelJob_Unknown(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodDelete, "/jobs/unknown-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}

	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
}
