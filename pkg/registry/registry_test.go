package registry

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/pipeline"
	"github.com/lensflow/lensflow/pkg/store/file"
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

func (c *stubCatalog) Invoke(_ context.Context, pluginID, toolID string, _ map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("%w: %s/%s", catalog.ErrToolNotFound, pluginID, toolID)
}

func (c *stubCatalog) HealthCheck() (string, bool) {
	return "stub", true
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

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func validDefinition(id string) *models.PipelineDefinition {
	return &models.PipelineDefinition{
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

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	st, err := file.NewStore(t.TempDir())
	require.NoError(t, err)

	r, err := NewRegistry(context.Background(), testLogger(), st, newStubCatalog())
	require.NoError(t, err)

	return r
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, validDefinition("p1")))

	def, err := r.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, "Detect and Render", def.Name)
	assert.False(t, def.CreatedAt.IsZero())
}

func TestRegistry_RegisterInvalidDefinition(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	def := validDefinition("bad")
	def.Edges = append(def.Edges, &models.PipelineEdge{From: "render", To: "detect"})

	err := r.Register(context.Background(), def)
	require.Error(t, err)

	var validationErrs pipeline.ValidationErrors

	require.ErrorAs(t, err, &validationErrs)
	assert.NotEmpty(t, validationErrs)

	_, err = r.Get("bad")
	assert.ErrorIs(t, err, ErrPipelineNotFound)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, validDefinition("p1")))

	err := r.Register(ctx, validDefinition("p1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPipelineExists)
}

func TestRegistry_List(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, validDefinition("p1")))
	require.NoError(t, r.Register(ctx, validDefinition("p2")))

	summaries := r.List()
	require.Len(t, summaries, 2)
	assert.Equal(t, "p1", summaries[0].ID)
	assert.Equal(t, "p2", summaries[1].ID)
	assert.Equal(t, 2, summaries[0].NodeCount)
}

func TestNewRegistry_HydratesFromStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	st, err := file.NewStore(dir)
	require.NoError(t, err)

	first, err := NewRegistry(ctx, testLogger(), st, newStubCatalog())
	require.NoError(t, err)
	require.NoError(t, first.Register(ctx, validDefinition("p1")))

	st2, err := file.NewStore(dir)
	require.NoError(t, err)

	second, err := NewRegistry(ctx, testLogger(), st2, newStubCatalog())
	require.NoError(t, err)

	def, err := second.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", def.ID)
}

func TestNewRegistry_FailsOnStaleDefinition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	st, err := file.NewStore(dir)
	require.NoError(t, err)

	first, err := NewRegistry(ctx, testLogger(), st, newStubCatalog())
	require.NoError(t, err)
	require.NoError(t, first.Register(ctx, validDefinition("p1")))

	st2, err := file.NewStore(dir)
	require.NoError(t, err)

	// Re-hydrate against a catalog that lost the render tool.
	empty := &stubCatalog{capabilities: map[string]models.ToolCapability{}}

	_, err = NewRegistry(ctx, testLogger(), st2, empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer validates")
}
