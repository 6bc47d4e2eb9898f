package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	capabilities map[string]models.ToolCapability
	invoke       map[string]func(ctx context.Context, payload map[string]any) (map[string]any, error)
}

func (c *fakeCatalog) Capability(pluginID, toolID string) (models.ToolCapability, error) {
	capability, ok := c.capabilities[pluginID+"/"+toolID]
	if !ok {
		return models.ToolCapability{}, fmt.Errorf("%w: %s/%s", catalog.ErrToolNotFound, pluginID, toolID)
	}

	return capability, nil
}

func (c *fakeCatalog) Invoke(ctx context.Context, pluginID, toolID string, payload map[string]any) (map[string]any, error) {
	fn, ok := c.invoke[pluginID+"/"+toolID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", catalog.ErrToolNotFound, pluginID, toolID)
	}

	return fn(ctx, payload)
}

func (c *fakeCatalog) HealthCheck() (string, bool) {
	return "fake catalog", true
}

func visionCatalog() *fakeCatalog {
	return &fakeCatalog{
		capabilities: map[string]models.ToolCapability{
			"vision/detect": {
				PluginID:    "vision",
				ToolID:      "detect",
				InputTypes:  []string{"image"},
				OutputTypes: []string{"detections"},
			},
			"vision/track": {
				PluginID:    "vision",
				ToolID:      "track",
				InputTypes:  []string{"detections"},
				OutputTypes: []string{"detections"},
			},
			"vision/render": {
				PluginID:    "vision",
				ToolID:      "render",
				InputTypes:  []string{"detections"},
				OutputTypes: []string{"image"},
			},
			"text/ocr": {
				PluginID:    "text",
				ToolID:      "ocr",
				InputTypes:  []string{"image"},
				OutputTypes: []string{"text"},
			},
		},
		invoke: map[string]func(ctx context.Context, payload map[string]any) (map[string]any, error){},
	}
}

func chainDefinition() *models.PipelineDefinition {
	return &models.PipelineDefinition{
		ID:   "detect-track-render",
		Name: "Detect, Track, Render",
		Nodes: []*models.PipelineNode{
			{ID: "detect", PluginID: "vision", ToolID: "detect"},
			{ID: "track", PluginID: "vision", ToolID: "track"},
			{ID: "render", PluginID: "vision", ToolID: "render"},
		},
		Edges: []*models.PipelineEdge{
			{From: "detect", To: "track"},
			{From: "track", To: "render"},
		},
		EntryNodes:  []string{"detect"},
		OutputNodes: []string{"render"},
	}
}

func kinds(errs ValidationErrors) []ValidationErrorKind {
	out := make([]ValidationErrorKind, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Kind)
	}

	return out
}

func TestValidate_ValidChain(t *testing.T) {
	t.Parallel()

	errs := Validate(chainDefinition(), visionCatalog())
	assert.Empty(t, errs)
}

func TestValidate_DuplicateNodeID(t *testing.T) {
	t.Parallel()

	def := chainDefinition()
	def.Nodes = append(def.Nodes, &models.PipelineNode{ID: "detect", PluginID: "vision", ToolID: "detect"})

	errs := Validate(def, visionCatalog())
	require.NotEmpty(t, errs)
	assert.Contains(t, kinds(errs), ErrKindDuplicateNode)
}

func TestValidate_UnknownEdgeEndpoints(t *testing.T) {
	t.Parallel()

	def := chainDefinition()
	def.Edges = append(def.Edges, &models.PipelineEdge{From: "ghost", To: "phantom"})

	errs := Validate(def, visionCatalog())

	unknown := 0

	for _, err := range errs {
		if err.Kind == ErrKindUnknownEdgeNode {
			unknown++
		}
	}

	assert.Equal(t, 2, unknown, "both endpoints should be reported")
}

func TestValidate_UnknownEntryAndOutput(t *testing.T) {
	t.Parallel()

	def := chainDefinition()
	def.EntryNodes = append(def.EntryNodes, "missing-entry")
	def.OutputNodes = append(def.OutputNodes, "missing-output")

	errs := Validate(def, visionCatalog())
	assert.Contains(t, kinds(errs), ErrKindUnknownEntry)
	assert.Contains(t, kinds(errs), ErrKindUnknownOutput)
}

func TestValidate_CycleReportsParticipants(t *testing.T) {
	t.Parallel()

	def := chainDefinition()
	def.Edges = append(def.Edges, &models.PipelineEdge{From: "render", To: "detect"})

	errs := Validate(def, visionCatalog())
	require.NotEmpty(t, errs)

	var cycle *ValidationError

	for i := range errs {
		if errs[i].Kind == ErrKindCycle {
			cycle = &errs[i]

			break
		}
	}

	require.NotNil(t, cycle, "expected a cycle error")
	assert.ElementsMatch(t, []string{"detect", "track", "render"}, cycle.NodeIDs)
}

func TestValidate_UnreachableNode(t *testing.T) {
	t.Parallel()

	def := chainDefinition()
	def.Nodes = append(def.Nodes, &models.PipelineNode{ID: "orphan", PluginID: "text", ToolID: "ocr"})
	def.OutputNodes = append(def.OutputNodes, "orphan")

	errs := Validate(def, visionCatalog())
	require.NotEmpty(t, errs)
	assert.Contains(t, kinds(errs), ErrKindUnreachable)
}

func TestValidate_SinkMustBeOutput(t *testing.T) {
	t.Parallel()

	def := chainDefinition()
	def.Nodes = append(def.Nodes, &models.PipelineNode{ID: "ocr", PluginID: "text", ToolID: "ocr"})
	def.Edges = append(def.Edges, &models.PipelineEdge{From: "detect", To: "ocr"})

	errs := Validate(def, visionCatalog())
	require.Len(t, errs, 2)
	assert.Equal(t, ErrKindSinkNotOutput, errs[0].Kind)
	assert.Equal(t, "ocr", errs[0].NodeID)
	// detect emits detections, ocr consumes images.
	assert.Equal(t, ErrKindTypeMismatch, errs[1].Kind)
}

func TestValidate_UnknownToolReportedOncePerNode(t *testing.T) {
	t.Parallel()

	def := &models.PipelineDefinition{
		ID:   "fanout",
		Name: "Unknown fanout",
		Nodes: []*models.PipelineNode{
			{ID: "detect", PluginID: "vision", ToolID: "detect"},
			{ID: "mystery", PluginID: "vision", ToolID: "nonexistent"},
			{ID: "render", PluginID: "vision", ToolID: "render"},
		},
		Edges: []*models.PipelineEdge{
			{From: "detect", To: "mystery"},
			{From: "mystery", To: "render"},
		},
		EntryNodes:  []string{"detect"},
		OutputNodes: []string{"render"},
	}

	errs := Validate(def, visionCatalog())

	unknownTools := 0

	for _, err := range errs {
		if err.Kind == ErrKindUnknownTool {
			unknownTools++
			assert.Equal(t, "mystery", err.NodeID)
		}
	}

	assert.Equal(t, 1, unknownTools, "one unknown-tool error despite two touching edges")
}

func TestValidate_TypeMismatch(t *testing.T) {
	t.Parallel()

	def := &models.PipelineDefinition{
		ID:   "mismatch",
		Name: "OCR into tracker",
		Nodes: []*models.PipelineNode{
			{ID: "ocr", PluginID: "text", ToolID: "ocr"},
			{ID: "track", PluginID: "vision", ToolID: "track"},
		},
		Edges: []*models.PipelineEdge{
			{From: "ocr", To: "track"},
		},
		EntryNodes:  []string{"ocr"},
		OutputNodes: []string{"track"},
	}

	errs := Validate(def, visionCatalog())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrKindTypeMismatch, errs[0].Kind)
	assert.Equal(t, []string{"ocr", "track"}, errs[0].NodeIDs)
	assert.Contains(t, errs[0].Message, "do not intersect")
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	t.Parallel()

	def := chainDefinition()
	def.Edges = append(def.Edges,
		&models.PipelineEdge{From: "render", To: "detect"},
		&models.PipelineEdge{From: "ghost", To: "render"},
	)
	def.EntryNodes = append(def.EntryNodes, "missing")

	errs := Validate(def, visionCatalog())

	seen := kinds(errs)
	assert.Contains(t, seen, ErrKindCycle)
	assert.Contains(t, seen, ErrKindUnknownEdgeNode)
	assert.Contains(t, seen, ErrKindUnknownEntry)
}

func TestValidate_RepeatedCallsYieldIdenticalErrors(t *testing.T) {
	t.Parallel()

	cat := visionCatalog()

	// A definition carrying several violation kinds at once.
	def := chainDefinition()
	def.Edges = append(def.Edges,
		&models.PipelineEdge{From: "render", To: "detect"},
		&models.PipelineEdge{From: "ghost", To: "render"},
	)
	def.EntryNodes = append(def.EntryNodes, "missing")
	def.Nodes = append(def.Nodes, &models.PipelineNode{ID: "mystery", PluginID: "vision", ToolID: "nonexistent"})

	first := Validate(def, cat)
	second := Validate(def, cat)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "same definition and catalog must report the same error list")

	// A clean definition stays clean on repeat as well.
	assert.Empty(t, Validate(chainDefinition(), cat))
	assert.Empty(t, Validate(chainDefinition(), cat))
}

func TestValidationErrors_Strings(t *testing.T) {
	t.Parallel()

	errs := ValidationErrors{
		{Kind: ErrKindUnknownEntry, NodeID: "x", Message: "entry_nodes references unknown node"},
		{Kind: ErrKindCycle, NodeIDs: []string{"a", "b"}, Message: "cycle detected"},
	}

	messages := errs.Strings()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0], "unknown_entry_node")
	assert.Contains(t, messages[1], "a, b")
	assert.Contains(t, errs.Error(), "pipeline validation failed")
}
