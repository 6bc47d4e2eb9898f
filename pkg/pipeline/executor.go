package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/events"
	"github.com/lensflow/lensflow/pkg/eventbus"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Emitter receives lifecycle events from the executor. Implementations must
// be fire-and-forget: the executor never blocks on them.
type Emitter interface {
	Emit(key string, event eventbus.Event)
}

// Executor runs validated pipelines node by node in one deterministic
// topological order. It holds no state across calls; a malformed definition
// is a programming error here, not a reportable execution error, because
// every definition must pass Validate before it reaches Execute.
type Executor struct {
	logger  *slog.Logger
	catalog catalog.Catalog
	emitter Emitter
}

func NewExecutor(logger *slog.Logger, cat catalog.Catalog, emitter Emitter) *Executor {
	return &Executor{
		logger:  logger.With("module", "executor"),
		catalog: cat,
		emitter: emitter,
	}
}

// Execute runs def against initialPayload and returns the final result: the
// initial payload merged with each output node's recorded output, output
// nodes applied in declared order. A tool failure aborts the entire run and
// is returned as *ExecutionError. A cancelled context stops the run before
// the next node starts; the in-flight tool call is never interrupted.
func (e *Executor) Execute(ctx context.Context, runID string, def *models.PipelineDefinition, initialPayload map[string]any) (map[string]any, error) {
	logger := e.logger.With("pipeline_id", def.ID, "run_id", runID)

	tracer := otel.Tracer("lensflow/pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.execute",
		otelhelper.PipelineAttrs(def.ID, runID)...)
	defer span.End()

	order, err := topologicalOrder(def)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Starting pipeline run", "nodes", len(order))

	startedAt := time.Now()
	execCtx := models.NewExecutionContext(runID, def.ID, initialPayload)

	e.emit(execCtx, events.PipelineRunStarted{
		BaseEvent:    events.NewBaseEvent(events.PipelineRunStartedEvent, def.ID),
		JobID:        runID,
		PipelineName: def.Name,
		NodeCount:    len(order),
		Payload:      initialPayload,
	})

	for stepIndex, nodeID := range order {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.InfoContext(ctx, "Pipeline run cancelled", "node_id", nodeID, "step_index", stepIndex)

			return nil, ctxErr
		}

		node := def.NodeByID(nodeID)

		output, execErr := e.executeNode(ctx, execCtx, def, node, stepIndex)
		if execErr != nil {
			otelhelper.SetError(span, execErr, attribute.String(otelhelper.NodeIDKey, nodeID))

			e.emit(execCtx, events.PipelineRunFailed{
				BaseEvent:     events.NewBaseEvent(events.PipelineRunFailedEvent, def.ID),
				JobID:         runID,
				DurationMs:    time.Since(startedAt).Milliseconds(),
				NodesExecuted: stepIndex,
				Error: events.RunError{
					Kind:     ErrKindToolInvocation,
					NodeID:   execErr.NodeID,
					PluginID: execErr.PluginID,
					ToolID:   execErr.ToolID,
					Message:  execErr.Err.Error(),
				},
			})

			return nil, execErr
		}

		execCtx.NodeOutputs[nodeID] = output
	}

	result := buildResult(def, execCtx)

	e.emit(execCtx, events.PipelineRunFinished{
		BaseEvent:     events.NewBaseEvent(events.PipelineRunFinishedEvent, def.ID),
		JobID:         runID,
		DurationMs:    time.Since(startedAt).Milliseconds(),
		NodesExecuted: len(order),
		Result:        result,
	})

	logger.InfoContext(ctx, "Pipeline run finished",
		"nodes_executed", len(order),
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)

	return result, nil
}

func (e *Executor) executeNode(
	ctx context.Context,
	execCtx *models.ExecutionContext,
	def *models.PipelineDefinition,
	node *models.PipelineNode,
	stepIndex int,
) (map[string]any, *ExecutionError) {
	logger := e.logger.With(
		"pipeline_id", def.ID,
		"run_id", execCtx.RunID,
		"node_id", node.ID,
		"plugin_id", node.PluginID,
		"tool_id", node.ToolID,
		"step_index", stepIndex,
	)

	tracer := otel.Tracer("lensflow/pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.node",
		otelhelper.NodeAttrs(def.ID, execCtx.RunID, node.ID, node.PluginID, node.ToolID)...)
	defer span.End()

	input := mergedInput(execCtx, def, node.ID)

	e.emit(execCtx, events.NodeExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.NodeExecutionStartedEvent, def.ID),
		JobID:     execCtx.RunID,
		NodeID:    node.ID,
		PluginID:  node.PluginID,
		ToolID:    node.ToolID,
		StepIndex: stepIndex,
	})

	logger.InfoContext(ctx, "Executing node")

	startedAt := time.Now()

	output, err := e.catalog.Invoke(ctx, node.PluginID, node.ToolID, input)
	if err != nil {
		durationMs := time.Since(startedAt).Milliseconds()
		logger.ErrorContext(ctx, "Node execution failed", "error", err, "duration_ms", durationMs)

		e.emit(execCtx, events.NodeExecutionFailed{
			BaseEvent:  events.NewBaseEvent(events.NodeExecutionFailedEvent, def.ID),
			JobID:      execCtx.RunID,
			NodeID:     node.ID,
			PluginID:   node.PluginID,
			ToolID:     node.ToolID,
			StepIndex:  stepIndex,
			DurationMs: durationMs,
			Error:      err.Error(),
		})

		return nil, &ExecutionError{
			NodeID:   node.ID,
			PluginID: node.PluginID,
			ToolID:   node.ToolID,
			Err:      err,
		}
	}

	if output == nil {
		output = map[string]any{}
	}

	durationMs := time.Since(startedAt).Milliseconds()

	e.emit(execCtx, events.NodeExecutionFinished{
		BaseEvent:  events.NewBaseEvent(events.NodeExecutionFinishedEvent, def.ID),
		JobID:      execCtx.RunID,
		NodeID:     node.ID,
		PluginID:   node.PluginID,
		ToolID:     node.ToolID,
		StepIndex:  stepIndex,
		DurationMs: durationMs,
		OutputData: output,
	})

	logger.InfoContext(ctx, "Node executed", "duration_ms", durationMs)

	return output, nil
}

func (e *Executor) emit(execCtx *models.ExecutionContext, event eventbus.Event) {
	if e.emitter == nil {
		return
	}

	e.emitter.Emit(execCtx.PipelineID, event)
}

// topologicalOrder computes one deterministic execution order via Kahn's
// algorithm: in-degree counting with a FIFO queue seeded in node declaration
// order. Siblings at the same depth therefore run in declaration order;
// callers must not rely on any ordering among independent branches beyond
// its determinism.
func topologicalOrder(def *models.PipelineDefinition) ([]string, error) {
	inDegree := make(map[string]int, len(def.Nodes))
	for _, node := range def.Nodes {
		inDegree[node.ID] = 0
	}

	for _, edge := range def.Edges {
		inDegree[edge.To]++
	}

	queue := make([]string, 0, len(def.Nodes))

	for _, node := range def.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	order := make([]string, 0, len(def.Nodes))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, succ := range def.Successors(current) {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(order) != len(def.Nodes) {
		// Unreachable for definitions that passed validation.
		return nil, fmt.Errorf("pipeline %s is not a DAG", def.ID)
	}

	return order, nil
}

// mergedInput builds a node's input payload: a copy of the initial payload,
// then each predecessor's recorded output shallow-merged in edge declaration
// order. The last predecessor wins on key collision; there is no
// namespacing. Branching pipelines whose branches emit overlapping keys must
// avoid collisions if both values are needed downstream.
func mergedInput(execCtx *models.ExecutionContext, def *models.PipelineDefinition, nodeID string) map[string]any {
	input := make(map[string]any, len(execCtx.InitialPayload))
	maps.Copy(input, execCtx.InitialPayload)

	for _, pred := range def.Predecessors(nodeID) {
		maps.Copy(input, execCtx.NodeOutputs[pred])
	}

	return input
}

// buildResult merges the initial payload with each output node's recorded
// output, output nodes applied in their declared order. Same last-wins merge
// rule as node inputs.
func buildResult(def *models.PipelineDefinition, execCtx *models.ExecutionContext) map[string]any {
	result := make(map[string]any, len(execCtx.InitialPayload))
	maps.Copy(result, execCtx.InitialPayload)

	for _, outputID := range def.OutputNodes {
		maps.Copy(result, execCtx.NodeOutputs[outputID])
	}

	return result
}
