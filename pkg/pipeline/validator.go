package pipeline

import (
	"fmt"
	"strings"

	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/models"
)

// Validate proves that a pipeline definition is a legal, executable DAG
// against the given catalog. It is a pure function: no tool is invoked, no
// state is touched, and calling it twice against an unchanged catalog yields
// an identical error list. An empty result means the definition may be
// registered and executed.
func Validate(def *models.PipelineDefinition, cat catalog.Catalog) ValidationErrors {
	var errs ValidationErrors

	known := make(map[string]*models.PipelineNode, len(def.Nodes))

	for _, node := range def.Nodes {
		if _, dup := known[node.ID]; dup {
			errs = append(errs, ValidationError{
				Kind:    ErrKindDuplicateNode,
				NodeID:  node.ID,
				Message: "node id declared more than once",
			})

			continue
		}

		known[node.ID] = node
	}

	for _, edge := range def.Edges {
		if _, ok := known[edge.From]; !ok {
			errs = append(errs, ValidationError{
				Kind:    ErrKindUnknownEdgeNode,
				NodeID:  edge.From,
				Message: fmt.Sprintf("edge %s->%s references unknown source node", edge.From, edge.To),
			})
		}

		if _, ok := known[edge.To]; !ok {
			errs = append(errs, ValidationError{
				Kind:    ErrKindUnknownEdgeNode,
				NodeID:  edge.To,
				Message: fmt.Sprintf("edge %s->%s references unknown target node", edge.From, edge.To),
			})
		}
	}

	for _, id := range def.EntryNodes {
		if _, ok := known[id]; !ok {
			errs = append(errs, ValidationError{
				Kind:    ErrKindUnknownEntry,
				NodeID:  id,
				Message: "entry_nodes references unknown node",
			})
		}
	}

	for _, id := range def.OutputNodes {
		if _, ok := known[id]; !ok {
			errs = append(errs, ValidationError{
				Kind:    ErrKindUnknownOutput,
				NodeID:  id,
				Message: "output_nodes references unknown node",
			})
		}
	}

	errs = append(errs, detectCycles(def, known)...)
	errs = append(errs, checkReachability(def, known)...)
	errs = append(errs, checkSinks(def, known)...)
	errs = append(errs, checkEdgeTypes(def, known, cat)...)

	return errs
}

// detectCycles runs a depth-first search with an explicit recursion stack.
// Any back-edge is reported as a cycle listing the participating node ids.
// Edges with unknown endpoints are skipped; they are already reported.
func detectCycles(def *models.PipelineDefinition, known map[string]*models.PipelineNode) ValidationErrors {
	const (
		white = 0 // unvisited
		grey  = 1 // on the recursion stack
		black = 2 // fully explored
	)

	var errs ValidationErrors

	color := make(map[string]int, len(def.Nodes))
	stack := make([]string, 0, len(def.Nodes))

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)

		for _, succ := range def.Successors(id) {
			if _, ok := known[succ]; !ok {
				continue
			}

			switch color[succ] {
			case white:
				visit(succ)
			case grey:
				// Back-edge: the cycle is the stack suffix starting at succ.
				start := 0
				for i, stacked := range stack {
					if stacked == succ {
						start = i

						break
					}
				}

				cycle := make([]string, len(stack)-start)
				copy(cycle, stack[start:])

				errs = append(errs, ValidationError{
					Kind:    ErrKindCycle,
					NodeIDs: cycle,
					Message: fmt.Sprintf("cycle detected: %s -> %s", strings.Join(cycle, " -> "), succ),
				})
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, node := range def.Nodes {
		if _, ok := known[node.ID]; !ok {
			continue
		}

		if color[node.ID] == white {
			visit(node.ID)
		}
	}

	return errs
}

// checkReachability walks forward from the entry nodes and reports every
// node the walk never reaches.
func checkReachability(def *models.PipelineDefinition, known map[string]*models.PipelineNode) ValidationErrors {
	reached := make(map[string]bool, len(def.Nodes))

	queue := make([]string, 0, len(def.EntryNodes))

	for _, id := range def.EntryNodes {
		if _, ok := known[id]; ok && !reached[id] {
			reached[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, succ := range def.Successors(current) {
			if _, ok := known[succ]; ok && !reached[succ] {
				reached[succ] = true
				queue = append(queue, succ)
			}
		}
	}

	var errs ValidationErrors

	for _, node := range def.Nodes {
		if _, ok := known[node.ID]; !ok {
			continue
		}

		if !reached[node.ID] {
			errs = append(errs, ValidationError{
				Kind:    ErrKindUnreachable,
				NodeID:  node.ID,
				Message: "node is not reachable from any entry node",
			})
		}
	}

	return errs
}

// checkSinks enforces that every node with zero outgoing edges is declared
// as an output node, so no result is silently discarded.
func checkSinks(def *models.PipelineDefinition, known map[string]*models.PipelineNode) ValidationErrors {
	var errs ValidationErrors

	for _, node := range def.Nodes {
		if _, ok := known[node.ID]; !ok {
			continue
		}

		if len(def.Successors(node.ID)) == 0 && !def.IsOutputNode(node.ID) {
			errs = append(errs, ValidationError{
				Kind:    ErrKindSinkNotOutput,
				NodeID:  node.ID,
				Message: "node has no outgoing edges but is not declared in output_nodes",
			})
		}
	}

	return errs
}

// checkEdgeTypes resolves both endpoints of every edge in the catalog and
// requires a non-empty intersection between the source's output types and
// the target's input types.
func checkEdgeTypes(def *models.PipelineDefinition, known map[string]*models.PipelineNode, cat catalog.Catalog) ValidationErrors {
	var errs ValidationErrors

	unknownReported := make(map[string]bool)

	resolve := func(nodeID string) (models.ToolCapability, bool) {
		node, ok := known[nodeID]
		if !ok {
			return models.ToolCapability{}, false
		}

		capability, err := cat.Capability(node.PluginID, node.ToolID)
		if err != nil {
			if !unknownReported[nodeID] {
				unknownReported[nodeID] = true

				errs = append(errs, ValidationError{
					Kind:    ErrKindUnknownTool,
					NodeID:  nodeID,
					Message: fmt.Sprintf("unknown plugin/tool %s/%s", node.PluginID, node.ToolID),
				})
			}

			return models.ToolCapability{}, false
		}

		return capability, true
	}

	for _, edge := range def.Edges {
		source, sourceOK := resolve(edge.From)
		target, targetOK := resolve(edge.To)

		if !sourceOK || !targetOK {
			continue
		}

		if !source.CompatibleWith(target) {
			errs = append(errs, ValidationError{
				Kind:    ErrKindTypeMismatch,
				NodeIDs: []string{edge.From, edge.To},
				Message: fmt.Sprintf(
					"edge %s->%s: output types %v do not intersect input types %v",
					edge.From, edge.To, source.OutputTypes, target.InputTypes,
				),
			})
		}
	}

	return errs
}
