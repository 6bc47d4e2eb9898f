// Package models defines the core domain models for tool pipeline composition.
package models

import "time"

// PipelineNode is one tool invocation within a pipeline graph. It references
// a ToolCapability in the catalog by (plugin_id, tool_id).
type PipelineNode struct {
	ID       string `json:"id"        validate:"required"`
	PluginID string `json:"plugin_id" validate:"required"`
	ToolID   string `json:"tool_id"   validate:"required"`
	Name     string `json:"name,omitempty"`
}

// PipelineEdge declares a data-flow dependency from one node's output to
// another node's input. Both endpoints must reference existing node ids.
type PipelineEdge struct {
	From string `json:"from_node" validate:"required"`
	To   string `json:"to_node"   validate:"required"`
}

// PipelineDefinition is the named, version-controllable description of a
// pipeline. Its JSON form is the canonical registry load format. Once
// validated and registered, a definition is immutable; changes require a new
// id (e.g. a version suffix).
type PipelineDefinition struct {
	ID          string          `json:"id"   validate:"required"`
	Name        string          `json:"name" validate:"required,min=3"`
	Description string          `json:"description,omitempty"`
	Nodes       []*PipelineNode `json:"nodes"`
	Edges       []*PipelineEdge `json:"edges"`
	EntryNodes  []string        `json:"entry_nodes"`
	OutputNodes []string        `json:"output_nodes"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (d *PipelineDefinition) NodeByID(id string) *PipelineNode {
	for _, node := range d.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// Predecessors returns the ids of nodes feeding nodeID, in edge declaration
// order. The order is load-bearing: payload merging applies predecessor
// outputs in exactly this order, last one wins on key collision.
func (d *PipelineDefinition) Predecessors(nodeID string) []string {
	var preds []string

	for _, edge := range d.Edges {
		if edge.To == nodeID {
			preds = append(preds, edge.From)
		}
	}

	return preds
}

// Successors returns the ids of nodes fed by nodeID, in edge declaration order.
func (d *PipelineDefinition) Successors(nodeID string) []string {
	var succs []string

	for _, edge := range d.Edges {
		if edge.From == nodeID {
			succs = append(succs, edge.To)
		}
	}

	return succs
}

// IsOutputNode reports whether nodeID is declared in output_nodes.
func (d *PipelineDefinition) IsOutputNode(nodeID string) bool {
	for _, id := range d.OutputNodes {
		if id == nodeID {
			return true
		}
	}

	return false
}

// PipelineSummary is the listing shape exposed by the API.
type PipelineSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// Summary returns the listing shape for this definition.
func (d *PipelineDefinition) Summary() PipelineSummary {
	return PipelineSummary{
		ID:        d.ID,
		Name:      d.Name,
		NodeCount: len(d.Nodes),
		EdgeCount: len(d.Edges),
	}
}
