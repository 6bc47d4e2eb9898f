package models

// ToolCapability is a tool's declared input/output type tags, sourced from
// the catalog. Tags are coarse compatibility markers ("detections", "text",
// "frame"), not field-level schemas.
type ToolCapability struct {
	PluginID    string   `json:"plugin_id"`
	ToolID      string   `json:"tool_id"`
	InputTypes  []string `json:"input_types"`
	OutputTypes []string `json:"output_types"`
}

// Key returns the catalog lookup key for this capability.
func (c ToolCapability) Key() string {
	return c.PluginID + "/" + c.ToolID
}

// CompatibleWith reports whether this tool's outputs can feed next's inputs:
// the intersection of OutputTypes and next.InputTypes must be non-empty.
func (c ToolCapability) CompatibleWith(next ToolCapability) bool {
	for _, out := range c.OutputTypes {
		for _, in := range next.InputTypes {
			if out == in {
				return true
			}
		}
	}

	return false
}
