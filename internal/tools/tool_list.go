package tools

import (
	"encoding/json"
	"sort"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

// ToolList is the set of tools active for one request.
type ToolList struct {
	tools map[string]entry
}

// Get returns the tool with the given name, or nil if not found.
func (l *ToolList) Get(name string) schema.Tool {
	if l == nil {
		return nil
	}
	return l.tools[name].tool
}

func (l *ToolList) lookup(name string) (entry, bool) {
	if l == nil {
		return entry{}, false
	}
	e, ok := l.tools[name]
	return e, ok
}

// Len returns the number of tools in the list.
func (l *ToolList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.tools)
}

// Names returns the tool names, sorted.
func (l *ToolList) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.tools))
	for k := range l.tools {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the model-facing definitions, sorted by name.
func (l *ToolList) Definitions() []schema.ToolDefinition {
	names := l.Names()
	defs := make([]schema.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := l.tools[name].tool
		defs = append(defs, schema.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: inputSchema(t.Parameters()),
		})
	}
	return defs
}

// inputSchema decodes a tool's parameters, always yielding an object schema.
func inputSchema(raw json.RawMessage) map[string]any {
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil || params == nil {
		params = map[string]any{}
	}
	if _, ok := params["type"]; !ok {
		params["type"] = "object"
	}
	if _, ok := params["properties"]; !ok {
		params["properties"] = map[string]any{}
	}
	return params
}
