package tools

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

// ToolName is the canonical name of a built-in tool. Names match what the
// model sees in tool definitions.
type ToolName string

const (
	ToolSearchInternet ToolName = "SearchInternet"
	ToolReadWebsite    ToolName = "ReadWebsite"
	ToolNearbyPlaces   ToolName = "SearchForNearbyPlacesOfType"
	ToolGeocode        ToolName = "Geocode"
	ToolReverseGeocode ToolName = "ReverseGeocode"
	ToolDistanceMatrix ToolName = "GetDistanceMatrix"
	ToolOptimizeRoute  ToolName = "OptimizeRoute"
)

// ErrToolNotFound is reported for names that were never registered.
var ErrToolNotFound = errors.New("tool not found")

// entry pairs a tool with its compiled argument schema.
type entry struct {
	tool     schema.Tool
	resolved *jsonschema.Resolved
}

// Registry holds the process-wide set of named tools. It is built once by
// RegistryBuilder and never mutated afterwards, so it is safe for concurrent use.
type Registry struct {
	tools map[string]entry
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (schema.Tool, bool) {
	e, ok := r.tools[name]
	return e.tool, ok
}

// GetTool returns the tool with the given name, or nil.
func (r *Registry) GetTool(name ToolName) schema.Tool {
	return r.tools[string(name)].tool
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for k := range r.tools {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// AllTools returns a ToolList with every registered tool.
func (r *Registry) AllTools() *ToolList {
	list := &ToolList{tools: make(map[string]entry, len(r.tools))}
	for k, e := range r.tools {
		list.tools[k] = e
	}
	return list
}

// Subset returns a ToolList restricted to names. Unknown names are skipped.
func (r *Registry) Subset(names ...ToolName) *ToolList {
	list := &ToolList{tools: make(map[string]entry, len(names))}
	for _, n := range names {
		e, ok := r.tools[string(n)]
		if !ok {
			slog.Warn("Tool not registered, skipping", "name", n)
			continue
		}
		list.tools[string(n)] = e
	}
	return list
}
