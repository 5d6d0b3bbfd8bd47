package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

// RegistryBuilder accumulates tools during the construction phase.
// Call Build() to produce an immutable Registry ready for use.
type RegistryBuilder struct {
	tools map[string]schema.Tool
	order []string
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{tools: make(map[string]schema.Tool)}
}

// WithTool adds a tool and returns the builder, enabling chaining.
// A second tool with the same name replaces the first.
func (b *RegistryBuilder) WithTool(tool schema.Tool) *RegistryBuilder {
	name := tool.Name()
	if _, dup := b.tools[name]; dup {
		slog.Warn("Duplicate tool registration, replacing previous", "name", name)
	} else {
		b.order = append(b.order, name)
	}
	b.tools[name] = tool

	return b
}

// Build produces an immutable Registry from the accumulated tools.
// It fails if any tool declares a schema that cannot be compiled.
func (b *RegistryBuilder) Build() (*Registry, error) {
	tools := make(map[string]entry, len(b.tools))
	for _, name := range b.order {
		t := b.tools[name]
		resolved, err := compileSchema(t.Parameters())
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		tools[name] = entry{tool: t, resolved: resolved}
	}
	return &Registry{tools: tools}, nil
}

// compileSchema parses and resolves a tool's JSON Schema. An empty schema
// compiles to nil, meaning arguments are not validated.
func compileSchema(raw json.RawMessage) (*jsonschema.Resolved, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	return resolved, nil
}
