package schema

import (
	"context"
	"encoding/json"
)

// Tool is the interface all LLM-callable tools must satisfy.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (as raw JSON bytes) for this tool's parameters.
	Parameters() json.RawMessage
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// ArgumentValidator is implemented by tools that check arguments beyond what
// their JSON Schema expresses. It runs after schema validation.
type ArgumentValidator interface {
	ValidateArgs(params map[string]any) error
}

// ToolDefinition is the provider-neutral, model-facing description of a tool.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}
