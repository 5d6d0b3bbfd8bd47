package tools

import (
	"context"
	"encoding/json"
)

// FuncTool adapts a plain function into a schema.Tool.
type FuncTool struct {
	ToolName        string
	ToolDescription string
	Schema          json.RawMessage
	Fn              func(ctx context.Context, args map[string]any) (string, error)
	Validate        func(args map[string]any) error
}

func (t *FuncTool) Name() string                { return t.ToolName }
func (t *FuncTool) Description() string         { return t.ToolDescription }
func (t *FuncTool) Parameters() json.RawMessage { return t.Schema }

func (t *FuncTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return t.Fn(ctx, args)
}

// ValidateArgs runs the optional Validate hook.
func (t *FuncTool) ValidateArgs(args map[string]any) error {
	if t.Validate == nil {
		return nil
	}
	return t.Validate(args)
}
