package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/crystaldolphin/waypoint/internal/schema"
	"github.com/crystaldolphin/waypoint/internal/shared/llmutils"
)

// Invoker runs model-requested tool calls against one ToolList and folds
// every outcome into a ToolResultBlock. It never returns an error and never
// retries; retry policy belongs to the individual tool.
type Invoker struct {
	tools *ToolList
}

func NewInvoker(tools *ToolList) *Invoker {
	return &Invoker{tools: tools}
}

// Invoke looks up, validates and executes a single tool call.
func (inv *Invoker) Invoke(ctx context.Context, call schema.ToolUseBlock) (result schema.ToolResultBlock) {
	result.ToolUseID = call.ID

	argsJSON, _ := json.Marshal(call.Input)
	slog.Info("Tool call", "name", call.Name, "id", call.ID, "args", llmutils.Truncate(string(argsJSON), 200))

	e, ok := inv.tools.lookup(call.Name)
	if !ok {
		return errorResult(call.ID, fmt.Sprintf("%s: %s", ErrToolNotFound, call.Name))
	}

	args := call.Input
	if args == nil {
		args = map[string]any{}
	}

	if err := validateArgs(e, args); err != nil {
		slog.Warn("Tool arguments rejected", "name", call.Name, "err", err)
		return errorResult(call.ID, err.Error())
	}

	out, err := execute(ctx, e.tool, args)
	if err != nil {
		slog.Warn("Tool failed", "name", call.Name, "err", err)
		return errorResult(call.ID, err.Error())
	}

	result.Content = out
	return result
}

// execute runs the tool, converting a panic into an error.
func execute(ctx context.Context, t schema.Tool, args map[string]any) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name(), r)
		}
	}()
	return t.Execute(ctx, args)
}

func errorResult(id, msg string) schema.ToolResultBlock {
	return schema.ToolResultBlock{ToolUseID: id, Content: msg, IsError: true}
}
