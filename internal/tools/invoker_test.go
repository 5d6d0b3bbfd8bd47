package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

func newTestInvoker(t *testing.T, ts ...*FuncTool) *Invoker {
	t.Helper()
	b := NewRegistryBuilder()
	for _, tool := range ts {
		b.WithTool(tool)
	}
	reg, err := b.Build()
	require.NoError(t, err)
	return NewInvoker(reg.AllTools())
}

func TestInvokeUnknownTool(t *testing.T) {
	inv := newTestInvoker(t)

	res := inv.Invoke(context.Background(), schema.ToolUseBlock{ID: "tu_1", Name: "Teleport"})

	assert.True(t, res.IsError)
	assert.Equal(t, "tu_1", res.ToolUseID)
	assert.Equal(t, "tool not found: Teleport", res.Content)
}

func TestInvokeSuccess(t *testing.T) {
	inv := newTestInvoker(t, &FuncTool{
		ToolName: "Upper",
		Schema:   json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			return "got " + args["text"].(string), nil
		},
	})

	res := inv.Invoke(context.Background(), schema.ToolUseBlock{ID: "1", Name: "Upper", Input: map[string]any{"text": "hi"}})

	assert.False(t, res.IsError)
	assert.Equal(t, "got hi", res.Content)
}

func TestInvokeSchemaValidationFailure(t *testing.T) {
	called := false
	inv := newTestInvoker(t, &FuncTool{
		ToolName: "Search",
		Schema:   json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","maxLength":5}},"required":["query"]}`),
		Fn: func(context.Context, map[string]any) (string, error) {
			called = true
			return "", nil
		},
	})

	cases := map[string]map[string]any{
		"missing required": {},
		"wrong type":       {"query": 42.0},
		"too long":         {"query": "much too long"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			res := inv.Invoke(context.Background(), schema.ToolUseBlock{ID: "x", Name: "Search", Input: input})
			assert.True(t, res.IsError)
			assert.Contains(t, res.Content, "invalid arguments for Search")
		})
	}
	assert.False(t, called, "executor must not run when validation fails")
}

func TestInvokeCustomValidator(t *testing.T) {
	inv := newTestInvoker(t, &FuncTool{
		ToolName: "Even",
		Fn:       func(context.Context, map[string]any) (string, error) { return "ok", nil },
		Validate: func(map[string]any) error { return errors.New("odd input") },
	})

	res := inv.Invoke(context.Background(), schema.ToolUseBlock{ID: "x", Name: "Even"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "odd input")
}

func TestInvokeExecutorErrorAndPanic(t *testing.T) {
	inv := newTestInvoker(t,
		&FuncTool{
			ToolName: "Fails",
			Fn:       func(context.Context, map[string]any) (string, error) { return "", errors.New("upstream 503") },
		},
		&FuncTool{
			ToolName: "Panics",
			Fn:       func(context.Context, map[string]any) (string, error) { panic("nil map") },
		},
	)

	res := inv.Invoke(context.Background(), schema.ToolUseBlock{ID: "a", Name: "Fails"})
	assert.True(t, res.IsError)
	assert.Equal(t, "upstream 503", res.Content)

	res = inv.Invoke(context.Background(), schema.ToolUseBlock{ID: "b", Name: "Panics"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "panicked")
}

func TestInvokeRespectsActiveSubset(t *testing.T) {
	reg, err := NewRegistryBuilder().
		WithTool(echoTool("Visible", "v")).
		WithTool(echoTool("Hidden", "h")).
		Build()
	require.NoError(t, err)

	inv := NewInvoker(reg.Subset("Visible"))
	res := inv.Invoke(context.Background(), schema.ToolUseBlock{ID: "1", Name: "Hidden"})
	assert.True(t, res.IsError)
	assert.Equal(t, "tool not found: Hidden", res.Content)
}
