package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/waypoint/internal/schema"
	"github.com/crystaldolphin/waypoint/internal/tools"
)

// scriptedProvider replays a fixed list of responses. Once the script runs
// out, every further call repeats the last step.
type scriptedProvider struct {
	mu      sync.Mutex
	steps   []func() (schema.LLMResponse, error)
	calls   int
	lens    []int
	systems []string
	tools   [][]string
}

func (p *scriptedProvider) Chat(_ context.Context, msgs schema.Messages, defs []schema.ToolDefinition, opts schema.ChatOptions) (schema.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lens = append(p.lens, msgs.Len())
	p.systems = append(p.systems, opts.System)
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	p.tools = append(p.tools, names)

	step := p.steps[min(p.calls, len(p.steps))-1]
	return step()
}

func (p *scriptedProvider) DefaultModel() string { return "scripted" }

func script(steps ...func() (schema.LLMResponse, error)) *scriptedProvider {
	return &scriptedProvider{steps: steps}
}

func replyText(text string) func() (schema.LLMResponse, error) {
	return func() (schema.LLMResponse, error) {
		return schema.LLMResponse{
			StopReason: schema.StopEndTurn,
			Content:    []schema.ContentBlock{schema.TextBlock{Text: text}},
		}, nil
	}
}

func replyTools(blocks ...schema.ContentBlock) func() (schema.LLMResponse, error) {
	return func() (schema.LLMResponse, error) {
		return schema.LLMResponse{StopReason: schema.StopToolUse, Content: blocks}, nil
	}
}

func replyErr(err error) func() (schema.LLMResponse, error) {
	return func() (schema.LLMResponse, error) { return schema.LLMResponse{}, err }
}

func use(id, name string, input map[string]any) schema.ToolUseBlock {
	return schema.ToolUseBlock{ID: id, Name: name, Input: input}
}

// recorder is a FuncTool factory that logs execution order.
type recorder struct {
	mu  sync.Mutex
	ran []string
}

func (r *recorder) tool(name, output string, err error) *tools.FuncTool {
	return &tools.FuncTool{
		ToolName:        name,
		ToolDescription: name,
		Schema:          json.RawMessage(`{"type":"object","properties":{"type":{"type":"string"}}}`),
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			r.mu.Lock()
			r.ran = append(r.ran, fmt.Sprintf("%s:%v", name, args["type"]))
			r.mu.Unlock()
			return output, err
		},
	}
}

func toolList(t *testing.T, ts ...schema.Tool) *tools.ToolList {
	t.Helper()
	b := tools.NewRegistryBuilder()
	for _, tl := range ts {
		b.WithTool(tl)
	}
	reg, err := b.Build()
	require.NoError(t, err)
	return reg.AllTools()
}

func collect(seq iter.Seq[schema.Event]) []schema.Event {
	var out []schema.Event
	for ev := range seq {
		out = append(out, ev)
	}
	return out
}

func shape(events []schema.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		switch {
		case ev.Delta != nil:
			out = append(out, string(ev.Delta.Type))
		case ev.Error != nil:
			out = append(out, "error:"+string(ev.Error.Type))
		default:
			out = append(out, string(ev.Type))
		}
	}
	return out
}

func TestFindAPlaceScenario(t *testing.T) {
	rec := &recorder{}
	list := toolList(t, rec.tool(string(tools.ToolNearbyPlaces), `[{"name":"Louvre"},{"name":"Orsay"}]`, nil))
	p := script(
		replyTools(use("tu_1", string(tools.ToolNearbyPlaces), map[string]any{"type": "museum"})),
		replyText("The Louvre and Orsay are both close."),
	)

	tr := NewTranscript(schema.NewMessages())
	events := collect(NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(context.Background(), tr, Turn{
		Prompt: "find a place",
		Tools:  list,
	}))

	assert.Equal(t, []string{"message", "tool_use", "tool_result", "text_delta"}, shape(events))
	assert.Equal(t, "tu_1", events[1].Delta.ID)
	assert.False(t, events[2].Delta.IsError)
	assert.JSONEq(t, `[{"name":"Louvre"},{"name":"Orsay"}]`, events[2].Delta.Output)
	assert.Equal(t, "The Louvre and Orsay are both close.", events[3].Delta.Text)
	for _, ev := range events {
		require.NoError(t, ev.Validate())
	}

	assert.Equal(t, StateDone, tr.State)
	assert.Equal(t, 2, tr.ModelCalls)
	require.Equal(t, 4, tr.Messages.Len())
	roles := []schema.Role{schema.RoleUser, schema.RoleAssistant, schema.RoleUser, schema.RoleAssistant}
	for i, m := range tr.Messages.Messages {
		assert.Equal(t, roles[i], m.Role, "message %d", i)
	}
	assert.Equal(t, []int{1, 3}, p.lens)
	assert.Equal(t, []string{"SearchForNearbyPlacesOfType:museum"}, rec.ran)
}

func TestModelFailureEmitsSingleError(t *testing.T) {
	p := script(replyErr(errors.New("connection reset")))
	tr := NewTranscript(schema.NewMessages())

	events := collect(NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(context.Background(), tr, Turn{Prompt: "hello"}))

	require.Len(t, events, 1)
	assert.Equal(t, []string{"error:service_error"}, shape(events))
	assert.Contains(t, events[0].Error.Message, "connection reset")
	assert.True(t, events[0].Terminal())

	assert.Equal(t, StateError, tr.State)
	require.Equal(t, 1, tr.Messages.Len())
	assert.Equal(t, "hello", tr.Messages.Messages[0].Text())
}

func TestUnknownToolBecomesErrorResult(t *testing.T) {
	p := script(
		replyTools(use("tu_x", "Teleport", map[string]any{"to": "Mars"})),
		replyText("I cannot teleport you."),
	)
	tr := NewTranscript(schema.NewMessages())

	events := collect(NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(context.Background(), tr, Turn{
		Prompt: "beam me up",
		Tools:  toolList(t),
	}))

	require.Equal(t, []string{"message", "tool_use", "tool_result", "text_delta"}, shape(events))
	res := events[2].Delta
	assert.True(t, res.IsError)
	assert.Equal(t, "tool not found: Teleport", res.Output)
	kind, ok := events[2].Kind()
	assert.True(t, ok)
	assert.Equal(t, schema.ErrorTool, kind)
	assert.False(t, events[2].Terminal())

	assert.Equal(t, StateDone, tr.State)
	batch := tr.Messages.Messages[2].Content[0].(schema.ToolResultBlock)
	assert.True(t, batch.IsError)
}

func TestToolsRunSequentiallyAndResultsAreBatchedInOrder(t *testing.T) {
	rec := &recorder{}
	list := toolList(t,
		rec.tool("A", "a-out", nil),
		rec.tool("B", "", errors.New("b failed")),
		rec.tool("C", "c-out", nil),
	)
	p := script(
		replyTools(
			schema.TextBlock{Text: "Checking three things."},
			use("1", "A", map[string]any{"type": "x"}),
			use("2", "B", map[string]any{"type": "y"}),
			schema.TextBlock{Text: "Almost there."},
			use("3", "C", map[string]any{"type": "z"}),
		),
		replyText("done"),
	)
	tr := NewTranscript(schema.NewMessages())

	events := collect(NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(context.Background(), tr, Turn{Prompt: "go", Tools: list}))

	assert.Equal(t, []string{
		"message",
		"text_delta",
		"tool_use", "tool_result",
		"tool_use", "tool_result",
		"text_delta",
		"tool_use", "tool_result",
		"text_delta",
	}, shape(events))
	assert.Equal(t, []string{"A:x", "B:y", "C:z"}, rec.ran)

	require.Equal(t, 4, tr.Messages.Len())
	batch := tr.Messages.Messages[2]
	assert.Equal(t, schema.RoleUser, batch.Role)
	require.Len(t, batch.Content, 3)
	var ids []string
	for _, b := range batch.Content {
		r := b.(schema.ToolResultBlock)
		ids = append(ids, r.ToolUseID)
		assert.Equal(t, r.ToolUseID == "2", r.IsError)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestStepLimitBoundsModelCalls(t *testing.T) {
	for k := 1; k <= 5; k++ {
		t.Run(fmt.Sprintf("max_steps=%d", k), func(t *testing.T) {
			rec := &recorder{}
			p := script(replyTools(use("again", "A", map[string]any{"type": "loop"})))
			tr := NewTranscript(schema.NewMessages())

			events := collect(NewLoop(p, schema.NewAgentSettings("m", k, 0, 0)).Run(context.Background(), tr, Turn{
				Prompt: "never stop",
				Tools:  toolList(t, rec.tool("A", "again", nil)),
			}))

			assert.Equal(t, k, p.calls)
			assert.Equal(t, k, tr.ModelCalls)
			assert.Equal(t, StateStepLimit, tr.State)
			last := events[len(events)-1]
			assert.Equal(t, "error:step_limit", shape([]schema.Event{last})[0])
			assert.True(t, last.Terminal())
		})
	}
}

func TestGuardStopsBeforeModelWhenHistoryIsFull(t *testing.T) {
	history := schema.NewMessages()
	for range schema.DefaultMaxSteps {
		history.AddUser("q")
		history.AddAssistant([]schema.ContentBlock{schema.TextBlock{Text: "a"}})
	}
	p := script(replyText("unreachable"))
	tr := NewTranscript(history)

	events := collect(NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(context.Background(), tr, Turn{Prompt: "one more"}))

	assert.Equal(t, []string{"error:step_limit"}, shape(events))
	assert.Equal(t, 0, p.calls)
	assert.Equal(t, 2*schema.DefaultMaxSteps+1, tr.Messages.Len())
}

func TestCompletedTurnsLeaveEvenHistory(t *testing.T) {
	rec := &recorder{}
	list := toolList(t, rec.tool("A", "ok", nil))
	p := script(
		replyText("hi"),
		replyTools(use("1", "A", nil)),
		replyText("used A"),
		replyTools(use("2", "A", nil), use("3", "A", nil)),
		replyTools(use("4", "A", nil)),
		replyText("used A three times"),
	)
	loop := NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0))
	history := schema.NewMessages()

	for _, prompt := range []string{"hello", "use A", "use A a lot"} {
		tr := NewTranscript(history)
		collect(loop.Run(context.Background(), tr, Turn{Prompt: prompt, Tools: list}))
		require.Equal(t, StateDone, tr.State)
		assert.Zero(t, tr.Messages.Len()%2, "after %q", prompt)
		history = tr.Messages
	}
	assert.Equal(t, 6, p.calls)
	assert.Equal(t, 12, history.Len())
}

func TestDisconnectAtToolUseCancelsUndispatchedTools(t *testing.T) {
	rec := &recorder{}
	list := toolList(t, rec.tool("A", "a", nil), rec.tool("B", "b", nil))
	p := script(
		replyTools(use("1", "A", nil), use("2", "B", nil)),
		replyText("unreachable"),
	)
	tr := NewTranscript(schema.NewMessages())

	var seen []string
	for ev := range NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(context.Background(), tr, Turn{Prompt: "go", Tools: list}) {
		seen = append(seen, shape([]schema.Event{ev})...)
		if ev.Delta != nil && ev.Delta.Type == schema.DeltaToolUse {
			break
		}
	}

	assert.Equal(t, []string{"message", "tool_use"}, seen)
	assert.True(t, tr.Disconnected)
	assert.Equal(t, 1, p.calls)
	assert.Empty(t, rec.ran)

	require.Equal(t, 3, tr.Messages.Len())
	batch := tr.Messages.Messages[2].Content
	require.Len(t, batch, 2)
	for _, b := range batch {
		r := b.(schema.ToolResultBlock)
		assert.True(t, r.IsError)
		assert.Equal(t, cancelledByClient, r.Content)
	}
}

func TestDisconnectAfterResultLetsDispatchedToolFinish(t *testing.T) {
	rec := &recorder{}
	list := toolList(t, rec.tool("A", "a", nil), rec.tool("B", "b", nil))
	p := script(replyTools(use("1", "A", nil), use("2", "B", nil)))
	tr := NewTranscript(schema.NewMessages())

	for ev := range NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(context.Background(), tr, Turn{Prompt: "go", Tools: list}) {
		if ev.Delta != nil && ev.Delta.Type == schema.DeltaToolResult {
			break
		}
	}

	assert.Equal(t, []string{"A:<nil>"}, rec.ran)
	batch := tr.Messages.Messages[2].Content
	require.Len(t, batch, 2)
	first := batch[0].(schema.ToolResultBlock)
	second := batch[1].(schema.ToolResultBlock)
	assert.Equal(t, "a", first.Content)
	assert.False(t, first.IsError)
	assert.Equal(t, cancelledByClient, second.Content)
	assert.Equal(t, 1, p.calls)
}

func TestCancelledContextSkipsModel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := script(replyText("unreachable"))
	tr := NewTranscript(schema.NewMessages())

	events := collect(NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(ctx, tr, Turn{Prompt: "hi"}))

	assert.Empty(t, events)
	assert.Equal(t, 0, p.calls)
	assert.True(t, tr.Disconnected)
	assert.Equal(t, 1, tr.Messages.Len())
}

// gatedProvider blocks each Chat until release is closed, then reports the
// context error it sees, if any.
type gatedProvider struct {
	started chan struct{}
	release chan struct{}
}

func (p *gatedProvider) Chat(ctx context.Context, _ schema.Messages, _ []schema.ToolDefinition, _ schema.ChatOptions) (schema.LLMResponse, error) {
	close(p.started)
	<-p.release
	if err := ctx.Err(); err != nil {
		return schema.LLMResponse{}, err
	}
	return replyText("Still here.")()
}

func (p *gatedProvider) DefaultModel() string { return "gated" }

func TestCancelDuringModelCallKeepsResponse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &gatedProvider{started: make(chan struct{}), release: make(chan struct{})}
	go func() {
		<-p.started
		cancel()
		close(p.release)
	}()
	tr := NewTranscript(schema.NewMessages())

	events := collect(NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(ctx, tr, Turn{Prompt: "hi"}))

	assert.Equal(t, []string{"text_delta"}, shape(events))
	assert.Equal(t, StateDone, tr.State)
	assert.Equal(t, 1, tr.ModelCalls)
	require.Equal(t, 2, tr.Messages.Len())
	assert.Equal(t, schema.RoleAssistant, tr.Messages.Messages[1].Role)
	assert.Equal(t, "Still here.", tr.Messages.Messages[1].Text())
}

func TestThinkBlocksAreStripped(t *testing.T) {
	p := script(replyText("<think>plan</think>Answer"))
	tr := NewTranscript(schema.NewMessages())

	events := collect(NewLoop(p, schema.NewAgentSettings("m", 0, 0, 0)).Run(context.Background(), tr, Turn{Prompt: "q"}))

	require.Len(t, events, 1)
	assert.Equal(t, "Answer", events[0].Delta.Text)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateError.Terminal())
	assert.True(t, StateStepLimit.Terminal())
	assert.False(t, StateAwaitingModel.Terminal())
	assert.False(t, StateProcessingTools.Terminal())
}
