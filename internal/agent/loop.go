package agent

import (
	"context"
	"iter"
	"log/slog"

	"github.com/crystaldolphin/waypoint/internal/schema"
	"github.com/crystaldolphin/waypoint/internal/shared/llmutils"
	"github.com/crystaldolphin/waypoint/internal/tools"
)

// State is the position of a Loop run in its state machine.
type State string

const (
	StateAwaitingModel   State = "AWAITING_MODEL"
	StateProcessingTools State = "PROCESSING_TOOLS"
	StateDone            State = "DONE"
	StateError           State = "ERROR"
	StateStepLimit       State = "STEP_LIMIT_REACHED"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError || s == StateStepLimit
}

const (
	stepLimitMessage  = "This conversation has reached its step limit. Please start a new conversation."
	cancelledByClient = "request cancelled before execution"
)

// Turn is the input of one Loop run.
type Turn struct {
	Prompt string
	Images []schema.ImageBlock
	System string
	Tools  *tools.ToolList
}

// Transcript is the mutable record of a Loop run. The caller owns it and
// reads it after the event sequence has been drained or abandoned.
type Transcript struct {
	Messages     schema.Messages
	State        State
	ModelCalls   int
	Disconnected bool
}

// NewTranscript starts a transcript from an existing conversation history.
func NewTranscript(history schema.Messages) *Transcript {
	return &Transcript{Messages: history, State: StateAwaitingModel}
}

// Loop executes the model ↔ tool iteration for one conversation turn.
type Loop struct {
	provider schema.LLMProvider
	settings schema.AgentSettings
}

func NewLoop(provider schema.LLMProvider, settings schema.AgentSettings) *Loop {
	if settings.MaxSteps <= 0 {
		settings.MaxSteps = schema.DefaultMaxSteps
	}
	return &Loop{provider: provider, settings: settings}
}

// Run returns the event sequence of one turn. Nothing happens until the
// sequence is ranged over. tr is updated as the run progresses; once the
// consumer stops pulling, no more events are produced and the model is not
// called again, but tr still receives a well-formed history.
func (l *Loop) Run(ctx context.Context, tr *Transcript, turn Turn) iter.Seq[schema.Event] {
	return func(yield func(schema.Event) bool) {
		emit := func(ev schema.Event) bool {
			if tr.Disconnected {
				return false
			}
			if !yield(ev) {
				tr.Disconnected = true
			}
			return !tr.Disconnected
		}

		if turn.Prompt != "" || len(turn.Images) > 0 {
			tr.Messages.AddUser(turn.Prompt, turn.Images...)
		}

		invoker := tools.NewInvoker(turn.Tools)
		definitions := turn.Tools.Definitions()
		opts := schema.NewChatOptions(l.settings.Model, turn.System, l.settings.MaxTokens, l.settings.Temperature)

		for {
			if tr.Messages.Len() >= 2*l.settings.MaxSteps {
				tr.State = StateStepLimit
				slog.Warn("Step limit reached", "messages", tr.Messages.Len(), "maxSteps", l.settings.MaxSteps)
				emit(schema.ErrorEvent(schema.ErrorStepLimit, stepLimitMessage))
				return
			}
			if tr.Disconnected || ctx.Err() != nil {
				tr.Disconnected = true
				slog.Info("Client gone, not calling the model again", "modelCalls", tr.ModelCalls)
				return
			}

			// A model call in flight is not preempted by the client leaving;
			// the ctx check above is the only stop point.
			tr.State = StateAwaitingModel
			resp, err := l.provider.Chat(context.WithoutCancel(ctx), tr.Messages, definitions, opts)
			tr.ModelCalls++
			if err != nil {
				tr.State = StateError
				slog.Error("LLM error", "err", err, "step", tr.ModelCalls)
				emit(schema.ErrorEvent(schema.ErrorService, err.Error()))
				return
			}

			slog.Info("Model response",
				"step", tr.ModelCalls,
				"stop", resp.StopReason,
				"blocks", len(resp.Content),
			)

			tr.Messages.AddAssistant(resp.Content)
			if resp.HasToolUse() {
				emit(schema.MessageEvent(resp))
			}

			tr.State = StateProcessingTools
			results := l.processBlocks(ctx, invoker, resp.Content, emit)
			if len(results) == 0 {
				tr.State = StateDone
				return
			}
			tr.Messages.AddToolResults(results)
		}
	}
}

// processBlocks handles one response's content blocks in order. Tools run
// sequentially with a context that ignores cancellation, so a dispatched call
// always completes. Calls not yet dispatched when the client leaves get a
// synthesized error result.
func (l *Loop) processBlocks(ctx context.Context, invoker *tools.Invoker, blocks []schema.ContentBlock, emit func(schema.Event) bool) []schema.ToolResultBlock {
	var results []schema.ToolResultBlock
	for _, block := range blocks {
		switch b := block.(type) {
		case schema.TextBlock:
			if text := llmutils.StripThink(b.Text); text != "" {
				emit(schema.TextDeltaEvent(text))
			}

		case schema.ToolUseBlock:
			if !emit(schema.ToolUseEvent(b)) {
				results = append(results, schema.ToolResultBlock{ToolUseID: b.ID, Content: cancelledByClient, IsError: true})
				continue
			}
			res := invoker.Invoke(context.WithoutCancel(ctx), b)
			results = append(results, res)
			emit(schema.ToolResultEvent(res))
		}
	}
	return results
}
