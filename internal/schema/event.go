package schema

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates top-level stream events.
type EventType string

const (
	EventMessage      EventType = "message"
	EventMessageDelta EventType = "message_delta"
	EventError        EventType = "error"
)

// DeltaType discriminates message_delta payloads.
type DeltaType string

const (
	DeltaText       DeltaType = "text_delta"
	DeltaToolUse    DeltaType = "tool_use"
	DeltaToolResult DeltaType = "tool_result"
)

// ErrorKind is the closed set of failure classes surfaced to callers.
type ErrorKind string

const (
	// ErrorService is a failed model call. Terminal.
	ErrorService ErrorKind = "service_error"
	// ErrorTool is a failed tool invocation. Never terminal; it reaches the
	// caller as a tool_result with is_error set.
	ErrorTool ErrorKind = "tool_error"
	// ErrorStepLimit means the conversation used up its step budget. Terminal.
	ErrorStepLimit ErrorKind = "step_limit"
)

// Valid reports whether k is one of the known kinds.
func (k ErrorKind) Valid() bool {
	switch k {
	case ErrorService, ErrorTool, ErrorStepLimit:
		return true
	}
	return false
}

// Terminal reports whether an error of this kind ends the request.
func (k ErrorKind) Terminal() bool {
	return k == ErrorService || k == ErrorStepLimit
}

// ResponseMessage is the full model response carried by a message event.
type ResponseMessage struct {
	Message
	Model      string
	StopReason StopReason
}

type wireResponse struct {
	Role       Role              `json:"role"`
	Model      string            `json:"model,omitempty"`
	StopReason StopReason        `json:"stop_reason,omitempty"`
	Content    []json.RawMessage `json:"content"`
}

func (r ResponseMessage) MarshalJSON() ([]byte, error) {
	w := wireResponse{Role: r.Role, Model: r.Model, StopReason: r.StopReason, Content: make([]json.RawMessage, 0, len(r.Content))}
	for _, b := range r.Content {
		raw, err := marshalBlock(b)
		if err != nil {
			return nil, err
		}
		w.Content = append(w.Content, raw)
	}
	return json.Marshal(w)
}

func (r *ResponseMessage) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Role, r.Model, r.StopReason = w.Role, w.Model, w.StopReason
	r.Content = make([]ContentBlock, 0, len(w.Content))
	for _, raw := range w.Content {
		b, err := unmarshalBlock(raw)
		if err != nil {
			return err
		}
		r.Content = append(r.Content, b)
	}
	return nil
}

// Delta is the payload of a message_delta event. Which fields are meaningful
// depends on Type.
type Delta struct {
	Type    DeltaType
	Text    string
	ID      string
	Name    string
	Input   map[string]any
	Output  string
	IsError bool
}

func (d Delta) MarshalJSON() ([]byte, error) {
	switch d.Type {
	case DeltaText:
		return json.Marshal(map[string]any{"type": d.Type, "text": d.Text})
	case DeltaToolUse:
		input := d.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(map[string]any{"type": d.Type, "id": d.ID, "name": d.Name, "input": input})
	case DeltaToolResult:
		return json.Marshal(map[string]any{"type": d.Type, "id": d.ID, "output": d.Output, "is_error": d.IsError})
	}
	return nil, fmt.Errorf("unknown delta type %q", d.Type)
}

func (d *Delta) UnmarshalJSON(data []byte) error {
	var w struct {
		Type    DeltaType      `json:"type"`
		Text    string         `json:"text"`
		ID      string         `json:"id"`
		Name    string         `json:"name"`
		Input   map[string]any `json:"input"`
		Output  string         `json:"output"`
		IsError bool           `json:"is_error"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case DeltaText, DeltaToolUse, DeltaToolResult:
	default:
		return fmt.Errorf("unknown delta type %q", w.Type)
	}
	*d = Delta{Type: w.Type, Text: w.Text, ID: w.ID, Name: w.Name, Input: w.Input, Output: w.Output, IsError: w.IsError}
	return nil
}

// EventError is the payload of an error event.
type EventError struct {
	Type    ErrorKind `json:"type"`
	Message string    `json:"message"`
}

// Event is one unit of the caller-facing stream.
type Event struct {
	Type    EventType        `json:"type"`
	Message *ResponseMessage `json:"message,omitempty"`
	Delta   *Delta           `json:"delta,omitempty"`
	Error   *EventError      `json:"error,omitempty"`
}

func MessageEvent(resp LLMResponse) Event {
	return Event{Type: EventMessage, Message: &ResponseMessage{
		Message:    resp.Message(),
		Model:      resp.Model,
		StopReason: resp.StopReason,
	}}
}

func TextDeltaEvent(text string) Event {
	return Event{Type: EventMessageDelta, Delta: &Delta{Type: DeltaText, Text: text}}
}

func ToolUseEvent(tu ToolUseBlock) Event {
	return Event{Type: EventMessageDelta, Delta: &Delta{Type: DeltaToolUse, ID: tu.ID, Name: tu.Name, Input: tu.Input}}
}

func ToolResultEvent(tr ToolResultBlock) Event {
	return Event{Type: EventMessageDelta, Delta: &Delta{Type: DeltaToolResult, ID: tr.ToolUseID, Output: tr.Content, IsError: tr.IsError}}
}

func ErrorEvent(kind ErrorKind, msg string) Event {
	return Event{Type: EventError, Error: &EventError{Type: kind, Message: msg}}
}

// Kind classifies failures carried by the event: the kind of an error event,
// or ErrorTool for a failed tool_result. ok is false for everything else.
func (e Event) Kind() (kind ErrorKind, ok bool) {
	switch {
	case e.Type == EventError && e.Error != nil:
		return e.Error.Type, true
	case e.Type == EventMessageDelta && e.Delta != nil && e.Delta.Type == DeltaToolResult && e.Delta.IsError:
		return ErrorTool, true
	}
	return "", false
}

// Terminal reports whether no further events follow this one.
func (e Event) Terminal() bool {
	kind, ok := e.Kind()
	return ok && kind.Terminal()
}

// Validate checks that the event has the payload its type requires.
func (e Event) Validate() error {
	switch e.Type {
	case EventMessage:
		if e.Message == nil {
			return fmt.Errorf("message event without message")
		}
	case EventMessageDelta:
		if e.Delta == nil {
			return fmt.Errorf("message_delta event without delta")
		}
	case EventError:
		if e.Error == nil || !e.Error.Type.Valid() {
			return fmt.Errorf("error event without a known error kind")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
