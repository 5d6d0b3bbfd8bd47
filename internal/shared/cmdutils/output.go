package cmdutils

import (
	"fmt"
	"io"

	"github.com/crystaldolphin/waypoint/internal/schema"
	"github.com/crystaldolphin/waypoint/internal/shared/llmutils"
)

const Logo = "🧭"

// Printer renders an event stream for a terminal: answer text inline, tool
// activity as indented hints.
type Printer struct {
	w       io.Writer
	started bool
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Send satisfies stream.Sink.
func (p *Printer) Send(ev schema.Event) error {
	switch {
	case ev.Type == schema.EventError && ev.Error != nil:
		p.header()
		_, err := fmt.Fprintf(p.w, "[%s] %s", ev.Error.Type, ev.Error.Message)
		return err

	case ev.Delta == nil:
		return nil

	case ev.Delta.Type == schema.DeltaToolUse:
		call := schema.ToolUseBlock{ID: ev.Delta.ID, Name: ev.Delta.Name, Input: ev.Delta.Input}
		_, err := fmt.Fprintf(p.w, "  ↳ %s\n", llmutils.ToolHint([]schema.ToolUseBlock{call}))
		return err

	case ev.Delta.Type == schema.DeltaToolResult && ev.Delta.IsError:
		_, err := fmt.Fprintf(p.w, "  ✗ %s\n", llmutils.Truncate(ev.Delta.Output, 120))
		return err

	case ev.Delta.Type == schema.DeltaText:
		p.header()
		_, err := io.WriteString(p.w, ev.Delta.Text)
		return err
	}
	return nil
}

// Done ends the current answer.
func (p *Printer) Done() {
	if p.started {
		fmt.Fprint(p.w, "\n\n")
	}
	p.started = false
}

func (p *Printer) header() {
	if !p.started {
		fmt.Fprintf(p.w, "\n%s waypoint\n", Logo)
		p.started = true
	}
}
