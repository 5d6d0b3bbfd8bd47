package cmdutils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

func TestPrinterRendersAnswerAndToolHints(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	events := []schema.Event{
		schema.ToolUseEvent(schema.ToolUseBlock{ID: "1", Name: "Geocode", Input: map[string]any{"address": "Louvre"}}),
		schema.ToolResultEvent(schema.ToolResultBlock{ToolUseID: "1", Content: "48.86,2.33"}),
		schema.TextDeltaEvent("The Louvre "),
		schema.TextDeltaEvent("is open."),
	}
	for _, ev := range events {
		require.NoError(t, p.Send(ev))
	}
	p.Done()

	assert.Equal(t, "  ↳ Geocode(\"Louvre\")\n\n"+Logo+" waypoint\nThe Louvre is open.\n\n", buf.String())
}

func TestPrinterShowsFailures(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	require.NoError(t, p.Send(schema.ToolResultEvent(schema.ToolResultBlock{ToolUseID: "1", Content: "boom", IsError: true})))
	require.NoError(t, p.Send(schema.ErrorEvent(schema.ErrorService, "overloaded")))

	assert.Contains(t, buf.String(), "  ✗ boom\n")
	assert.Contains(t, buf.String(), "[service_error] overloaded")
}
