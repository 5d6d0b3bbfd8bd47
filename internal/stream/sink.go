// Package stream carries agent events to clients as they are produced.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"sync"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

// ErrClosed is returned by a sink whose client has gone away.
var ErrClosed = errors.New("stream closed")

// Sink delivers one event to a client.
type Sink interface {
	Send(ev schema.Event) error
}

// Forward pulls events one at a time and sends each immediately. On the first
// send error it stops pulling, which tells the producer the client is gone.
func Forward(events iter.Seq[schema.Event], sink Sink) error {
	sent := 0
	for ev := range events {
		if err := sink.Send(ev); err != nil {
			slog.Info("Client disconnected mid-stream", "sent", sent, "err", err)
			return err
		}
		sent++
	}
	return nil
}

// WithContext returns a sink that fails with ErrClosed once ctx is done, so a
// vanished HTTP client is noticed even when writes are still buffered.
func WithContext(ctx context.Context, sink Sink) Sink {
	return &contextSink{ctx: ctx, sink: sink}
}

type contextSink struct {
	ctx  context.Context
	sink Sink
}

func (s *contextSink) Send(ev schema.Event) error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return s.sink.Send(ev)
}

// NDJSONSink writes one JSON object per line and flushes after each event.
type NDJSONSink struct {
	mu      sync.Mutex
	w       io.Writer
	enc     *json.Encoder
	flusher http.Flusher
}

func NewNDJSONSink(w io.Writer) *NDJSONSink {
	s := &NDJSONSink{w: w, enc: json.NewEncoder(w)}
	s.enc.SetEscapeHTML(false)
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

func (s *NDJSONSink) Send(ev schema.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(ev); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// TextSink writes only the text of text_delta events, in the plain-text mode
// older clients expect. A terminal error event is written as its message.
type TextSink struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

func NewTextSink(w io.Writer) *TextSink {
	s := &TextSink{w: w}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

func (s *TextSink) Send(ev schema.Event) error {
	var text string
	switch {
	case ev.Delta != nil && ev.Delta.Type == schema.DeltaText:
		text = ev.Delta.Text
	case ev.Type == schema.EventError && ev.Error != nil:
		text = ev.Error.Message
	default:
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, text); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Collector keeps every event in memory for non-streaming responses.
type Collector struct {
	Events []schema.Event
}

func (c *Collector) Send(ev schema.Event) error {
	c.Events = append(c.Events, ev)
	return nil
}

// Text concatenates the text deltas seen so far.
func (c *Collector) Text() string {
	var b []byte
	for _, ev := range c.Events {
		if ev.Delta != nil && ev.Delta.Type == schema.DeltaText {
			b = append(b, ev.Delta.Text...)
		}
	}
	return string(b)
}
