package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

const maxLineBytes = 1024 * 1024

// Decode reads an NDJSON event stream. Malformed or unknown lines are logged
// and skipped; only read errors are yielded.
func Decode(r io.Reader) iter.Seq2[schema.Event, error] {
	return func(yield func(schema.Event, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var ev schema.Event
			if err := json.Unmarshal([]byte(line), &ev); err != nil {
				slog.Warn("Skipping malformed event", "err", err)
				continue
			}
			if err := ev.Validate(); err != nil {
				slog.Warn("Skipping invalid event", "err", err)
				continue
			}
			if !yield(ev, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(schema.Event{}, err)
		}
	}
}
