package tools

import (
	"fmt"

	"github.com/crystaldolphin/waypoint/internal/schema"
)

// validateArgs checks args against the tool's compiled schema, then against
// the tool's own ArgumentValidator if it has one.
func validateArgs(e entry, args map[string]any) error {
	if e.resolved != nil {
		if err := e.resolved.Validate(args); err != nil {
			return fmt.Errorf("invalid arguments for %s: %w", e.tool.Name(), err)
		}
	}
	if v, ok := e.tool.(schema.ArgumentValidator); ok {
		if err := v.ValidateArgs(args); err != nil {
			return fmt.Errorf("invalid arguments for %s: %w", e.tool.Name(), err)
		}
	}
	return nil
}
