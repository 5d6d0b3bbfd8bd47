package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crystaldolphin/waypoint/internal/tools"
)

// Intent selects the system prompt and tool subset of a request.
type Intent string

const (
	IntentRestaurant Intent = "restaurant"
	IntentPlace      Intent = "place"
	IntentTrip       Intent = "trip"
	IntentTourGuide  Intent = "tourguide"
)

// ErrUnknownIntent matches every error returned by ParseIntent.
var ErrUnknownIntent = errors.New("unknown query type")

// UnknownIntentError carries the rejected query type.
type UnknownIntentError struct {
	Value string
}

func (e *UnknownIntentError) Error() string {
	return fmt.Sprintf("Invalid query type: %s. Supported types are 'restaurant', 'place', and 'trip'.", e.Value)
}

func (e *UnknownIntentError) Unwrap() error { return ErrUnknownIntent }

// ParseIntent accepts the query types a client may name. The tour guide is
// reached through its own entry point, not through a query type.
func ParseIntent(s string) (Intent, error) {
	switch i := Intent(strings.ToLower(strings.TrimSpace(s))); i {
	case IntentRestaurant, IntentPlace, IntentTrip:
		return i, nil
	}
	return "", &UnknownIntentError{Value: s}
}

// Tools lists the tools active for the intent.
func (i Intent) Tools() []tools.ToolName {
	switch i {
	case IntentTrip:
		return []tools.ToolName{
			tools.ToolSearchInternet,
			tools.ToolReadWebsite,
			tools.ToolGeocode,
			tools.ToolDistanceMatrix,
			tools.ToolOptimizeRoute,
		}
	case IntentRestaurant, IntentPlace, IntentTourGuide:
		return []tools.ToolName{
			tools.ToolSearchInternet,
			tools.ToolReadWebsite,
			tools.ToolNearbyPlaces,
		}
	}
	return nil
}
