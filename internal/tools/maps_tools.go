package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const defaultNearbyRadius = 100

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ---------------------------------------------------------------------------
// SearchForNearbyPlacesOfType
// ---------------------------------------------------------------------------

// NearbyPlacesTool lists places of a given type around a coordinate. When the
// model omits the coordinate, the caller's position from TurnContext is used.
type NearbyPlacesTool struct {
	maps   *MapsClient
	radius int
}

func NewNearbyPlacesTool(maps *MapsClient, radius int) *NearbyPlacesTool {
	if radius <= 0 {
		radius = defaultNearbyRadius
	}
	return &NearbyPlacesTool{maps: maps, radius: radius}
}

func (t *NearbyPlacesTool) Name() string { return string(ToolNearbyPlaces) }
func (t *NearbyPlacesTool) Description() string {
	return "Search for places of a given type (e.g. restaurant, museum, church) near a latitude/longitude. " +
		"Returns name, address, rating and opening status as JSON."
}
func (t *NearbyPlacesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"lat": {"type": "number", "description": "Latitude of the search centre", "minimum": -90, "maximum": 90},
			"lng": {"type": "number", "description": "Longitude of the search centre", "minimum": -180, "maximum": 180},
			"type": {"type": "string", "description": "Google place type, e.g. restaurant, tourist_attraction"},
			"radius": {"type": "integer", "description": "Search radius in metres", "minimum": 1, "maximum": 50000}
		},
		"required": ["type"]
	}`)
}

func (t *NearbyPlacesTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	lat, latOK := floatArg(params, "lat")
	lng, lngOK := floatArg(params, "lng")
	if !latOK || !lngOK {
		tc := TurnCtx(ctx)
		if !tc.HasLocation {
			return "", errors.New("lat and lng are required")
		}
		lat, lng = tc.Lat, tc.Lon
	}

	places, err := t.maps.NearbySearch(ctx, lat, lng, stringArg(params, "type"), intArg(params, "radius", t.radius))
	if err != nil {
		return "", err
	}
	return toJSON(places)
}

// ---------------------------------------------------------------------------
// Geocode / ReverseGeocode
// ---------------------------------------------------------------------------

// GeocodeTool resolves an address to coordinates.
type GeocodeTool struct {
	maps *MapsClient
}

func NewGeocodeTool(maps *MapsClient) *GeocodeTool { return &GeocodeTool{maps: maps} }

func (t *GeocodeTool) Name() string        { return string(ToolGeocode) }
func (t *GeocodeTool) Description() string { return "Convert an address or place name to latitude/longitude." }
func (t *GeocodeTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"address": {"type": "string", "description": "Address or place name", "minLength": 1}
		},
		"required": ["address"]
	}`)
}

func (t *GeocodeTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	address := stringArg(params, "address")
	places, err := t.maps.Geocode(ctx, address)
	if err != nil {
		return "", err
	}
	if len(places) == 0 {
		return "", fmt.Errorf("no match for address %q", address)
	}
	return toJSON(places)
}

// ReverseGeocodeTool resolves coordinates to an address.
type ReverseGeocodeTool struct {
	maps *MapsClient
}

func NewReverseGeocodeTool(maps *MapsClient) *ReverseGeocodeTool {
	return &ReverseGeocodeTool{maps: maps}
}

func (t *ReverseGeocodeTool) Name() string        { return string(ToolReverseGeocode) }
func (t *ReverseGeocodeTool) Description() string { return "Convert latitude/longitude to a street address." }
func (t *ReverseGeocodeTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"lat": {"type": "number", "minimum": -90, "maximum": 90},
			"lng": {"type": "number", "minimum": -180, "maximum": 180}
		},
		"required": ["lat", "lng"]
	}`)
}

func (t *ReverseGeocodeTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	lat, _ := floatArg(params, "lat")
	lng, _ := floatArg(params, "lng")
	return t.maps.ReverseGeocode(ctx, lat, lng)
}

// ---------------------------------------------------------------------------
// GetDistanceMatrix
// ---------------------------------------------------------------------------

// DistanceMatrixTool reports travel distance and time between places.
type DistanceMatrixTool struct {
	maps *MapsClient
}

func NewDistanceMatrixTool(maps *MapsClient) *DistanceMatrixTool {
	return &DistanceMatrixTool{maps: maps}
}

func (t *DistanceMatrixTool) Name() string { return string(ToolDistanceMatrix) }
func (t *DistanceMatrixTool) Description() string {
	return "Get travel distance and duration between each origin and each destination."
}
func (t *DistanceMatrixTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"origins": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"destinations": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"mode": {"type": "string", "enum": ["driving", "walking", "bicycling", "transit"]}
		},
		"required": ["origins", "destinations"]
	}`)
}

func (t *DistanceMatrixTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	origins, err := stringListArg(params, "origins")
	if err != nil {
		return "", err
	}
	destinations, err := stringListArg(params, "destinations")
	if err != nil {
		return "", err
	}
	entries, err := t.maps.DistanceMatrix(ctx, origins, destinations, stringArg(params, "mode"))
	if err != nil {
		return "", err
	}
	return toJSON(entries)
}

// ---------------------------------------------------------------------------
// OptimizeRoute
// ---------------------------------------------------------------------------

// OptimizeRouteTool orders waypoints for the shortest trip.
type OptimizeRouteTool struct {
	maps *MapsClient
}

func NewOptimizeRouteTool(maps *MapsClient) *OptimizeRouteTool {
	return &OptimizeRouteTool{maps: maps}
}

func (t *OptimizeRouteTool) Name() string { return string(ToolOptimizeRoute) }
func (t *OptimizeRouteTool) Description() string {
	return "Find the best order to visit waypoints between an origin and a destination, with per-leg distance and duration."
}
func (t *OptimizeRouteTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"origin": {"type": "string", "minLength": 1},
			"destination": {"type": "string", "minLength": 1},
			"waypoints": {"type": "array", "items": {"type": "string"}},
			"mode": {"type": "string", "enum": ["driving", "walking", "bicycling", "transit"]}
		},
		"required": ["origin", "destination"]
	}`)
}

func (t *OptimizeRouteTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	waypoints, err := stringListArg(params, "waypoints")
	if err != nil {
		return "", err
	}
	route, err := t.maps.OptimizeRoute(ctx, stringArg(params, "origin"), stringArg(params, "destination"), waypoints, stringArg(params, "mode"))
	if err != nil {
		return "", err
	}
	return toJSON(route)
}
