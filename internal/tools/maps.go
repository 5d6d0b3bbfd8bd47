package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crystaldolphin/waypoint/internal/shared/llmutils"
)

const defaultMapsBaseURL = "https://maps.googleapis.com/maps/api"

// ErrMapsNotConfigured is returned when no Google Maps key is set.
var ErrMapsNotConfigured = errors.New("GOOGLE_MAPS_API_KEY not configured")

// MapsClient is a thin client for the Google Maps web services used by the
// mapping tools and the location resolver.
type MapsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewMapsClient creates a MapsClient. apiKey is GOOGLE_MAPS_API_KEY.
func NewMapsClient(apiKey string) *MapsClient {
	return &MapsClient{
		apiKey:     apiKey,
		baseURL:    defaultMapsBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL points the client at a different host.
func (c *MapsClient) WithBaseURL(baseURL string) *MapsClient {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Configured reports whether an API key is set.
func (c *MapsClient) Configured() bool { return c != nil && c.apiKey != "" }

type mapsStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// get calls path with q, checks the service status and decodes into out.
func (c *MapsClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if !c.Configured() {
		return ErrMapsNotConfigured
	}
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("maps %s returned %d: %s", path, resp.StatusCode, llmutils.Truncate(string(body), 200))
	}

	var st mapsStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	switch st.Status {
	case "OK", "ZERO_RESULTS", "":
	default:
		if st.ErrorMessage != "" {
			return fmt.Errorf("maps %s: %s: %s", path, st.Status, st.ErrorMessage)
		}
		return fmt.Errorf("maps %s: %s", path, st.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l latLng) String() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

type geocodeResult struct {
	FormattedAddress string `json:"formatted_address"`
	PlaceID          string `json:"place_id"`
	Geometry         struct {
		Location latLng `json:"location"`
	} `json:"geometry"`
	Types []string `json:"types"`
}

// GeocodedPlace is one match returned by Geocode.
type GeocodedPlace struct {
	Address string  `json:"formatted_address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	PlaceID string  `json:"place_id"`
}

// Geocode resolves a free-form address to coordinates.
func (c *MapsClient) Geocode(ctx context.Context, address string) ([]GeocodedPlace, error) {
	var resp struct {
		Results []geocodeResult `json:"results"`
	}
	if err := c.get(ctx, "/geocode/json", url.Values{"address": {address}}, &resp); err != nil {
		return nil, err
	}
	out := make([]GeocodedPlace, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, GeocodedPlace{
			Address: r.FormattedAddress,
			Lat:     r.Geometry.Location.Lat,
			Lng:     r.Geometry.Location.Lng,
			PlaceID: r.PlaceID,
		})
	}
	return out, nil
}

// ReverseGeocode returns the best human-readable address for a coordinate.
func (c *MapsClient) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	var resp struct {
		Results []geocodeResult `json:"results"`
	}
	q := url.Values{"latlng": {latLng{Lat: lat, Lng: lng}.String()}}
	if err := c.get(ctx, "/geocode/json", q, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("no address found for %v,%v", lat, lng)
	}
	return resp.Results[0].FormattedAddress, nil
}

// NearbyPlace is one result of a nearby search.
type NearbyPlace struct {
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
	PriceLevel       int      `json:"price_level,omitempty"`
	OpenNow          *bool    `json:"open_now,omitempty"`
	Types            []string `json:"types,omitempty"`
	PlaceID          string   `json:"place_id"`
}

// NearbySearch lists places of placeType within radius metres.
func (c *MapsClient) NearbySearch(ctx context.Context, lat, lng float64, placeType string, radius int) ([]NearbyPlace, error) {
	var resp struct {
		Results []struct {
			NearbyPlace
			OpeningHours *struct {
				OpenNow bool `json:"open_now"`
			} `json:"opening_hours"`
		} `json:"results"`
	}
	q := url.Values{
		"location": {latLng{Lat: lat, Lng: lng}.String()},
		"radius":   {strconv.Itoa(radius)},
	}
	if placeType != "" {
		q.Set("type", placeType)
	}
	if err := c.get(ctx, "/place/nearbysearch/json", q, &resp); err != nil {
		return nil, err
	}
	out := make([]NearbyPlace, 0, len(resp.Results))
	for _, r := range resp.Results {
		p := r.NearbyPlace
		if r.OpeningHours != nil {
			open := r.OpeningHours.OpenNow
			p.OpenNow = &open
		}
		out = append(out, p)
	}
	return out, nil
}

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// DistanceEntry is one origin/destination pair of a distance matrix.
type DistanceEntry struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Status      string `json:"status"`
	Distance    string `json:"distance,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Meters      int    `json:"distance_m,omitempty"`
	Seconds     int    `json:"duration_s,omitempty"`
}

// DistanceMatrix computes travel distance and time for every origin and
// destination pair.
func (c *MapsClient) DistanceMatrix(ctx context.Context, origins, destinations []string, mode string) ([]DistanceEntry, error) {
	var resp struct {
		OriginAddresses      []string `json:"origin_addresses"`
		DestinationAddresses []string `json:"destination_addresses"`
		Rows                 []struct {
			Elements []struct {
				Status   string    `json:"status"`
				Distance textValue `json:"distance"`
				Duration textValue `json:"duration"`
			} `json:"elements"`
		} `json:"rows"`
	}
	q := url.Values{
		"origins":      {strings.Join(origins, "|")},
		"destinations": {strings.Join(destinations, "|")},
	}
	if mode != "" {
		q.Set("mode", mode)
	}
	if err := c.get(ctx, "/distancematrix/json", q, &resp); err != nil {
		return nil, err
	}

	var out []DistanceEntry
	for i, row := range resp.Rows {
		for j, el := range row.Elements {
			out = append(out, DistanceEntry{
				Origin:      pick(resp.OriginAddresses, i, origins),
				Destination: pick(resp.DestinationAddresses, j, destinations),
				Status:      el.Status,
				Distance:    el.Distance.Text,
				Duration:    el.Duration.Text,
				Meters:      el.Distance.Value,
				Seconds:     el.Duration.Value,
			})
		}
	}
	return out, nil
}

// pick prefers the resolved address and falls back to the caller's input.
func pick(resolved []string, i int, input []string) string {
	if i < len(resolved) && resolved[i] != "" {
		return resolved[i]
	}
	if i < len(input) {
		return input[i]
	}
	return ""
}

// RouteLeg is one leg of an optimized route.
type RouteLeg struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Distance string `json:"distance"`
	Duration string `json:"duration"`
}

// Route is the optimized ordering of waypoints between origin and destination.
type Route struct {
	Summary          string     `json:"summary,omitempty"`
	WaypointOrder    []int      `json:"waypoint_order"`
	OrderedWaypoints []string   `json:"ordered_waypoints"`
	Legs             []RouteLeg `json:"legs"`
	TotalMeters      int        `json:"total_distance_m"`
	TotalSeconds     int        `json:"total_duration_s"`
}

// OptimizeRoute asks the Directions service to reorder waypoints for the
// shortest trip.
func (c *MapsClient) OptimizeRoute(ctx context.Context, origin, destination string, waypoints []string, mode string) (Route, error) {
	var resp struct {
		Routes []struct {
			Summary       string `json:"summary"`
			WaypointOrder []int  `json:"waypoint_order"`
			Legs          []struct {
				StartAddress string    `json:"start_address"`
				EndAddress   string    `json:"end_address"`
				Distance     textValue `json:"distance"`
				Duration     textValue `json:"duration"`
			} `json:"legs"`
		} `json:"routes"`
	}
	q := url.Values{
		"origin":      {origin},
		"destination": {destination},
	}
	if len(waypoints) > 0 {
		q.Set("waypoints", "optimize:true|"+strings.Join(waypoints, "|"))
	}
	if mode != "" {
		q.Set("mode", mode)
	}
	if err := c.get(ctx, "/directions/json", q, &resp); err != nil {
		return Route{}, err
	}
	if len(resp.Routes) == 0 {
		return Route{}, fmt.Errorf("no route found from %s to %s", origin, destination)
	}

	r := resp.Routes[0]
	route := Route{Summary: r.Summary, WaypointOrder: r.WaypointOrder}
	for _, idx := range r.WaypointOrder {
		if idx >= 0 && idx < len(waypoints) {
			route.OrderedWaypoints = append(route.OrderedWaypoints, waypoints[idx])
		}
	}
	for _, leg := range r.Legs {
		route.Legs = append(route.Legs, RouteLeg{
			Start:    leg.StartAddress,
			End:      leg.EndAddress,
			Distance: leg.Distance.Text,
			Duration: leg.Duration.Text,
		})
		route.TotalMeters += leg.Distance.Value
		route.TotalSeconds += leg.Duration.Value
	}
	return route, nil
}
