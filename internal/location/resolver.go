// Package location turns the caller's coordinates into a readable address.
package location

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
)

// Unknown is reported when an address cannot be determined.
const Unknown = "unknown location"

// ReverseGeocoder is satisfied by *tools.MapsClient.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// Resolver resolves coordinates and remembers successful lookups.
type Resolver struct {
	geocoder ReverseGeocoder

	mu    sync.Mutex
	cache map[string]string
}

func NewResolver(geocoder ReverseGeocoder) *Resolver {
	return &Resolver{geocoder: geocoder, cache: make(map[string]string)}
}

// Resolve never fails: lookup errors are logged and reported as Unknown.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) string {
	if r == nil || r.geocoder == nil {
		return Unknown
	}
	key := cacheKey(lat, lon)

	r.mu.Lock()
	addr, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return addr
	}

	addr, err := r.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil || addr == "" {
		slog.Warn("Reverse geocode failed", "lat", lat, "lon", lon, "err", err)
		return Unknown
	}

	r.mu.Lock()
	r.cache[key] = addr
	r.mu.Unlock()
	return addr
}

// cacheKey rounds to ~11 m so a walking user keeps hitting the cache.
func cacheKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lon, 'f', 4, 64)
}
