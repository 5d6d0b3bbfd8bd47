// Package httpapi exposes the agent service over HTTP and websockets.
package httpapi

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/crystaldolphin/waypoint/internal/agent"
	"github.com/crystaldolphin/waypoint/internal/location"
	"github.com/crystaldolphin/waypoint/internal/preferences"
)

type handlers struct {
	service *agent.Service
	prefs   *preferences.Store
	locator *location.Resolver
}

// NewRouter returns the API handler with CORS open to every origin.
func NewRouter(service *agent.Service, prefs *preferences.Store, locator *location.Resolver) http.Handler {
	h := &handlers{service: service, prefs: prefs, locator: locator}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/query", h.handleQuery)
	mux.HandleFunc("POST /v1/tourguide", h.handleTourGuide)
	mux.HandleFunc("POST /v1/preferences", h.handleAddPreference)
	mux.HandleFunc("GET /v1/preferences", h.handleListPreferences)
	mux.HandleFunc("GET /v1/location", h.handleLocation)
	mux.HandleFunc("GET /v1/ws", h.handleWebSocket)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	// Unversioned paths kept for existing mobile clients; they default to
	// plain-text streaming.
	mux.HandleFunc("POST /query_assistant", legacyText(h.handleQuery))
	mux.HandleFunc("POST /tourguide", legacyText(h.handleTourGuide))
	mux.HandleFunc("POST /add_preference", h.handleAddPreference)
	mux.HandleFunc("GET /preferences", h.handleListPreferences)

	return cors.AllowAll().Handler(mux)
}

func legacyText(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("format") == "" {
			q.Set("format", formatText)
			r.URL.RawQuery = q.Encode()
		}
		next(w, r)
	}
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
