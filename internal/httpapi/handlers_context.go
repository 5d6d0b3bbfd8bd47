package httpapi

import (
	"net/http"
	"strconv"

	"github.com/crystaldolphin/waypoint/internal/location"
)

type preferenceRequest struct {
	Preference string `json:"preference"`
}

func (h *handlers) handleAddPreference(w http.ResponseWriter, r *http.Request) {
	var request preferenceRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}

	added, err := h.prefs.Add(request.Preference)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Added preference: " + added})
}

func (h *handlers) handleListPreferences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"preferences": h.prefs.List()})
}

type locationResponse struct {
	Location string  `json:"location"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Resolved bool    `json:"resolved"`
}

func (h *handlers) handleLocation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		writeInvalidRequest(w, "lat must be a number between -90 and 90")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		writeInvalidRequest(w, "lon must be a number between -180 and 180")
		return
	}

	addr := h.locator.Resolve(r.Context(), lat, lon)
	writeJSON(w, http.StatusOK, locationResponse{
		Location: addr,
		Lat:      lat,
		Lon:      lon,
		Resolved: addr != location.Unknown,
	})
}
