package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/crystaldolphin/waypoint/internal/agent"
	"github.com/crystaldolphin/waypoint/internal/schema"
	"github.com/crystaldolphin/waypoint/internal/stream"
)

const formatText = "text"

type queryRequest struct {
	ID        string  `json:"id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	QueryType string  `json:"query_type"`
	Query     string  `json:"query"`
	Stream    *bool   `json:"stream"`
}

type tourGuideRequest struct {
	ID          string  `json:"id"`
	BaseImage   string  `json:"base_image"`
	MaskedImage string  `json:"masked_image"`
	Location    string  `json:"location"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Stream      *bool   `json:"stream"`
}

type runResponse struct {
	ID     string         `json:"id"`
	Text   string         `json:"text"`
	Events []schema.Event `json:"events"`
	State  agent.State    `json:"state"`
}

func streaming(flag *bool) bool { return flag == nil || *flag }

func (h *handlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	var request queryRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}
	textMode := r.URL.Query().Get("format") == formatText

	run, err := h.service.Query(r.Context(), agent.QueryRequest{
		ConversationID: request.ID,
		Intent:         request.QueryType,
		Query:          request.Query,
		Lat:            request.Lat,
		Lon:            request.Lon,
	})
	if err != nil {
		if textMode && errors.Is(err, agent.ErrUnknownIntent) {
			// Text clients only read the body, so the message is the answer.
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, err.Error())
			return
		}
		writeMappedError(w, err)
		return
	}

	h.serveRun(w, r, run, streaming(request.Stream), textMode)
}

func (h *handlers) handleTourGuide(w http.ResponseWriter, r *http.Request) {
	var request tourGuideRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}

	run, err := h.service.TourGuide(r.Context(), agent.TourGuideRequest{
		ConversationID: request.ID,
		BaseImage:      request.BaseImage,
		MaskedImage:    request.MaskedImage,
		Location:       request.Location,
		Lat:            request.Lat,
		Lon:            request.Lon,
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}

	h.serveRun(w, r, run, streaming(request.Stream), r.URL.Query().Get("format") == formatText)
}

// serveRun drains run into the response in the requested mode. Streaming
// sinks stop at the first failed write, which ends the run early.
func (h *handlers) serveRun(w http.ResponseWriter, r *http.Request, run *agent.Run, streamed, textMode bool) {
	w.Header().Set(conversationHeader, run.ConversationID)

	if !streamed {
		var collected stream.Collector
		_ = stream.Forward(run.Events(), &collected)
		if textMode {
			writeJSON(w, http.StatusOK, collected.Text())
			return
		}
		writeJSON(w, http.StatusOK, runResponse{
			ID:     run.ConversationID,
			Text:   collected.Text(),
			Events: collected.Events,
			State:  run.Transcript.State,
		})
		return
	}

	var sink stream.Sink
	if textMode {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		sink = stream.NewTextSink(w)
	} else {
		w.Header().Set("Content-Type", "application/x-ndjson")
		sink = stream.NewNDJSONSink(w)
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := stream.Forward(run.Events(), stream.WithContext(r.Context(), sink)); err != nil {
		slog.Debug("Stream ended early", "conversation", run.ConversationID, "err", err)
	}
}
