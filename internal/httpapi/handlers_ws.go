package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/crystaldolphin/waypoint/internal/agent"
	"github.com/crystaldolphin/waypoint/internal/stream"
)

const wsMaxMessageBytes = maxRequestBodyBytes

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// CORS is open on every other route too.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsRequest is one inbound frame. query_type "tourguide" selects the image
// flow; every other value is a text query.
type wsRequest struct {
	queryRequest
	BaseImage   string `json:"base_image"`
	MaskedImage string `json:"masked_image"`
	Location    string `json:"location"`
}

type wsDone struct {
	Type  string      `json:"type"`
	ID    string      `json:"id"`
	State agent.State `json:"state"`
}

// handleWebSocket answers each inbound frame with that run's events followed
// by a done frame. One run at a time per connection.
func (h *handlers) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageBytes)

	sink := stream.NewWebSocketSink(conn)
	ctx := r.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket read ended", "err", err)
			}
			return
		}

		var request wsRequest
		if err := json.Unmarshal(data, &request); err != nil {
			if sendError(sink, errorCodeInvalidRequest, "invalid JSON frame: "+err.Error()) != nil {
				return
			}
			continue
		}

		run, err := h.startWS(ctx, request)
		if err != nil {
			_, code := mapError(err)
			if sendError(sink, code, err.Error()) != nil {
				return
			}
			continue
		}

		if err := stream.Forward(run.Events(), sink); err != nil {
			return
		}
		done, _ := json.Marshal(wsDone{Type: "done", ID: run.ConversationID, State: run.Transcript.State})
		if err := sink.WriteText(done); err != nil {
			return
		}
	}
}

func (h *handlers) startWS(ctx context.Context, request wsRequest) (*agent.Run, error) {
	if request.QueryType == string(agent.IntentTourGuide) {
		return h.service.TourGuide(ctx, agent.TourGuideRequest{
			ConversationID: request.ID,
			BaseImage:      request.BaseImage,
			MaskedImage:    request.MaskedImage,
			Location:       request.Location,
			Lat:            request.Lat,
			Lon:            request.Lon,
		})
	}
	return h.service.Query(ctx, agent.QueryRequest{
		ConversationID: request.ID,
		Intent:         request.QueryType,
		Query:          request.Query,
		Lat:            request.Lat,
		Lon:            request.Lon,
	})
}

// sendError writes the HTTP error envelope as a text frame.
func sendError(sink *stream.WebSocketSink, code, message string) error {
	data, err := json.Marshal(apiErrorResponse{Error: apiError{Code: code, Message: message}})
	if err != nil {
		return err
	}
	return sink.WriteText(data)
}
