package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/waypoint/internal/agent"
	"github.com/crystaldolphin/waypoint/internal/httpapi"
	"github.com/crystaldolphin/waypoint/internal/location"
	"github.com/crystaldolphin/waypoint/internal/preferences"
	"github.com/crystaldolphin/waypoint/internal/schema"
	"github.com/crystaldolphin/waypoint/internal/session"
	"github.com/crystaldolphin/waypoint/internal/stream"
	"github.com/crystaldolphin/waypoint/internal/tools"
)

// echoModel calls SearchForNearbyPlacesOfType once when the user asks for
// "nearby", then answers in text.
type echoModel struct{}

func (echoModel) DefaultModel() string { return "echo" }

func (echoModel) Chat(_ context.Context, msgs schema.Messages, _ []schema.ToolDefinition, _ schema.ChatOptions) (schema.LLMResponse, error) {
	last, _ := msgs.Last()
	for _, b := range last.Content {
		if r, ok := b.(schema.ToolResultBlock); ok {
			return textReply("Found " + r.Content), nil
		}
	}
	if strings.Contains(last.Text(), "nearby") {
		return schema.LLMResponse{
			StopReason: schema.StopToolUse,
			Content: []schema.ContentBlock{
				schema.ToolUseBlock{ID: "tu_1", Name: string(tools.ToolNearbyPlaces), Input: map[string]any{"type": "museum"}},
			},
		}, nil
	}
	return textReply("Hello " + last.Text()), nil
}

func textReply(text string) schema.LLMResponse {
	return schema.LLMResponse{StopReason: schema.StopEndTurn, Content: []schema.ContentBlock{schema.TextBlock{Text: text}}}
}

type fixedGeocoder string

func (g fixedGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return string(g), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg, err := tools.NewRegistryBuilder().
		WithTool(&tools.FuncTool{
			ToolName:        string(tools.ToolNearbyPlaces),
			ToolDescription: "nearby",
			Schema:          json.RawMessage(`{"type":"object","properties":{"type":{"type":"string"}}}`),
			Fn: func(context.Context, map[string]any) (string, error) {
				return "the Louvre", nil
			},
		}).
		Build()
	require.NoError(t, err)

	prefs := preferences.NewStore()
	locator := location.NewResolver(fixedGeocoder("Rue de Rivoli, Paris"))
	svc := agent.NewService(
		agent.NewLoop(echoModel{}, schema.NewAgentSettings("echo", 0, 0, 0)),
		reg,
		session.NewStore(),
		prefs,
		locator,
		session.DefaultTTL,
	)
	server := httptest.NewServer(httpapi.NewRouter(svc, prefs, locator))
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func shape(events []schema.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		switch {
		case ev.Delta != nil:
			out = append(out, string(ev.Delta.Type))
		case ev.Error != nil:
			out = append(out, "error:"+string(ev.Error.Type))
		default:
			out = append(out, string(ev.Type))
		}
	}
	return out
}

func TestQueryStreamsNDJSON(t *testing.T) {
	server := newTestServer(t)

	resp := post(t, server.URL+"/v1/query", map[string]any{
		"id": "c1", "query_type": "place", "query": "anything nearby?", "lat": 48.86, "lon": 2.33,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))
	assert.Equal(t, "c1", resp.Header.Get("X-Conversation-Id"))

	var events []schema.Event
	for ev, err := range stream.Decode(resp.Body) {
		require.NoError(t, err)
		events = append(events, ev)
	}
	assert.Equal(t, []string{"message", "tool_use", "tool_result", "text_delta"}, shape(events))
	assert.Equal(t, "Found the Louvre", events[3].Delta.Text)
}

func TestQueryNonStreaming(t *testing.T) {
	server := newTestServer(t)

	resp := post(t, server.URL+"/v1/query", map[string]any{
		"query_type": "trip", "query": "Paris to Lyon", "stream": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		ID     string            `json:"id"`
		Text   string            `json:"text"`
		State  string            `json:"state"`
		Events []json.RawMessage `json:"events"`
	}
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, body.ID, resp.Header.Get("X-Conversation-Id"))
	assert.Equal(t, "Hello Paris to Lyon", body.Text)
	assert.Equal(t, string(agent.StateDone), body.State)
	assert.Len(t, body.Events, 1)
}

func TestQueryTextMode(t *testing.T) {
	server := newTestServer(t)

	resp := post(t, server.URL+"/v1/query?format=text", map[string]any{
		"query_type": "restaurant", "query": "pizza",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hello pizza", string(data))
}

func TestUnknownIntent(t *testing.T) {
	server := newTestServer(t)
	want := "Invalid query type: museum. Supported types are 'restaurant', 'place', and 'trip'."

	resp := post(t, server.URL+"/v1/query", map[string]any{"query_type": "museum", "query": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr errorResponse
	decodeBody(t, resp, &apiErr)
	assert.Equal(t, "unsupported", apiErr.Error.Code)
	assert.Equal(t, want, apiErr.Error.Message)

	// The legacy path streams text, so the message is the body.
	resp = post(t, server.URL+"/query_assistant", map[string]any{"query_type": "museum", "query": "x"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}

func TestInvalidBodies(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/v1/query", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, server.URL+"/v1/query", map[string]any{"query_type": "place", "query": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, server.URL+"/v1/tourguide", map[string]any{"base_image": "%%%"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr errorResponse
	decodeBody(t, resp, &apiErr)
	assert.Equal(t, "invalid_request", apiErr.Error.Code)
}

func TestTourGuideStreams(t *testing.T) {
	server := newTestServer(t)

	resp := post(t, server.URL+"/v1/tourguide?format=text", map[string]any{
		"base_image": "data:image/jpeg;base64,/9j/4AAQ", "lat": 48.85, "lon": 2.34,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hello Tell me about what I'm looking at.", string(data))
}

func TestPreferences(t *testing.T) {
	server := newTestServer(t)

	resp := post(t, server.URL+"/v1/preferences", map[string]any{"preference": " vegetarian "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var added map[string]string
	decodeBody(t, resp, &added)
	assert.Equal(t, "Added preference: vegetarian", added["message"])

	post(t, server.URL+"/add_preference", map[string]any{"preference": "quiet"})

	resp = post(t, server.URL+"/v1/preferences", map[string]any{"preference": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got, err := http.Get(server.URL + "/v1/preferences")
	require.NoError(t, err)
	defer got.Body.Close()
	var list map[string][]string
	decodeBody(t, got, &list)
	assert.Equal(t, []string{"vegetarian", "quiet"}, list["preferences"])
}

func TestLocation(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/v1/location?lat=48.86&lon=2.33")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Location string `json:"location"`
		Resolved bool   `json:"resolved"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "Rue de Rivoli, Paris", body.Location)
	assert.True(t, body.Resolved)

	bad, err := http.Get(server.URL + "/v1/location?lat=north")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestHealthAndCORS(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/v1/query", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	pre, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer pre.Body.Close()
	assert.Equal(t, "*", pre.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketRuns(t *testing.T) {
	server := newTestServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntilDone := func() []map[string]any {
		var frames []map[string]any
		for {
			_, data, err := conn.ReadMessage()
			require.NoError(t, err)
			var frame map[string]any
			require.NoError(t, json.Unmarshal(data, &frame))
			frames = append(frames, frame)
			if frame["type"] == "done" || frame["error"] != nil {
				return frames
			}
		}
	}

	require.NoError(t, conn.WriteJSON(map[string]any{"id": "ws1", "query_type": "place", "query": "nearby art"}))
	frames := readUntilDone()
	require.Len(t, frames, 5)
	assert.Equal(t, "message", frames[0]["type"])
	assert.Equal(t, "ws1", frames[4]["id"])
	assert.Equal(t, string(agent.StateDone), frames[4]["state"])

	require.NoError(t, conn.WriteJSON(map[string]any{"query_type": "museum", "query": "x"}))
	frames = readUntilDone()
	require.Len(t, frames, 1)
	assert.Equal(t, "unsupported", frames[0]["error"].(map[string]any)["code"])

	// The connection is still usable after a rejected frame.
	require.NoError(t, conn.WriteJSON(map[string]any{"id": "ws1", "query_type": "place", "query": "thanks"}))
	frames = readUntilDone()
	assert.Equal(t, "done", frames[len(frames)-1]["type"])
}
