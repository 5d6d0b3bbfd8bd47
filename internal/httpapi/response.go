package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/crystaldolphin/waypoint/internal/agent"
	"github.com/crystaldolphin/waypoint/internal/preferences"
)

// Images arrive inline as base64, so the limit is well above a text query.
const maxRequestBodyBytes = 16 << 20

const (
	errorCodeInvalidRequest = "invalid_request"
	errorCodeUnsupported    = "unsupported"
	errorCodeRuntime        = "runtime_error"
)

const conversationHeader = "X-Conversation-Id"

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code := mapError(err)
	writeError(w, status, code, err.Error())
}

func writeInvalidRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, errorCodeInvalidRequest, message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{
		Error: apiError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain exactly one JSON object")
	}

	return nil
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrUnknownIntent):
		return http.StatusBadRequest, errorCodeUnsupported
	case errors.Is(err, agent.ErrEmptyQuery),
		errors.Is(err, agent.ErrInvalidImage),
		errors.Is(err, preferences.ErrEmpty):
		return http.StatusBadRequest, errorCodeInvalidRequest
	default:
		return http.StatusInternalServerError, errorCodeRuntime
	}
}
