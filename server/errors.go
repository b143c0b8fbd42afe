package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// APIError is an error with the HTTP status it maps to.
type APIError struct {
	Message string
	Status  int
	Code    string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates an APIError.
func NewAPIError(message string, status int, code string) *APIError {
	return &APIError{Message: message, Status: status, Code: code}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// handleError writes err as a JSON error body. APIErrors keep their
// message and status; anything else is logged and hidden behind a 500.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.Status, errorBody{Error: apiErr.Message, Code: apiErr.Code})
		return
	}
	s.logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "An unexpected error occurred"})
}
