package server

import (
	"encoding/json"
	"net/http"

	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/logger"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already flushed; the most we can do is log.
		logger.Error("failed to encode response: " + err.Error())
	}
}

// respondError maps err's kind onto an HTTP status and writes a JSON error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.Kind(err)
	status := statusFromKind(kind)

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).With().Err(err).Logger().Error("request failed")
	}

	respondJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

// statusFromKind chooses the HTTP status for an error kind. Unknown kinds
// are treated as internal failures.
func statusFromKind(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
