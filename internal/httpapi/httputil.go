package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/scripts"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// loadScript resolves the {id} path parameter through the catalog. It writes
// the error response itself and reports whether the handler may continue.
func (s *Server) loadScript(w http.ResponseWriter, r *http.Request) (scripts.Script, bool) {
	id, ok := parseScriptID(w, r)
	if !ok {
		return scripts.Script{}, false
	}
	script, err := s.catalog.Script(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return scripts.Script{}, false
	}
	return script, true
}

// parseScriptID extracts and validates the {id} path parameter.
func parseScriptID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid script id: "+raw)
		return 0, false
	}
	return id, true
}

// internalError maps known domain errors and logs the rest.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scripts.ErrScriptNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, model.ErrInvalidInitial), errors.Is(err, model.ErrNoResolver):
		writeError(w, http.StatusBadRequest, "INVALID_INITIAL", err.Error())
	case errors.Is(err, r.Context().Err()) && r.Context().Err() != nil:
		writeError(w, http.StatusServiceUnavailable, "CANCELLED", "request cancelled")
	default:
		s.logger.ErrorContext(r.Context(), "request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
