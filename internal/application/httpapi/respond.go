package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ersonp/onto-core/internal/application/handlers"
	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
)

type errorResponse struct {
	Error string `json:"error"`
}

type conflictResponse struct {
	Error  string                  `json:"error"`
	Report entities.ConflictReport `json:"report"`
}

// writeJSON sends v with the given status. The header is already out when
// encoding fails, so the error can only be logged.
func writeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorContext(r.Context(), "writing response", "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

// statusFor maps an error to its HTTP status. Self-review matches both
// validation and invalid transition and is reported as a validation error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidTransition), errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrConcurrencyTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, handlers.ErrIndexDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	var conflict *errs.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, r, logger, status, conflictResponse{Error: err.Error(), Report: conflict.Report})
		return
	}
	writeJSON(w, r, logger, status, errorResponse{Error: err.Error()})
}

// decodeJSON decodes the request body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errs.Validation("decoding request body: %w", err)
	}
	return nil
}
