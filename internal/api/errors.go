package api

import (
	"errors"
	"net/http"

	"reserve-swap/internal/reserve"
	"reserve-swap/internal/storage"
)

var errBadPayload = errors.New("invalid payload")

// statusOf maps an operation error to its HTTP status and wire kind.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errBadPayload),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrDuplicateKey):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, storage.ErrTypeMismatch):
		return http.StatusUnprocessableEntity, "account_mismatch"
	}

	kind := reserve.Kind(err)
	switch kind {
	case "invalid_request":
		return http.StatusBadRequest, kind
	case "authority_mismatch":
		return http.StatusForbidden, kind
	case "internal":
		return http.StatusInternalServerError, kind
	default:
		return http.StatusUnprocessableEntity, kind
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: msg})
}
