package httpadapter

import (
	"net/http"

	"github.com/kirillkom/doc-annotator/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case domain.IsKind(err, domain.ErrFileNotFound), domain.IsKind(err, domain.ErrAnnotationNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrNoTextLayer),
		domain.IsKind(err, domain.ErrNoText),
		domain.IsKind(err, domain.ErrCorruptDocument):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrToolUnavailable):
		return http.StatusNotImplemented
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrModelNotLoaded):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Sentinel  string `json:"sentinel,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	body := errorResponse{
		Error:     err.Error(),
		RequestID: requestIDFromContext(r.Context()),
	}
	// Only pipeline failures carry a user-facing sentinel.
	if status != http.StatusBadRequest && status != http.StatusInternalServerError {
		body.Sentinel = domain.Sentinel(err)
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: requestIDFromContext(r.Context()),
	})
}
