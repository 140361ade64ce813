package httpadapter

import (
	"net/http"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrIndexUnavailable),
		domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// mapFailureToHTTPStatus keeps degraded answers at 200: the body already
// explains the failure. Only caller mistakes and a missing index differ.
func mapFailureToHTTPStatus(kind domain.FailureKind) int {
	switch kind {
	case domain.FailureInvalidInput:
		return http.StatusBadRequest
	case domain.FailureIndexUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}
