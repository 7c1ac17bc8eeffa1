package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/formbricks/zeroshot/internal/api/response"
	"github.com/formbricks/zeroshot/internal/huberrors"
)

// Client-facing details for each error kind.
const (
	detailNoImage           = "No image file provided"
	detailLabelsMissing     = "Labels file not found"
	detailEmptyVocabulary   = "Labels list is empty"
	detailInvalidLabels     = "Invalid label format. Must be a list of strings."
	detailProviderFailure   = "The embedding provider failed to process the request"
	detailUnexpectedFailure = "An unexpected error occurred"
)

// respondServiceError maps a service error to its RFC 7807 response and logs
// server-side failures with the request context.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, huberrors.ErrImageDecode):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, huberrors.ErrEmptyVocabulary):
		response.RespondBadRequest(w, detailEmptyVocabulary)
	case errors.Is(err, huberrors.ErrInvalidLabelFormat):
		response.RespondBadRequest(w, detailInvalidLabels)
	case errors.Is(err, huberrors.ErrValidation):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, huberrors.ErrEmbeddingProvider):
		slog.ErrorContext(r.Context(), "Embedding provider failure", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondBadGateway(w, detailProviderFailure)
	case errors.Is(err, huberrors.ErrPersistenceUnavailable):
		slog.ErrorContext(r.Context(), "Label store unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, persistenceDetail(err))
	default:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondInternalServerError(w, detailUnexpectedFailure)
	}
}

// persistenceDetail keeps the "not found" wording for a vocabulary that was
// never written and hides the cause otherwise.
func persistenceDetail(err error) string {
	var pe *huberrors.PersistenceUnavailableError
	if errors.As(err, &pe) && pe.Err == nil {
		return detailLabelsMissing
	}

	return "Label store unavailable"
}
