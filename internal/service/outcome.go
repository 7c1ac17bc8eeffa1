package service

import (
	"context"
	"errors"

	"github.com/formbricks/zeroshot/internal/huberrors"
	"github.com/formbricks/zeroshot/internal/observability"
)

// outcomeFor maps an error to a bounded metric outcome.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.OutcomeCanceled
	case errors.Is(err, huberrors.ErrImageDecode):
		return observability.OutcomeImageDecode
	case errors.Is(err, huberrors.ErrEmptyVocabulary):
		return observability.OutcomeEmptyVocabulary
	case errors.Is(err, huberrors.ErrInvalidLabelFormat):
		return observability.OutcomeInvalidLabelFormat
	case errors.Is(err, huberrors.ErrEmbeddingProvider):
		return observability.OutcomeProviderError
	case errors.Is(err, huberrors.ErrPersistenceUnavailable):
		return observability.OutcomePersistenceUnavailable
	default:
		return observability.OutcomeOther
	}
}
