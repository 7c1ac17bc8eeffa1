package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/formbricks/zeroshot/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client supplied IDs before they reach logs.
const maxRequestIDLength = 128

// RequestID runs first in the chain: ensures every request has an X-Request-ID in context
// and in the response header. If the client sends X-Request-ID, it is propagated; otherwise one is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.Must(uuid.NewV7()).String()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observability.ContextWithRequestID(r.Context(), id)))
	})
}
