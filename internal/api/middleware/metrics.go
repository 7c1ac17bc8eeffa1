package middleware

import (
	"net/http"
	"time"

	"github.com/formbricks/zeroshot/internal/observability"
)

// unmatchedRoute labels requests for paths outside the registered routes.
const unmatchedRoute = "unmatched"

// Metrics returns middleware that records HTTP request count and duration.
// routes lists the served paths; any other path is recorded as "unmatched" to bound cardinality.
// When metrics is nil, recording is skipped. Put Metrics outermost so duration is full request time.
func Metrics(metrics observability.Metrics, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		known[route] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if _, ok := known[route]; !ok {
				route = unmatchedRoute
			}

			metrics.RecordRequest(r.Context(), r.Method, route, statusToClass(rw.statusCode), time.Since(start))
		})
	}
}

// responseWriter records the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter

	statusCode  int
	wroteHeader bool
	written     int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}

	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	rw.wroteHeader = true

	n, err := rw.ResponseWriter.Write(p)
	rw.written += int64(n)

	return n, err //nolint:wrapcheck // http.ResponseWriter contract
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// statusToClass maps HTTP status code to 1xx, 2xx, 3xx, 4xx, 5xx.
func statusToClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status >= 100:
		return "1xx"
	default:
		return "unknown"
	}
}
