package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/formbricks/zeroshot/internal/api/response"
)

// mayHaveBody is true for methods that typically send a request body (we buffer only then to send 413).
func mayHaveBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// RequestBodyTooLargeRecorder records when a request is rejected for exceeding the body limit.
// Pass nil when metrics are disabled.
type RequestBodyTooLargeRecorder interface {
	RecordRequestBodyTooLarge(ctx context.Context)
}

// MaxBody returns a middleware that limits request body size to maxBytes.
// When a handler reads past the limit, its response is discarded and replaced by
// 413 Request Entity Too Large. Use 0 or negative to disable.
func MaxBody(maxBytes int64, recorder RequestBodyTooLargeRecorder) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := &maxBodyReader{ReadCloser: http.MaxBytesReader(w, r.Body, maxBytes)}
			r.Body = body

			// GET/DELETE stream directly to avoid memory and TTFB cost.
			if !mayHaveBody(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			buf := &responseBuffer{ResponseWriter: w}
			next.ServeHTTP(buf, r)

			if body.exceeded.Load() {
				if recorder != nil {
					recorder.RecordRequestBodyTooLarge(r.Context())
				}

				response.RespondPayloadTooLarge(buf.ResponseWriter, "request body exceeds maximum allowed size")

				return
			}

			buf.flush()
		})
	}
}

// maxBodyReader notes when the limit was hit. Errors pass through unchanged so
// readers comparing against io.EOF keep working.
type maxBodyReader struct {
	io.ReadCloser

	exceeded atomic.Bool
}

func (r *maxBodyReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		r.exceeded.Store(true)
	}

	return n, err //nolint:wrapcheck // io.Reader contract
}

// responseBuffer captures status and body so we can optionally discard and send 413 instead.
type responseBuffer struct {
	http.ResponseWriter

	status int
	buf    bytes.Buffer
}

func (b *responseBuffer) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	return b.buf.Write(p) //nolint:wrapcheck // bytes.Buffer never fails
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (b *responseBuffer) Unwrap() http.ResponseWriter {
	return b.ResponseWriter
}

func (b *responseBuffer) flush() {
	if b.status != 0 {
		b.ResponseWriter.WriteHeader(b.status)
	}

	_, _ = b.buf.WriteTo(b.ResponseWriter)
}
