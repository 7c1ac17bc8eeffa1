package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/zeroshot/internal/observability"
)

type requestRecord struct {
	method, route, statusClass string
}

type fakeMetrics struct {
	observability.Metrics

	mu       sync.Mutex
	requests []requestRecord
}

func (f *fakeMetrics) RecordRequest(_ context.Context, method, route, statusClass string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, requestRecord{method, route, statusClass})
}

func TestMetrics(t *testing.T) {
	metrics := &fakeMetrics{}
	handler := Metrics(metrics, "/predict", "/labels")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/predict" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/predict", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/labels", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path", nil))

	require.Len(t, metrics.requests, 3)
	assert.Equal(t, requestRecord{http.MethodPost, "/predict", "5xx"}, metrics.requests[0])
	assert.Equal(t, requestRecord{http.MethodGet, "/labels", "2xx"}, metrics.requests[1])
	assert.Equal(t, requestRecord{http.MethodGet, unmatchedRoute, "2xx"}, metrics.requests[2])
}

func TestMetrics_Nil(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	Metrics(nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStatusToClass(t *testing.T) {
	tests := map[int]string{
		101: "1xx",
		200: "2xx",
		304: "3xx",
		404: "4xx",
		413: "4xx",
		502: "5xx",
		0:   "unknown",
	}

	for status, want := range tests {
		assert.Equal(t, want, statusToClass(status), "status %d", status)
	}
}
