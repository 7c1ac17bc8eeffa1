package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler_Check(t *testing.T) {
	h := NewHealthHandler()

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "http://test/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodHead, "http://test/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
