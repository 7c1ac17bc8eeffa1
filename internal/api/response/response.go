// Package response writes JSON and RFC 7807 problem responses.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorDetail represents a single error detail in RFC 7807 Problem Details
type ErrorDetail struct {
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// ProblemDetails represents an RFC 7807 Problem Details error response
type ProblemDetails struct {
	Type     string        `json:"type,omitempty"`
	Title    string        `json:"title"`
	Status   int           `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Instance string        `json:"instance,omitempty"`
	Errors   []ErrorDetail `json:"errors,omitempty"`
}

// RespondProblem writes problem as application/problem+json with its status.
func RespondProblem(w http.ResponseWriter, problem ProblemDetails) {
	if problem.Type == "" {
		problem.Type = "about:blank"
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// RespondError writes an RFC 7807 Problem Details error response
func RespondError(w http.ResponseWriter, statusCode int, title string, detail string) {
	RespondProblem(w, ProblemDetails{Title: title, Status: statusCode, Detail: detail})
}

// RespondBadRequest writes a 400 Bad Request error response
func RespondBadRequest(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusBadRequest, "Bad Request", detail)
}

// RespondInternalServerError writes a 500 Internal Server Error response
func RespondInternalServerError(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// RespondBadGateway writes a 502 Bad Gateway error response
func RespondBadGateway(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusBadGateway, "Bad Gateway", detail)
}

// RespondPayloadTooLarge writes a 413 Request Entity Too Large error response
func RespondPayloadTooLarge(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", detail)
}

// RespondJSON writes a JSON response directly without wrapping
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
