package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/formbricks/zeroshot/internal/api/response"
	"github.com/formbricks/zeroshot/internal/api/validation"
	"github.com/formbricks/zeroshot/internal/huberrors"
	"github.com/formbricks/zeroshot/internal/models"
	"github.com/formbricks/zeroshot/internal/repository"
)

var errMalformedBody = errors.New("request body is not valid JSON")

// LabelsService defines the interface for label vocabulary operations.
type LabelsService interface {
	ListLabels(ctx context.Context) ([]string, error)
	MergeLabels(ctx context.Context, labels []string) ([]string, error)
}

// LabelsHandler handles HTTP requests for the label vocabulary.
type LabelsHandler struct {
	service LabelsService
}

// NewLabelsHandler creates a new labels handler.
func NewLabelsHandler(service LabelsService) *LabelsHandler {
	return &LabelsHandler{service: service}
}

// Update handles POST /update_labels. The whole body is read before anything
// is merged, so an oversized or malformed request never mutates the vocabulary.
func (h *LabelsHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.RespondPayloadTooLarge(w, "request body exceeds maximum allowed size")
			return
		}

		slog.WarnContext(r.Context(), "Failed to read request body", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	req, err := decodeUpdateLabelsRequest(body)
	if err != nil {
		if !errors.Is(err, huberrors.ErrInvalidLabelFormat) {
			slog.WarnContext(r.Context(), "Invalid request body", "method", r.Method, "path", r.URL.Path, "error", err)
			response.RespondBadRequest(w, "Invalid request body")

			return
		}

		respondServiceError(w, r, err)

		return
	}

	labels, err := repository.ParseLabels(req.Labels)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if err := validation.ValidateStruct(&models.LabelList{Labels: labels}); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	merged, err := h.service.MergeLabels(r.Context(), labels)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, models.UpdateLabelsResponse{
		Message: "Labels updated successfully",
		Labels:  merged,
	})
}

// decodeUpdateLabelsRequest parses a full request body. An empty body is an
// empty update; a well-formed JSON value that is not an object is a label
// payload of the wrong shape.
func decodeUpdateLabelsRequest(body []byte) (models.UpdateLabelsRequest, error) {
	var req models.UpdateLabelsRequest

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return req, nil
	}

	if !json.Valid(body) {
		return req, errMalformedBody
	}

	if body[0] != '{' {
		return req, huberrors.NewInvalidLabelFormatError(-1, "request body must be an object with a labels list")
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("%w: %w", errMalformedBody, err)
	}

	return req, nil
}

// List handles GET /labels.
func (h *LabelsHandler) List(w http.ResponseWriter, r *http.Request) {
	labels, err := h.service.ListLabels(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, models.ListLabelsResponse{Labels: labels})
}
