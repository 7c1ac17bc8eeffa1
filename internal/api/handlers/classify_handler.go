package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/formbricks/zeroshot/internal/api/response"
	"github.com/formbricks/zeroshot/internal/classifier"
	"github.com/formbricks/zeroshot/internal/models"
)

// uploadField is the multipart form field carrying the image.
const uploadField = "file"

// multipartMemory is how much of a multipart body is kept in memory before spilling to disk.
const multipartMemory = 32 << 20

// ClassificationService defines the interface for image classification.
type ClassificationService interface {
	Classify(ctx context.Context, r io.Reader) ([]classifier.Prediction, error)
}

// ClassifyHandler handles HTTP requests for image classification.
type ClassifyHandler struct {
	service ClassificationService
}

// NewClassifyHandler creates a new classify handler.
func NewClassifyHandler(service ClassificationService) *ClassifyHandler {
	return &ClassifyHandler{service: service}
}

// Predict handles POST /predict.
func (h *ClassifyHandler) Predict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		slog.WarnContext(r.Context(), "Invalid multipart body", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondBadRequest(w, detailNoImage)

		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		response.RespondBadRequest(w, detailNoImage)
		return
	}

	defer closeUpload(r, file)

	slog.DebugContext(r.Context(), "Image received", "filename", header.Filename, "size", header.Size)

	predictions, err := h.service.Classify(r.Context(), file)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, models.PredictResponse{Predictions: predictions})
}

func closeUpload(r *http.Request, file multipart.File) {
	if err := file.Close(); err != nil {
		slog.WarnContext(r.Context(), "Failed to close upload", "error", err)
	}

	if r.MultipartForm != nil {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.WarnContext(r.Context(), "Failed to remove multipart temp files", "error", err)
		}
	}
}
