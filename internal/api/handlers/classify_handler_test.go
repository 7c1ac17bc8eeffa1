package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/zeroshot/internal/api/response"
	"github.com/formbricks/zeroshot/internal/classifier"
	"github.com/formbricks/zeroshot/internal/huberrors"
	"github.com/formbricks/zeroshot/internal/models"
)

type mockClassificationService struct {
	classifyFunc func(ctx context.Context, r io.Reader) ([]classifier.Prediction, error)
}

func (m *mockClassificationService) Classify(ctx context.Context, r io.Reader) ([]classifier.Prediction, error) {
	if m.classifyFunc != nil {
		return m.classifyFunc(ctx, r)
	}

	return nil, nil
}

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "upload.png")
	require.NoError(t, err)

	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "http://test/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) response.ProblemDetails {
	t.Helper()

	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem response.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))

	return problem
}

func TestClassifyHandler_Predict(t *testing.T) {
	t.Run("success returns ranked predictions", func(t *testing.T) {
		mock := &mockClassificationService{
			classifyFunc: func(_ context.Context, r io.Reader) ([]classifier.Prediction, error) {
				data, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, []byte("fake-image"), data)

				return []classifier.Prediction{
					{Label: "cat", Score: 0.9, Rank: 1},
					{Label: "dog", Score: 0.1, Rank: 2},
				}, nil
			},
		}
		rec := httptest.NewRecorder()

		NewClassifyHandler(mock).Predict(rec, multipartRequest(t, "file", []byte("fake-image")))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp models.PredictResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Predictions, 2)
		assert.Equal(t, "cat", resp.Predictions[0].Label)
		assert.Equal(t, 1, resp.Predictions[0].Rank)
		assert.InDelta(t, 0.9, resp.Predictions[0].Score, 1e-9)
		assert.Equal(t, "dog", resp.Predictions[1].Label)
		assert.Equal(t, 2, resp.Predictions[1].Rank)
	})

	t.Run("missing file field returns 400", func(t *testing.T) {
		called := false
		mock := &mockClassificationService{
			classifyFunc: func(context.Context, io.Reader) ([]classifier.Prediction, error) {
				called = true
				return nil, nil
			},
		}
		rec := httptest.NewRecorder()

		NewClassifyHandler(mock).Predict(rec, multipartRequest(t, "image", []byte("fake-image")))

		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No image file provided", decodeProblem(t, rec).Detail)
	})

	t.Run("non multipart body returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "http://test/predict", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()

		NewClassifyHandler(&mockClassificationService{}).Predict(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No image file provided", decodeProblem(t, rec).Detail)
	})

	errorCases := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "undecodable image",
			err:        huberrors.NewImageDecodeError("unsupported or unrecognized image format", nil),
			wantStatus: http.StatusBadRequest,
			wantDetail: "unsupported or unrecognized image format",
		},
		{
			name:       "empty vocabulary",
			err:        huberrors.ErrEmptyVocabulary,
			wantStatus: http.StatusBadRequest,
			wantDetail: "Labels list is empty",
		},
		{
			name:       "labels never written",
			err:        huberrors.NewPersistenceUnavailableError("labels file not found", nil),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Labels file not found",
		},
		{
			name:       "unreadable label store",
			err:        huberrors.NewPersistenceUnavailableError("labels file is corrupt", errors.New("unexpected EOF")),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Label store unavailable",
		},
		{
			name:       "provider failure",
			err:        huberrors.NewEmbeddingProviderError("embed image", errors.New("connection refused")),
			wantStatus: http.StatusBadGateway,
			wantDetail: "The embedding provider failed to process the request",
		},
		{
			name:       "unexpected error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "An unexpected error occurred",
		},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockClassificationService{
				classifyFunc: func(context.Context, io.Reader) ([]classifier.Prediction, error) {
					return nil, tc.err
				},
			}
			rec := httptest.NewRecorder()

			NewClassifyHandler(mock).Predict(rec, multipartRequest(t, "file", []byte("fake-image")))

			assert.Equal(t, tc.wantStatus, rec.Code)
			problem := decodeProblem(t, rec)
			assert.Equal(t, tc.wantStatus, problem.Status)
			assert.Equal(t, tc.wantDetail, problem.Detail)
		})
	}
}
