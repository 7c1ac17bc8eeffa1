package embeddings

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	normalize "github.com/formbricks/zeroshot/pkg/embeddings"
)

var (
	// ErrNoEmbeddingInResponse is returned when the server response carries no embedding data.
	ErrNoEmbeddingInResponse = errors.New("embeddings: no embedding in response")
	// ErrCountMismatch is returned when the server returns a different number of embeddings than texts sent.
	ErrCountMismatch = errors.New("embeddings: embedding count mismatch")
	// ErrDimensionMismatch is returned when an embedding length differs from the descriptor's embed_dim.
	ErrDimensionMismatch = errors.New("embeddings: embedding dimension mismatch")
	// ErrInvalidLogitScale is returned when the server reports a non-finite or non-positive logit scale.
	ErrInvalidLogitScale = errors.New("embeddings: invalid logit scale")
)

// RemoteOptions configures the RemoteProvider.
type RemoteOptions struct {
	// BaseURL of the inference server, without trailing slash.
	BaseURL string
	// ModelName is the name the model is registered under.
	ModelName string
	// CheckpointPath is forwarded to the server when registering the model.
	CheckpointPath string
	// Timeout per HTTP call; 0 disables it.
	Timeout time.Duration
}

// RemoteProvider computes embeddings on an inference server that hosts the
// model weights. Images are preprocessed locally from the descriptor.
type RemoteProvider struct {
	baseURL    string
	model      string
	checkpoint string
	descriptor *Descriptor
	httpClient *retryablehttp.Client
}

var _ Provider = (*RemoteProvider)(nil)

// NewRemoteProvider creates a provider for the given descriptor. Call Register
// once before serving so the server loads the checkpoint.
func NewRemoteProvider(opts RemoteOptions, descriptor *Descriptor) *RemoteProvider {
	client := retryablehttp.NewClient()
	// Provider failures are surfaced to the caller as-is.
	client.RetryMax = 0
	client.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, nil
	}
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = nil

	return &RemoteProvider{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		model:      opts.ModelName,
		checkpoint: opts.CheckpointPath,
		descriptor: descriptor,
		httpClient: client,
	}
}

type registerRequest struct {
	Name       string          `json:"name"`
	Checkpoint string          `json:"checkpoint"`
	ModelCfg   json.RawMessage `json:"model_cfg"`
}

type imageRequest struct {
	Model  string `json:"model"`
	Shape  [3]int `json:"shape"`
	DType  string `json:"dtype"`
	Pixels string `json:"pixels"`
}

type imageResponse struct {
	Embedding  []float32 `json:"embedding"`
	LogitScale float64   `json:"logit_scale"`
}

type textRequest struct {
	Model         string   `json:"model"`
	Texts         []string `json:"texts"`
	ContextLength int      `json:"context_length"`
}

type textResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	LogitScale float64     `json:"logit_scale"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Register loads the checkpoint under the configured model name on the server.
func (p *RemoteProvider) Register(ctx context.Context) error {
	req := registerRequest{
		Name:       p.model,
		Checkpoint: p.checkpoint,
		ModelCfg:   p.descriptor.ModelConfig,
	}

	if err := p.post(ctx, "/v1/models", req, nil); err != nil {
		return fmt.Errorf("register model %s: %w", p.model, err)
	}

	slog.InfoContext(ctx, "embedding model registered",
		"model", p.model,
		"checkpoint", p.checkpoint,
		"embed_dim", p.descriptor.EmbedDim,
	)

	return nil
}

// EmbedImage preprocesses img and returns its normalized embedding.
func (p *RemoteProvider) EmbedImage(ctx context.Context, img image.Image) (ImageEmbedding, error) {
	tensor, err := p.descriptor.Preprocess.Preprocess(img)
	if err != nil {
		return ImageEmbedding{}, fmt.Errorf("preprocess image: %w", err)
	}

	var resp imageResponse
	if err := p.post(ctx, "/v1/embeddings/image", imageRequest{
		Model:  p.model,
		Shape:  tensor.Shape,
		DType:  "float32",
		Pixels: encodeFloat32(tensor.Data),
	}, &resp); err != nil {
		return ImageEmbedding{}, err
	}

	if len(resp.Embedding) == 0 {
		return ImageEmbedding{}, ErrNoEmbeddingInResponse
	}

	if err := p.checkVector(resp.Embedding); err != nil {
		return ImageEmbedding{}, err
	}

	if err := checkLogitScale(resp.LogitScale); err != nil {
		return ImageEmbedding{}, err
	}

	normalize.NormalizeL2(resp.Embedding)

	return ImageEmbedding{Vector: resp.Embedding, LogitScale: resp.LogitScale}, nil
}

// EmbedTexts embeds texts in a single request.
func (p *RemoteProvider) EmbedTexts(ctx context.Context, texts []string, maxTokens int) (TextEmbeddings, error) {
	if len(texts) == 0 {
		return TextEmbeddings{}, nil
	}

	var resp textResponse
	if err := p.post(ctx, "/v1/embeddings/text", textRequest{
		Model:         p.model,
		Texts:         texts,
		ContextLength: maxTokens,
	}, &resp); err != nil {
		return TextEmbeddings{}, err
	}

	if len(resp.Embeddings) != len(texts) {
		return TextEmbeddings{}, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(resp.Embeddings), len(texts))
	}

	for i, vec := range resp.Embeddings {
		if err := p.checkVector(vec); err != nil {
			return TextEmbeddings{}, fmt.Errorf("text %d: %w", i, err)
		}

		normalize.NormalizeL2(vec)
	}

	if err := checkLogitScale(resp.LogitScale); err != nil {
		return TextEmbeddings{}, err
	}

	return TextEmbeddings{Vectors: resp.Embeddings, LogitScale: resp.LogitScale}, nil
}

// Close releases idle connections to the inference server.
func (p *RemoteProvider) Close() {
	p.httpClient.HTTPClient.CloseIdleConnections()
}

func (p *RemoteProvider) checkVector(vec []float32) error {
	if want := p.descriptor.EmbedDim; want > 0 && len(vec) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), want)
	}

	return nil
}

func checkLogitScale(scale float64) error {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidLogitScale, scale)
	}

	return nil
}

// post sends body as JSON to path and decodes a 2xx response into out (when non-nil).
func (p *RemoteProvider) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference request %s failed: %w", path, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("inference server error (status %d): %s", resp.StatusCode, errResp.Error)
		}

		return fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// encodeFloat32 packs values as little-endian float32 and base64-encodes them.
func encodeFloat32(values []float32) string {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}

	return base64.StdEncoding.EncodeToString(buf)
}
