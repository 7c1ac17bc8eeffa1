package embeddings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrDescriptorMalformed is returned when the model configuration descriptor cannot be used.
	ErrDescriptorMalformed = errors.New("embeddings: malformed model descriptor")
	// ErrCheckpointMissing is returned when the checkpoint artifact is absent or empty.
	ErrCheckpointMissing = errors.New("embeddings: checkpoint artifact missing")
)

const defaultImageSize = 224

// OpenAI CLIP normalization constants, used when the descriptor does not override them.
var (
	defaultMean = [3]float64{0.48145466, 0.4578275, 0.40821073}
	defaultStd  = [3]float64{0.26862954, 0.26130258, 0.27577711}
)

// PreprocessConfig controls how images are turned into model input.
type PreprocessConfig struct {
	Size          int       `json:"size"`
	Mean          []float64 `json:"mean"`
	Std           []float64 `json:"std"`
	Interpolation string    `json:"interpolation"`
	ResizeMode    string    `json:"resize_mode"`
	FillColor     int       `json:"fill_color"`

	mean   [3]float64
	std    [3]float64
	parsed bool
}

type modelConfig struct {
	EmbedDim  int `json:"embed_dim"`
	VisionCfg struct {
		ImageSize int `json:"image_size"`
	} `json:"vision_cfg"`
	TextCfg struct {
		ContextLength int `json:"context_length"`
	} `json:"text_cfg"`
}

// Descriptor is the parsed model configuration descriptor (open_clip_config.json layout):
// the architecture config forwarded verbatim to the inference server and the
// preprocessing parameters applied locally.
type Descriptor struct {
	ModelConfig   json.RawMessage
	Preprocess    PreprocessConfig
	EmbedDim      int
	ContextLength int
}

type descriptorFile struct {
	ModelCfg      json.RawMessage  `json:"model_cfg"`
	PreprocessCfg PreprocessConfig `json:"preprocess_cfg"`
}

// LoadDescriptor reads and validates the descriptor at path.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model descriptor %s: %w", path, err)
	}

	return ParseDescriptor(data)
}

// ParseDescriptor validates descriptor JSON and fills in preprocessing defaults.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var file descriptorFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescriptorMalformed, err)
	}

	raw := bytes.TrimSpace(file.ModelCfg)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%w: model_cfg must be an object", ErrDescriptorMalformed)
	}

	var mc modelConfig
	if err := json.Unmarshal(raw, &mc); err != nil {
		return nil, fmt.Errorf("%w: model_cfg: %w", ErrDescriptorMalformed, err)
	}

	if mc.EmbedDim <= 0 {
		return nil, fmt.Errorf("%w: model_cfg.embed_dim must be positive", ErrDescriptorMalformed)
	}

	var err error

	pp := file.PreprocessCfg
	if pp.Size <= 0 {
		pp.Size = mc.VisionCfg.ImageSize
	}

	if pp.Size <= 0 {
		pp.Size = defaultImageSize
	}

	if pp.mean, err = channelTriple("mean", pp.Mean, defaultMean); err != nil {
		return nil, err
	}

	if pp.std, err = channelTriple("std", pp.Std, defaultStd); err != nil {
		return nil, err
	}

	for _, s := range pp.std {
		if s == 0 {
			return nil, fmt.Errorf("%w: preprocess_cfg.std must not contain zero", ErrDescriptorMalformed)
		}
	}

	pp.parsed = true

	pp.Interpolation = strings.ToLower(pp.Interpolation)
	if pp.Interpolation == "" {
		pp.Interpolation = "bicubic"
	}

	if _, ok := interpolators[pp.Interpolation]; !ok {
		return nil, fmt.Errorf("%w: unsupported interpolation %q", ErrDescriptorMalformed, pp.Interpolation)
	}

	pp.ResizeMode = strings.ToLower(pp.ResizeMode)
	if pp.ResizeMode == "" {
		pp.ResizeMode = resizeShortest
	}

	switch pp.ResizeMode {
	case resizeShortest, resizeLongest, resizeSquash:
	default:
		return nil, fmt.Errorf("%w: unsupported resize_mode %q", ErrDescriptorMalformed, pp.ResizeMode)
	}

	return &Descriptor{
		ModelConfig:   raw,
		Preprocess:    pp,
		EmbedDim:      mc.EmbedDim,
		ContextLength: mc.TextCfg.ContextLength,
	}, nil
}

func channelTriple(name string, values []float64, def [3]float64) ([3]float64, error) {
	switch len(values) {
	case 0:
		return def, nil
	case 3:
		return [3]float64{values[0], values[1], values[2]}, nil
	default:
		return [3]float64{}, fmt.Errorf("%w: preprocess_cfg.%s must have 3 values, got %d",
			ErrDescriptorMalformed, name, len(values))
	}
}

// VerifyCheckpoint checks that the checkpoint artifact exists and is a non-empty regular file.
func VerifyCheckpoint(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointMissing, err)
	}

	if !info.Mode().IsRegular() || info.Size() == 0 {
		return fmt.Errorf("%w: %s is not a non-empty file", ErrCheckpointMissing, path)
	}

	return nil
}
