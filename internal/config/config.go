// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// LabelsDSN selects the label store: a file path, sqlite://<path> or postgres://...
	LabelsDSN string

	// Model artifacts. CheckpointPath and DescriptorPath are resolved against CheckpointDir.
	CheckpointDir  string
	CheckpointPath string
	DescriptorPath string
	ModelName      string

	// Inference server that computes embeddings for the registered model.
	InferenceURL string
	// Per-call timeout for embedding requests; 0 means no timeout.
	EmbeddingTimeout time.Duration
	// Bound on in-flight embedding calls; 0 means unbounded.
	EmbeddingMaxConcurrent int

	MaxUploadBytes     int64
	CORSAllowedOrigins []string

	OtelTracesExporter string
	MetricsEnabled     bool

	ShutdownTimeout time.Duration
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
// Unlike getEnv, a malformed value is reported instead of silently replaced.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return value, nil
}

// getEnvAsBool retrieves an environment variable as a bool or returns a default value.
func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return value, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 30s): %w", key, err)
	}

	return value, nil
}

// splitList splits a comma separated list and drops empty entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// resolve joins name onto dir unless name is already absolute.
func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(dir, name)
}

// Load reads configuration from environment variables and returns a Config struct.
// It automatically loads .env file if it exists.
// Returns default values for any missing environment variables and an error for malformed ones.
func Load() (*Config, error) {
	// Load .env file if it exists. Skip logging when absent (e.g. env from secrets/parameter store).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	embeddingMaxConcurrent, err := getEnvAsInt("EMBEDDING_MAX_CONCURRENT", 0)
	if err != nil {
		return nil, err
	}

	if embeddingMaxConcurrent < 0 {
		return nil, errors.New("EMBEDDING_MAX_CONCURRENT must not be negative")
	}

	embeddingTimeout, err := getEnvAsDuration("EMBEDDING_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	const defaultMaxUploadBytes = 32 << 20

	maxUploadBytes, err := getEnvAsInt("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}

	metricsEnabled, err := getEnvAsBool("METRICS_ENABLED", true)
	if err != nil {
		return nil, err
	}

	const defaultShutdownTimeout = 30 * time.Second

	shutdownTimeout, err := getEnvAsDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
	if err != nil {
		return nil, err
	}

	inferenceURL := strings.TrimSuffix(getEnv("INFERENCE_URL", "http://127.0.0.1:8500"), "/")

	checkpointDir := getEnv("CHECKPOINT_DIR", "checkpoints")

	cfg := &Config{
		Port:      getEnv("PORT", "5000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		LabelsDSN: getEnv("LABELS_DSN", "labels.json"),

		CheckpointDir:  checkpointDir,
		CheckpointPath: resolve(checkpointDir, getEnv("MODEL_CHECKPOINT", "open_clip_pytorch_model.bin")),
		DescriptorPath: resolve(checkpointDir, getEnv("MODEL_CONFIG", "open_clip_config.json")),
		ModelName:      getEnv("MODEL_NAME", "biomedclip_local"),

		InferenceURL:           inferenceURL,
		EmbeddingTimeout:       embeddingTimeout,
		EmbeddingMaxConcurrent: embeddingMaxConcurrent,

		MaxUploadBytes:     int64(maxUploadBytes),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		OtelTracesExporter: getEnv("OTEL_TRACES_EXPORTER", ""),
		MetricsEnabled:     metricsEnabled,

		ShutdownTimeout: shutdownTimeout,
	}

	return cfg, nil
}
