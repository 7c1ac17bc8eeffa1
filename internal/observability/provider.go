package observability

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Standard OTel sampler variables, read directly rather than through config.
const (
	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"
)

// TracerProviderConfig selects the span exporter.
type TracerProviderConfig struct {
	// Exporter is "otlp", "stdout", or empty to disable tracing.
	Exporter    string
	ServiceName string
}

// NewTracerProvider creates a TracerProvider when tracing is enabled.
// When the exporter is empty or unknown, returns (nil, nil).
func NewTracerProvider(ctx context.Context, cfg TracerProviderConfig) (*sdktrace.TracerProvider, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch cfg.Exporter {
	case "otlp":
		exp, err = newOTLPTraceExporter(ctx)
	case "stdout":
		exp, err = newStdoutTraceExporter()
	default:
		//nolint:nilnil // tracing disabled, caller checks for nil
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	// Single resource, as in NewMeterProvider: merging with resource.Default() can fail on Schema URL conflicts.
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(name))

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(os.Getenv(envTracesSampler), os.Getenv(envTracesSamplerArg))),
		sdktrace.WithBatcher(exp),
	), nil
}

// ShutdownTracerProvider flushes and shuts down the TracerProvider. Safe to call with nil.
func ShutdownTracerProvider(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}

// newSampler maps OTEL_TRACES_SAMPLER values to samplers. Empty or unknown
// values fall back to parentbased_always_on, the SDK default.
func newSampler(name, arg string) sdktrace.Sampler {
	switch name {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(parseTraceIDRatio(arg))
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(parseTraceIDRatio(arg)))
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

// parseTraceIDRatio returns the ratio in arg, or 1 when it is missing or outside [0, 1].
func parseTraceIDRatio(arg string) float64 {
	f, err := strconv.ParseFloat(arg, 64)
	if err != nil || f < 0 || f > 1 {
		return 1
	}

	return f
}
