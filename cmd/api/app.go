package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/formbricks/zeroshot/internal/api/handlers"
	"github.com/formbricks/zeroshot/internal/api/middleware"
	"github.com/formbricks/zeroshot/internal/classifier"
	"github.com/formbricks/zeroshot/internal/config"
	"github.com/formbricks/zeroshot/internal/embeddings"
	"github.com/formbricks/zeroshot/internal/observability"
	"github.com/formbricks/zeroshot/internal/repository"
	"github.com/formbricks/zeroshot/internal/service"
)

// Served paths. Metrics records any other path as unmatched.
const (
	routePredict      = "/predict"
	routeUpdateLabels = "/update_labels"
	routeLabels       = "/labels"
	routeHealth       = "/health"
	routeMetrics      = "/metrics"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	server         *http.Server
	labels         repository.LabelStore
	provider       *embeddings.RemoteProvider
	meterProvider  observability.MeterProviderShutdown
	tracerProvider *sdktrace.TracerProvider
}

// observabilityStack is what setupObservability hands to the rest of the app.
// All fields are nil when the corresponding signal is disabled.
type observabilityStack struct {
	meterProvider  observability.MeterProviderShutdown
	metricsHandler http.Handler
	metrics        observability.Metrics
	tracerProvider *sdktrace.TracerProvider
}

func setupObservability(ctx context.Context, cfg *config.Config) (*observabilityStack, error) {
	stack := &observabilityStack{}

	if cfg.MetricsEnabled {
		mp, handler, metrics, err := observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
		if err != nil {
			return nil, fmt.Errorf("create meter provider: %w", err)
		}

		stack.meterProvider, stack.metricsHandler, stack.metrics = mp, handler, metrics
	} else {
		slog.Warn("metrics not enabled (METRICS_ENABLED=false)")
	}

	tp, err := observability.NewTracerProvider(ctx, observability.TracerProviderConfig{Exporter: cfg.OtelTracesExporter})
	if err != nil {
		stack.shutdown(ctx)

		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tp == nil {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unsupported)", "exporter", cfg.OtelTracesExporter)
	} else {
		stack.tracerProvider = tp
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{},
		))
	}

	return stack, nil
}

// shutdown releases whatever setupObservability managed to create.
func (s *observabilityStack) shutdown(ctx context.Context) {
	if err := shutdownObservability(ctx, s.tracerProvider, s.meterProvider); err != nil {
		slog.Error("shutdown observability", "error", err)
	}
}

// bootstrapModel loads the descriptor, checks the checkpoint and registers the
// model with the inference server. Any failure is fatal for startup.
func bootstrapModel(ctx context.Context, cfg *config.Config) (*embeddings.RemoteProvider, error) {
	descriptor, err := embeddings.LoadDescriptor(cfg.DescriptorPath)
	if err != nil {
		return nil, fmt.Errorf("load model descriptor: %w", err)
	}

	if err := embeddings.VerifyCheckpoint(cfg.CheckpointPath); err != nil {
		return nil, fmt.Errorf("verify checkpoint: %w", err)
	}

	provider := embeddings.NewRemoteProvider(embeddings.RemoteOptions{
		BaseURL:        cfg.InferenceURL,
		ModelName:      cfg.ModelName,
		CheckpointPath: cfg.CheckpointPath,
		Timeout:        cfg.EmbeddingTimeout,
	}, descriptor)

	if err := provider.Register(ctx); err != nil {
		provider.Close()

		return nil, err
	}

	return provider, nil
}

// NewApp builds and wires all components. It does not start the HTTP server;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs, err := setupObservability(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := bootstrapModel(ctx, cfg)
	if err != nil {
		obs.shutdown(ctx)

		return nil, err
	}

	labels, err := repository.NewLabelStore(ctx, cfg.LabelsDSN)
	if err != nil {
		provider.Close()
		obs.shutdown(ctx)

		return nil, fmt.Errorf("open label store: %w", err)
	}

	var embedder embeddings.Provider = embeddings.NewLimitedProvider(provider, cfg.EmbeddingMaxConcurrent)
	embedder = service.NewInstrumentedProvider(embedder, obs.metrics)

	engine := classifier.NewEngine(embedder)

	h := routes{
		classify:       handlers.NewClassifyHandler(service.NewClassificationService(labels, engine, obs.metrics)),
		labels:         handlers.NewLabelsHandler(service.NewLabelsService(labels, obs.metrics)),
		health:         handlers.NewHealthHandler(),
		metricsHandler: obs.metricsHandler,
	}

	slog.Info("classifier ready",
		"model", cfg.ModelName,
		"inference_url", cfg.InferenceURL,
		"labels_dsn", cfg.LabelsDSN,
		"max_concurrent_embeddings", cfg.EmbeddingMaxConcurrent,
	)

	return &App{
		cfg:            cfg,
		server:         newHTTPServer(cfg, newHandler(cfg, h, obs.metrics, obs.tracerProvider)),
		labels:         labels,
		provider:       provider,
		meterProvider:  obs.meterProvider,
		tracerProvider: obs.tracerProvider,
	}, nil
}

// routes are the handlers mounted on the mux. metricsHandler is nil when metrics are disabled.
type routes struct {
	classify       *handlers.ClassifyHandler
	labels         *handlers.LabelsHandler
	health         *handlers.HealthHandler
	metricsHandler http.Handler
}

// newHandler builds the mux and middleware chain:
// RequestID -> CORS -> Metrics -> otelhttp -> Logging -> MaxBody -> mux.
// Logging runs inside otelhttp so access logs get trace_id/span_id from context.
func newHandler(
	cfg *config.Config,
	h routes,
	metrics observability.Metrics,
	tracerProvider *sdktrace.TracerProvider,
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+routePredict, h.classify.Predict)
	mux.HandleFunc("POST "+routeUpdateLabels, h.labels.Update)
	mux.HandleFunc("GET "+routeLabels, h.labels.List)
	mux.HandleFunc("GET "+routeHealth, h.health.Check)

	known := []string{routePredict, routeUpdateLabels, routeLabels, routeHealth}

	if h.metricsHandler != nil {
		mux.Handle("GET "+routeMetrics, h.metricsHandler)
		known = append(known, routeMetrics)
	}

	otelOpts := []otelhttp.Option{
		// Skip tracing for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != routeHealth && r.URL.Path != routeMetrics
		}),
	}
	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	var recorder middleware.RequestBodyTooLargeRecorder
	if metrics != nil {
		recorder = metrics
	}

	var handler http.Handler = middleware.MaxBody(cfg.MaxUploadBytes, recorder)(mux)
	handler = middleware.Logging(slog.Default())(handler)
	handler = otelhttp.NewHandler(handler, "zeroshot-api", otelOpts...)
	handler = middleware.Metrics(metrics, known...)(handler)
	handler = middleware.CORS(cfg.CORSAllowedOrigins)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	const (
		readHeaderTimeout = 10 * time.Second
		idleTimeout       = 60 * time.Second
	)

	// No read/write timeouts: classification waits on the provider for as long as it takes.
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled (e.g. signal)
// or the server fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter observability.MeterProviderShutdown) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := meter.Shutdown(ctx); err != nil {
			if first == nil {
				first = fmt.Errorf("meter provider shutdown: %w", err)
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

// Shutdown drains in-flight requests, then closes the label store and the
// provider. Observability is shut down last; its error is returned only when
// everything else shut down cleanly.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	defer a.provider.Close()

	serverErr := a.server.Shutdown(ctx)
	if errors.Is(serverErr, http.ErrServerClosed) {
		serverErr = nil
	}

	if closeErr := a.labels.Close(); closeErr != nil {
		if serverErr == nil {
			return fmt.Errorf("close label store: %w", closeErr)
		}

		slog.Error("close label store", "error", closeErr)
	}

	if serverErr != nil {
		return fmt.Errorf("server shutdown: %w", serverErr)
	}

	return nil
}
