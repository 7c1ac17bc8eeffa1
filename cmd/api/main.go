// Command api serves zero-shot image classification over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/formbricks/zeroshot/internal/config"
	"github.com/formbricks/zeroshot/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return 1
	}

	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to start", "error", err)

		return 1
	}

	exitCode := 0

	if err := app.Run(ctx); err != nil {
		slog.Error("Server failed", "error", err)

		exitCode = 1
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Error("Server forced to shutdown", "timeout", cfg.ShutdownTimeout)
		} else {
			slog.Error("Shutdown failed", "error", err)
		}

		exitCode = 1
	}

	slog.Info("Server exited")

	return exitCode
}
