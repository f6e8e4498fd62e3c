package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/catalogflat/internal/artifact"
	"github.com/JonMunkholm/catalogflat/internal/catalog"
	"github.com/JonMunkholm/catalogflat/internal/config"
	"github.com/JonMunkholm/catalogflat/internal/logging"
	"github.com/JonMunkholm/catalogflat/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"output_dir", cfg.Output.Dir,
		"chunk_size", cfg.Processing.ChunkSize,
		"max_concurrent", cfg.Processing.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	logger.Debug("configuration", "config", cfg.String())

	store, err := artifact.New(cfg.Output.Dir)
	if err != nil {
		logger.Error("failed to open artifact directory", "error", err)
		os.Exit(1)
	}

	limiter := catalog.NewRunLimiter(cfg.Processing.MaxConcurrent, cfg.Processing.MaxWaitTime)
	processor := catalog.NewProcessor(store, limiter, catalog.Options{
		ChunkSize: cfg.Processing.ChunkSize,
		Workers:   cfg.Processing.Workers,
		Logger:    logger,
	})

	server := web.NewServer(cfg, processor, store, limiter)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active runs so no half-written table is abandoned
		if st := limiter.Status(); st.Active > 0 {
			logger.Info("waiting for runs to complete", "active", st.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				logger.Warn("runs did not complete in time", "error", err)
			} else {
				logger.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	logger.Info("server stopped")
}
