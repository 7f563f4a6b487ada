// Command pdfviewer serves the PDF viewer HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfviewer-golang/internal/api"
	"github.com/pyhub-apps/pdfviewer-golang/internal/config"
	"github.com/pyhub-apps/pdfviewer-golang/internal/health"
	"github.com/pyhub-apps/pdfviewer-golang/internal/logging"
	"github.com/pyhub-apps/pdfviewer-golang/internal/storage"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/viewer"
)

const version = "0.2.0"

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults only when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("server failed")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	logger.WithField("version", version).Info("starting pdfviewer")

	store, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage adapter: %w", err)
	}
	defer store.Close()
	logger.WithField("adapter", cfg.Storage.Adapter).Info("storage adapter initialized")

	pdfEngine, err := engine.New(cfg.Engine, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"text_backend": cfg.Engine.TextBackend,
		"validation":   cfg.Engine.Validation,
	}).Info("engine initialized")

	controller := viewer.New(pdfEngine, store, logger)
	defer controller.Close()
	if _, err := controller.Prune(context.Background()); err != nil {
		logger.WithError(err).Warn("failed to prune archived uploads")
	}

	healthHandler := health.NewHandler(version)
	healthHandler.Register("storage", func(ctx context.Context) (health.Status, error) {
		if _, err := store.Exists(ctx, ".healthcheck"); err != nil {
			return health.StatusUnhealthy, err
		}
		return health.StatusHealthy, nil
	})
	healthHandler.Register("document", func(ctx context.Context) (health.Status, error) {
		if msg := controller.State().LoadError; msg != "" {
			return health.StatusDegraded, errors.New(msg)
		}
		return health.StatusHealthy, nil
	})

	mux := http.NewServeMux()
	healthHandler.Routes(mux)
	api.NewHandler(controller, cfg.Server.MaxUploadBytes(), logger).Routes(mux)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.LogRequests(mux, logger),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
