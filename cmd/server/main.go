package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/similarweb-ingest/internal/app"
	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Development); err != nil {
		logger.Error("Failed to initialise logger", "error", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Similarweb.APIKey == "" {
		// Runs fail with a configuration error until the key is provided.
		logger.Warn("SIMILARWEB_API_KEY is not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialise service", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	server := application.Server()

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting server",
			"addr", cfg.Server.Addr(),
			"domains", cfg.Ingest.Domains,
			"table", application.Warehouse.TableID(),
			"backend", cfg.Warehouse.Backend,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("Shutting down...")
	cancel()

	// Graceful shutdown with timeout; an in-flight run gets the full window.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
