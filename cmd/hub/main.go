package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ezyrone/TP-Final-2/internal/config"
	"github.com/Ezyrone/TP-Final-2/internal/di"
	"github.com/Ezyrone/TP-Final-2/internal/observability"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, cleanup, err := di.InitializeContainer(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()

	cfg := container.Config
	logger := container.Logger

	if cfg.File != "" {
		watcher, err := config.NewWatcher(cfg.File, logger)
		if err != nil {
			logger.Warn("Configuration hot reloading disabled", zap.Error(err))
		} else {
			watcher.OnChange(func(next *config.Config) {
				if err := observability.SetLevel(container.LogLevel, next.Logging.Level); err != nil {
					logger.Warn("Ignoring invalid log level", zap.String("level", next.Logging.Level), zap.Error(err))
					return
				}
				logger.Info("Log level updated", zap.String("level", next.Logging.Level))
			})
			container.AddShutdown(watcher.Close)
		}
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	container.Start(hubCtx)

	srv := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     container.Router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Starting sync hub",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.Store.Driver),
			zap.String("sessions", cfg.Store.SessionDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting handshakes first, then close every socket from the hub loop.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	stopHub()
	if err := container.Shutdown(shutdownCtx); err != nil {
		logger.Error("Container shutdown error", zap.Error(err))
	}

	log.Println("Server stopped")
}
