package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pep299/article-bias-analyzer/internal/application"
	"github.com/pep299/article-bias-analyzer/internal/handlers"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := application.New(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Close()

	logger := app.Logger
	cfg := app.Config

	// Setup routes
	router := handlers.NewServer(app).SetupRoutes()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Re-probe the session key on a schedule
	c := cron.New()
	if cfg.ReverifySchedule != "" {
		_, err := c.AddFunc(cfg.ReverifySchedule, func() {
			if err := app.Credentials.Reverify(ctx); err != nil {
				logger.Warn("scheduled key check failed", zap.Error(err))
				return
			}
			logger.Debug("scheduled key check passed")
		})
		if err != nil {
			logger.Error("invalid reverify schedule", zap.String("schedule", cfg.ReverifySchedule), zap.Error(err))
		} else {
			logger.Info("scheduled key check", zap.String("schedule", cfg.ReverifySchedule))
		}
	}
	c.Start()
	defer c.Stop()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("shutting down server")

	// Cancel background tasks
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}
