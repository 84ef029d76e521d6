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

	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/api"
	"github.com/englishstudent/client/internal/auth"
	"github.com/englishstudent/client/internal/config"
	"github.com/englishstudent/client/internal/logger"
	"github.com/englishstudent/client/internal/progress"
	"github.com/englishstudent/client/internal/storage"
	"github.com/englishstudent/client/internal/web"
	"github.com/englishstudent/client/internal/web/handlers"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting EnglishStudent web frontend")

	// Open the local store holding tokens and progress
	store, err := openStore(cfg)
	if err != nil {
		logger.Logger.Fatal("Failed to open local store", zap.Error(err))
	}

	// Initialize the session and progress layers
	tokens := auth.NewTokenStore(store)
	progressStore := progress.NewStore(store)

	// Initialize the platform API client
	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, cfg.API.FileTimeout, tokens, logger.Logger)

	// Initialize handlers
	h := web.Handlers{
		Auth:    handlers.NewAuthHandler(client, logger.Logger),
		Catalog: handlers.NewCatalogHandler(client, progressStore, logger.Logger),
		Learn:   handlers.NewLearnHandler(client, progressStore, logger.Logger),
		Admin:   handlers.NewAdminHandler(client, tokens, logger.Logger),
	}

	// Setup router
	r := web.NewRouter(h, logger.Logger, cfg.CORS.AllowedOrigins)

	// Start server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Web.Port),
		Handler: r,
		// Write timeout must cover full material downloads
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.FileTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Web.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// openStore opens the persistent key-value store, encrypted when a
// store key is configured.
func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.StoreKey != "" {
		return storage.NewEncryptedFileStore(cfg.StorePath(), cfg.StoreKey)
	}
	return storage.NewFileStore(cfg.StorePath())
}
