package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/hnspool/internal/api"
	"github.com/steemit/hnspool/internal/app"
	"github.com/steemit/hnspool/internal/indexer"
)

func main() {
	configPath := flag.String("config", "", "config file (default: ./config.yaml)")
	flag.Parse()

	a, err := app.Init(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	cfg := a.Config
	logger := a.Logger
	logger.Info("Starting HN spool API server")

	if err := a.BuildSync(); err != nil {
		logger.Fatal("Failed to initialize ingestion", zap.Error(err))
	}

	dispatcher := indexer.NewDispatcher(a.Sync, cfg.Indexer.QueueSize)
	dispatcher.Start(context.Background())

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	api.NewRouter(dispatcher, cfg.Indexer.DefaultLimit, a.DB, a.Cache).SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	dispatcher.Stop()

	logger.Info("Server exited")
}
