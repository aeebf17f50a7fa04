package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/hnspool/internal/cache"
	"github.com/steemit/hnspool/pkg/logging"
	"github.com/steemit/hnspool/pkg/telemetry"
)

// Dispatcher queues ingestion runs
type Dispatcher interface {
	Submit(limit int) (string, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router sets up API routes
type Router struct {
	dispatcher   Dispatcher
	defaultLimit int
	db           HealthChecker
	cache        HealthChecker
	logger       *zap.Logger
}

// NewRouter creates a new API router. cache may be nil when Redis is disabled.
func NewRouter(dispatcher Dispatcher, defaultLimit int, database HealthChecker, redisCache HealthChecker) *Router {
	return &Router{
		dispatcher:   dispatcher,
		defaultLimit: defaultLimit,
		db:           database,
		cache:        redisCache,
		logger:       logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	engine.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))

	v1 := engine.Group("/api/v1")
	v1.POST("/stories/fetch", r.fetchStories)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	dbStatus := "ok"
	if r.db != nil {
		if err := r.db.Health(ctx); err != nil {
			r.logger.Warn("Database health check failed", zap.Error(err))
			dbStatus = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	redisStatus := "disabled"
	if r.cache != nil {
		switch err := r.cache.Health(ctx); {
		case err == nil:
			redisStatus = "ok"
		case errors.Is(err, cache.ErrCacheDisabled):
		default:
			// The cache is optional; report but stay healthy
			r.logger.Warn("Redis health check failed", zap.Error(err))
			redisStatus = err.Error()
		}
	}

	overall := "OK"
	if status != http.StatusOK {
		overall = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":   overall,
		"service":  "hnspool",
		"database": dbStatus,
		"redis":    redisStatus,
	})
}
