package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/fraudlens/api/handler"
	"github.com/use-agent/fraudlens/api/middleware"
	"github.com/use-agent/fraudlens/config"
)

// Service is what the router needs from the scan orchestrator.
type Service interface {
	handler.Scanner
	handler.StatsSource
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  RequestID → Recovery → Logger → Metrics → CORS
//	API:     Auth (if enabled) → DailyLimit
//
// Health, metrics and the front end sit outside auth so monitoring probes
// and the browser UI always load.
func NewRouter(svc Service, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/", handler.Index())
	r.GET("/health", handler.Health(svc, startTime))
	r.GET("/metrics", handler.Metrics())

	protected := r.Group("/api")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.DailyLimit(cfg.RateLimit))

	protected.POST("/scan", handler.Scan(svc))

	return r
}
