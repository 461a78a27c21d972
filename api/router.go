// Package api assembles the HTTP surface.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scout/api/handler"
	"github.com/use-agent/scout/api/middleware"
	"github.com/use-agent/scout/cache"
	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/content"
	"github.com/use-agent/scout/engine"
	"github.com/use-agent/scout/linkedin"
	"github.com/use-agent/scout/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(orc *engine.Orchestrator, ex *content.Extractor, li *linkedin.Scraper, sc *scraper.Scraper, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(sc, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.APIRate))

	protected.GET("/search", handler.Search(orc, cc))
	protected.GET("/extract", handler.Extract(ex, cc))
	protected.POST("/linkedin/scrape", handler.LinkedIn(li))

	return r
}
