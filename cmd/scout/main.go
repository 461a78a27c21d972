package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/use-agent/scout/api"
	"github.com/use-agent/scout/cache"
	"github.com/use-agent/scout/config"
	"github.com/use-agent/scout/content"
	"github.com/use-agent/scout/engine"
	"github.com/use-agent/scout/governor"
	"github.com/use-agent/scout/identity"
	"github.com/use-agent/scout/linkedin"
	"github.com/use-agent/scout/proxy"
	"github.com/use-agent/scout/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("scout starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Initialise scraper (launches browser) ────────────────────
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Debug)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer sc.Close()

	// ── 4. Stealth plumbing: governor, identities, proxies ──────────
	gov := governor.New(cfg.Governor)
	ids := identity.NewRotator()
	proxies := proxy.NewSelector(cfg.Proxy)
	if n := proxies.PoolSize(); n > 0 {
		slog.Info("proxy pool loaded", "endpoints", n)
	}

	// ── 5. Engine chain ─────────────────────────────────────────────
	var apiEngine engine.Engine
	if cfg.Engines.BraveAPIKey != "" {
		quota := engine.NewQuotaState(cfg.Engines.BraveDailyLimit)
		apiEngine = engine.NewBraveAPI(cfg.Engines.BraveAPIKey, quota)
	} else {
		slog.Warn("no web API key configured; search has no final fallback")
	}
	orc := engine.NewOrchestrator(cfg.Engines, cfg.Governor, gov,
		engine.NewGoogle(sc, ids, proxies),
		engine.NewBing(sc, ids, proxies),
		apiEngine,
	)

	// ── 6. Content pipeline ─────────────────────────────────────────
	var fetcher content.Fetcher
	if cfg.Extract.HTTPFirst {
		fetcher = scraper.NewHTTPFetcher(cfg.Extract.HTTPTimeout)
	}
	ex := content.NewExtractor(cfg.Extract, sc, fetcher, ids, proxies, nil)
	li := linkedin.NewScraper(sc, ex, ids)

	// ── 7. Cache + router ───────────────────────────────────────────
	cc := cache.New(cfg.Cache)
	startTime := time.Now()
	router := api.NewRouter(orc, ex, li, sc, cfg, cc, startTime)

	// ── 8. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// sc.Close() runs via defer — drains the page pool and kills Chrome.
	slog.Info("scout stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}
