package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/fraudlens/analysis"
	"github.com/use-agent/fraudlens/api"
	"github.com/use-agent/fraudlens/cache"
	"github.com/use-agent/fraudlens/config"
	"github.com/use-agent/fraudlens/gate"
	"github.com/use-agent/fraudlens/llm"
	"github.com/use-agent/fraudlens/scan"
	"github.com/use-agent/fraudlens/scraper"
	"github.com/use-agent/fraudlens/webhook"
)

// acceptLanguage is sent with every page request.
const acceptLanguage = "en-US,en;q=0.9"

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("fraudlens starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxConcurrent", cfg.Gate.MaxConcurrent,
		"cache", cfg.Cache.Enabled,
	)
	if cfg.Oracle.APIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, every assessment will be simulated")
	}

	// ── 3. Launch browser ───────────────────────────────────────────
	provider, err := scraper.NewRodProvider(cfg.Browser)
	if err != nil {
		slog.Error("failed to launch browser", "error", err)
		os.Exit(1)
	}
	defer provider.Close()

	var prober scraper.Prober
	if cfg.Scraper.ProbeEnabled {
		prober = scraper.NewHTTPProber(cfg.Scraper.ProbeTimeout, cfg.Browser.UserAgent)
	}

	extractor := scraper.NewExtractor(provider, prober, scraper.ExtractorOptions{
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
		SettleDelay:       cfg.Scraper.SettleDelay,
		Page: scraper.PageOptions{
			Width:                cfg.Browser.Width,
			Height:               cfg.Browser.Height,
			UserAgent:            cfg.Browser.UserAgent,
			AcceptLanguage:       acceptLanguage,
			JavaScript:           cfg.Browser.JavaScript,
			Stealth:              cfg.Browser.Stealth,
			BlockedResourceTypes: cfg.Scraper.BlockedResourceTypes,
		},
		Screenshot: scraper.ScreenshotOptions{
			Quality:  cfg.Scraper.ScreenshotQuality,
			FullPage: cfg.Scraper.FullPageScreenshot,
		},
	})

	// ── 4. Initialise risk oracle ───────────────────────────────────
	oracle := llm.NewOracle(llm.NewClient(cfg.Oracle, nil))

	// ── 5. Assemble scan service ────────────────────────────────────
	svc := scan.NewService(scan.Deps{
		Cache: cache.New(cache.Options{
			Enabled:       cfg.Cache.Enabled,
			TTL:           cfg.Cache.TTL,
			MaxItems:      cfg.Cache.MaxItems,
			SweepInterval: cfg.Cache.SweepInterval,
		}),
		Gate:      gate.New(cfg.Gate.MaxConcurrent),
		Extractor: extractor,
		Assessor:  analysis.NewAssessor(oracle),
		Locator:   analysis.NewLocator(oracle),
		Notifier:  webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.MinScore),
	})

	// ── 6. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(svc, cfg, startTime)

	// ── 7. Start HTTP(S) server ─────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := serve(srv, cfg.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Scans outlive their requests, so wait for the gate too.
	select {
	case <-svc.Drain():
		slog.Info("scan queue drained")
	case <-ctx.Done():
		gs, _ := svc.Stats()
		slog.Warn("abandoning in-flight scans", "active", gs.Active, "queued", gs.Queued)
	}

	// provider.Close() runs via defer and kills Chrome.
	slog.Info("fraudlens stopped")
}

// serve starts TLS when enabled and the key pair loads, plain HTTP otherwise.
func serve(srv *http.Server, cfg config.ServerConfig) error {
	if cfg.EnableHTTPS {
		cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
		if err == nil {
			srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
			slog.Info("HTTPS server listening", "addr", srv.Addr)
			return srv.ListenAndServeTLS("", "")
		}
		slog.Warn("HTTPS disabled, could not load certificate", "cert", cfg.CertPath, "key", cfg.KeyPath, "error", err)
	}
	slog.Info("HTTP server listening", "addr", srv.Addr)
	return srv.ListenAndServe()
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

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
