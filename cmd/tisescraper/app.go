package main

import (
	"fmt"

	"tisescraper/internal/monitor"
	"tisescraper/pkg/browser"
	"tisescraper/pkg/config"
	"tisescraper/pkg/downloader"
	"tisescraper/pkg/logger"
	"tisescraper/pkg/ratelimit"
	"tisescraper/pkg/retry"
	"tisescraper/pkg/scraper"
	"tisescraper/pkg/store"
	"tisescraper/pkg/tise"
)

// app wires the full pipeline together for the CLI commands.
type app struct {
	cfg     *config.Config
	store   *store.DB
	monitor *monitor.Monitor
}

// newApp loads configuration and constructs the pipeline. Store open failure
// is the only startup-fatal condition.
func newApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := logger.Initialize(&logger.Config{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	db, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	client := tise.NewClient(tise.Options{
		BaseURL:    cfg.Tise.BaseURL,
		Timeout:    cfg.Tise.Timeout,
		MaxRetries: cfg.RateLimit.MaxRetries,
		MaxPages:   cfg.RateLimit.MaxPages,
		UserAgents: cfg.Tise.UserAgents,
		Headers:    cfg.Tise.Headers,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:  cfg.RateLimit.BackoffBase,
			Multiplier: cfg.RateLimit.BackoffFactor,
		},
		Throttle: ratelimit.NewThrottle(cfg.RateLimit.RequestDelay, cfg.RateLimit.RequestJitter),
	}, log)

	var source scraper.Source = client
	if cfg.Discovery.Source == "browser" {
		source = browser.NewSource(cfg.Tise.SiteURL, cfg.Discovery.BrowserTimeout, cfg.Tise.UserAgents[0], log)
	}

	mat, err := downloader.NewMaterializer(client, cfg.Output.DownloadsRoot,
		cfg.Output.MaxImageEdge, cfg.Output.JPEGQuality, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create materializer: %w", err)
	}

	engine := scraper.NewEngine(source, db, mat, cfg.Tise.SiteURL, log)
	mon := monitor.New(cfg, db, engine, log)
	mon.Bootstrap()

	return &app{cfg: cfg, store: db, monitor: mon}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.GetLogger().WithError(err).Warn("failed to close store")
	}
}
