// Package monitor runs the outer profile loop: one profile fully processed
// before the next, a courtesy delay in between, and an optional interval
// scheduler on top.
package monitor

import (
	"context"
	"time"

	"tisescraper/pkg/config"
	"tisescraper/pkg/downloader"
	"tisescraper/pkg/logger"
	"tisescraper/pkg/ratelimit"
	"tisescraper/pkg/scraper"
	"tisescraper/pkg/store"
	"tisescraper/pkg/tise"
)

// Monitor owns the profile check cycle.
type Monitor struct {
	cfg      *config.Config
	store    store.Store
	engine   *scraper.Engine
	throttle ratelimit.Limiter
	logger   logger.Logger
}

// New creates a Monitor.
func New(cfg *config.Config, st store.Store, engine *scraper.Engine, log logger.Logger) *Monitor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Monitor{
		cfg:      cfg,
		store:    st,
		engine:   engine,
		throttle: ratelimit.NewThrottle(cfg.RateLimit.ProfileDelay, 0),
		logger:   log,
	}
}

// Bootstrap inserts the configured profiles, insert-if-absent.
func (m *Monitor) Bootstrap() {
	if len(m.cfg.Profiles) == 0 {
		m.logger.Warn("no profiles configured to monitor")
		return
	}
	for _, profileURL := range m.cfg.Profiles {
		handle := tise.HandleFromProfileURL(profileURL)
		created, err := m.store.AddProfile(profileURL, handle)
		if err != nil {
			m.logger.WithError(err).WithField("profile_url", profileURL).Error("failed to add profile")
			continue
		}
		if created {
			m.logger.InfoWithFields("profile added", map[string]interface{}{
				"profile_url": profileURL,
			})
		}
	}
}

// RunCycle checks every active profile once, sequentially. A failure in one
// profile never aborts the others. Cancellation is honored between profiles.
func (m *Monitor) RunCycle(ctx context.Context) error {
	// Listings admitted by an earlier cycle that never produced artifacts
	// get another materialization attempt before any new discovery.
	if recovered, err := m.engine.RetryPending(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.WithError(err).Warn("pending listing retry pass failed")
	} else if recovered > 0 {
		m.logger.InfoWithFields("re-materialized pending listings", map[string]interface{}{
			"recovered": recovered,
		})
	}

	profiles, err := m.store.GetActiveProfiles()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		m.logger.Warn("no active profiles to monitor")
		return nil
	}

	totalNew := 0
	for i, p := range profiles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		m.logger.InfoWithFields("checking profile", map[string]interface{}{
			"profile_url": p.URL,
		})
		newCount, err := m.engine.CheckProfile(ctx, p.URL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.WithError(err).WithField("profile_url", p.URL).Error("profile check failed")
		}
		totalNew += newCount

		if i < len(profiles)-1 {
			if err := m.throttle.Wait(ctx); err != nil {
				return err
			}
		}
	}

	if m.cfg.Output.RetentionDays > 0 {
		maxAge := time.Duration(m.cfg.Output.RetentionDays) * 24 * time.Hour
		if _, err := downloader.CleanupOld(m.cfg.Output.DownloadsRoot, maxAge, m.logger); err != nil {
			m.logger.WithError(err).Warn("retention cleanup failed")
		}
	}

	logger.LogCycle(len(profiles), totalNew)
	return nil
}

// Run executes an immediate cycle and then repeats on the configured interval
// until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoWithFields("starting automatic monitoring", map[string]interface{}{
		"check_interval": m.cfg.Monitor.CheckInterval.String(),
	})

	if err := m.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		m.logger.WithError(err).Error("profile check cycle failed")
	}

	ticker := time.NewTicker(m.cfg.Monitor.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitoring stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := m.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return err
				}
				m.logger.WithError(err).Error("profile check cycle failed")
			}
		}
	}
}

// Stats combines store statistics with on-disk download usage.
type Stats struct {
	Store     store.Statistics
	FileCount int
	TotalMB   float64
	Root      string
}

// CollectStats gathers the numbers behind the stats command.
func (m *Monitor) CollectStats() (*Stats, error) {
	dbStats, err := m.store.GetStatistics()
	if err != nil {
		return nil, err
	}
	files, bytes, err := downloader.DiskUsage(m.cfg.Output.DownloadsRoot)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Store:     *dbStats,
		FileCount: files,
		TotalMB:   float64(bytes) / (1024 * 1024),
		Root:      m.cfg.Output.DownloadsRoot,
	}, nil
}
