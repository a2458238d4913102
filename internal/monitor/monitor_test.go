package monitor

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tisescraper/pkg/config"
	"tisescraper/pkg/downloader"
	"tisescraper/pkg/logger"
	"tisescraper/pkg/scraper"
	"tisescraper/pkg/store"
	"tisescraper/pkg/tise"
)

// emptySource returns no listings for every handle.
type emptySource struct{}

func (emptySource) Discover(context.Context, string) ([]tise.RawListing, error) {
	return nil, nil
}

// noopFetcher fails every download; cycles in these tests carry no images.
type noopFetcher struct{}

func (noopFetcher) Download(context.Context, string) ([]byte, string, error) {
	return nil, "", os.ErrNotExist
}

func newTestMonitorWith(t *testing.T, source scraper.Source, fetcher downloader.Fetcher, profiles ...string) (*Monitor, *store.DB) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Profiles = profiles
	cfg.RateLimit.ProfileDelay = 0
	cfg.Output.DownloadsRoot = filepath.Join(dir, "downloads")
	cfg.Store.DatabasePath = filepath.Join(dir, "test.db")

	db, err := store.Open(cfg.Store.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mat, err := downloader.NewMaterializer(fetcher, cfg.Output.DownloadsRoot, 2000, 85, logger.NewNopLogger())
	require.NoError(t, err)
	engine := scraper.NewEngine(source, db, mat, cfg.Tise.SiteURL, logger.NewNopLogger())

	return New(cfg, db, engine, logger.NewNopLogger()), db
}

func newTestMonitor(t *testing.T, profiles ...string) (*Monitor, *store.DB) {
	t.Helper()
	return newTestMonitorWith(t, emptySource{}, noopFetcher{}, profiles...)
}

func TestBootstrapInsertsConfiguredProfiles(t *testing.T) {
	m, db := newTestMonitor(t,
		"https://tise.com/profiles/alice",
		"https://tise.com/profiles/bob",
	)

	m.Bootstrap()
	// Repeat bootstrap does not duplicate rows.
	m.Bootstrap()

	profiles, err := db.GetActiveProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alice", profiles[0].Handle)
	assert.Equal(t, "bob", profiles[1].Handle)
}

func TestRunCycleChecksEveryProfile(t *testing.T) {
	m, db := newTestMonitor(t,
		"https://tise.com/profiles/alice",
		"https://tise.com/profiles/bob",
	)
	m.Bootstrap()

	require.NoError(t, m.RunCycle(context.Background()))

	profiles, err := db.GetActiveProfiles()
	require.NoError(t, err)
	for _, p := range profiles {
		assert.False(t, p.LastChecked.IsZero(), "profile %s was not checked", p.Handle)
	}
}

func TestRunCycleWithNoProfilesIsANoOp(t *testing.T) {
	m, _ := newTestMonitor(t)
	require.NoError(t, m.RunCycle(context.Background()))
}

func TestRunCycleHonorsCancellation(t *testing.T) {
	m, _ := newTestMonitor(t, "https://tise.com/profiles/alice")
	m.Bootstrap()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.RunCycle(ctx), context.Canceled)
}

// flappySource serves one listing for alice.
type flappySource struct{}

func (flappySource) Discover(_ context.Context, handle string) ([]tise.RawListing, error) {
	if handle != "alice" {
		return nil, nil
	}
	return []tise.RawListing{{
		ID:        "x1",
		ShortCode: "x1code",
		Title:     "Wool sweater",
		Price:     9900,
		ImageSets: []tise.RawImageSet{{Original: "https://cdn.tise.com/images/abc12345-x/orig"}},
		Raw:       []byte(`{"id":"x1","a":"x1code"}`),
	}}, nil
}

// flakyFetcher fails every download until healed.
type flakyFetcher struct {
	mu   sync.Mutex
	body []byte
}

func (f *flakyFetcher) heal(body []byte) {
	f.mu.Lock()
	f.body = body
	f.mu.Unlock()
}

func (f *flakyFetcher) Download(context.Context, string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.body == nil {
		return nil, "", os.ErrDeadlineExceeded
	}
	return f.body, "image/jpeg", nil
}

func TestRunCycleRecoversPendingListings(t *testing.T) {
	fetcher := &flakyFetcher{}
	m, db := newTestMonitorWith(t, flappySource{}, fetcher, "https://tise.com/profiles/alice")
	m.Bootstrap()

	// Cycle 1: the listing is admitted but its image host is down, so it
	// stays pending.
	require.NoError(t, m.RunCycle(context.Background()))
	l, err := db.GetListing("https://tise.com/t/x1code")
	require.NoError(t, err)
	require.NotNil(t, l)
	require.False(t, l.Downloaded)

	// The image host comes back; the next cycle re-materializes the
	// pending listing even though discovery admits nothing new.
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10)), nil))
	fetcher.heal(buf.Bytes())

	require.NoError(t, m.RunCycle(context.Background()))
	l, err = db.GetListing("https://tise.com/t/x1code")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.True(t, l.Downloaded)

	pending, err := db.GetPendingListings()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// recordingLogger captures error messages for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (r *recordingLogger) record(msg string) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

func (r *recordingLogger) seen(msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.errors {
		if m == msg {
			return true
		}
	}
	return false
}

func (r *recordingLogger) Debug(string)                                         {}
func (r *recordingLogger) Info(string)                                          {}
func (r *recordingLogger) Warn(string)                                          {}
func (r *recordingLogger) Error(msg string)                                     { r.record(msg) }
func (r *recordingLogger) Fatal(msg string)                                     { r.record(msg) }
func (r *recordingLogger) WithField(string, interface{}) logger.Logger          { return r }
func (r *recordingLogger) WithFields(map[string]interface{}) logger.Logger      { return r }
func (r *recordingLogger) WithError(error) logger.Logger                        { return r }
func (r *recordingLogger) DebugWithFields(string, map[string]interface{})       {}
func (r *recordingLogger) InfoWithFields(string, map[string]interface{})        {}
func (r *recordingLogger) WarnWithFields(string, map[string]interface{})        {}
func (r *recordingLogger) ErrorWithFields(msg string, _ map[string]interface{}) { r.record(msg) }

func TestRunLogsCycleFailuresAndKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Profiles = []string{"https://tise.com/profiles/alice"}
	cfg.RateLimit.ProfileDelay = 0
	cfg.Monitor.CheckInterval = 10 * time.Millisecond
	cfg.Output.DownloadsRoot = filepath.Join(dir, "downloads")
	cfg.Store.DatabasePath = filepath.Join(dir, "test.db")

	db, err := store.Open(cfg.Store.DatabasePath)
	require.NoError(t, err)

	mat, err := downloader.NewMaterializer(noopFetcher{}, cfg.Output.DownloadsRoot, 2000, 85, logger.NewNopLogger())
	require.NoError(t, err)
	engine := scraper.NewEngine(emptySource{}, db, mat, cfg.Tise.SiteURL, logger.NewNopLogger())

	rec := &recordingLogger{}
	m := New(cfg, db, engine, rec)

	// A closed store makes every cycle fail.
	require.NoError(t, db.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = m.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, rec.seen("profile check cycle failed"), "cycle failure was not logged")
}

func TestCollectStats(t *testing.T) {
	m, _ := newTestMonitor(t, "https://tise.com/profiles/alice")
	m.Bootstrap()

	stats, err := m.CollectStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Store.ActiveProfiles)
	assert.Zero(t, stats.FileCount)
	assert.NotEmpty(t, stats.Root)
}
