// Package config loads scraper configuration from defaults, a YAML file, and
// environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the Tise profile mirror.
type Config struct {
	// Tise API settings
	Tise TiseConfig `yaml:"tise" json:"tise"`

	// Profiles to monitor, as full profile URLs
	Profiles []string `yaml:"profiles" json:"profiles"`

	// Rate limiting and retry behaviour
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Download output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Persisted store settings
	Store StoreConfig `yaml:"store" json:"store"`

	// Listing discovery settings
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Monitoring loop settings
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TiseConfig holds upstream API settings.
type TiseConfig struct {
	BaseURL    string            `yaml:"base_url" json:"base_url"`
	SiteURL    string            `yaml:"site_url" json:"site_url"`
	Timeout    time.Duration     `yaml:"timeout" json:"timeout"`
	UserAgents []string          `yaml:"user_agents" json:"user_agents"`
	Headers    map[string]string `yaml:"headers" json:"headers"`
}

// RateLimitConfig holds retry and courtesy-delay settings.
type RateLimitConfig struct {
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	RequestDelay   time.Duration `yaml:"request_delay" json:"request_delay"`
	RequestJitter  time.Duration `yaml:"request_jitter" json:"request_jitter"`
	ProfileDelay   time.Duration `yaml:"profile_delay" json:"profile_delay"`
	MaxPages       int           `yaml:"max_pages" json:"max_pages"`
	BackoffBase    time.Duration `yaml:"backoff_base" json:"backoff_base"`
	BackoffFactor  float64       `yaml:"backoff_factor" json:"backoff_factor"`
}

// OutputConfig holds download directory settings.
type OutputConfig struct {
	DownloadsRoot string `yaml:"downloads_root" json:"downloads_root"`
	MaxImageEdge  int    `yaml:"max_image_edge" json:"max_image_edge"`
	JPEGQuality   int    `yaml:"jpeg_quality" json:"jpeg_quality"`
	RetentionDays int    `yaml:"retention_days" json:"retention_days"`
}

// StoreConfig holds persisted-store settings.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// DiscoveryConfig selects the listing discovery source.
type DiscoveryConfig struct {
	// Source is "api" or "browser"
	Source         string        `yaml:"source" json:"source"`
	BrowserTimeout time.Duration `yaml:"browser_timeout" json:"browser_timeout"`
}

// MonitorConfig holds the scheduling loop settings.
type MonitorConfig struct {
	CheckInterval time.Duration `yaml:"check_interval" json:"check_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Tise: TiseConfig{
			BaseURL: "https://tise.com",
			SiteURL: "https://tise.com",
			Timeout: 30 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			Headers: map[string]string{
				"Accept":          "application/json, text/plain, */*",
				"Accept-Language": "en,en;q=0.9",
				"tise-system-os":  "web",
				"Referer":         "https://tise.com/",
			},
		},
		RateLimit: RateLimitConfig{
			MaxRetries:    3,
			RequestDelay:  2 * time.Second,
			RequestJitter: time.Second,
			ProfileDelay:  2 * time.Second,
			MaxPages:      10,
			BackoffBase:   time.Second,
			BackoffFactor: 2.0,
		},
		Output: OutputConfig{
			DownloadsRoot: "data/downloads",
			MaxImageEdge:  2000,
			JPEGQuality:   85,
			RetentionDays: 0, // 0 disables retention cleanup
		},
		Store: StoreConfig{
			DatabasePath: "data/tise.db",
		},
		Discovery: DiscoveryConfig{
			Source:         "api",
			BrowserTimeout: 60 * time.Second,
		},
		Monitor: MonitorConfig{
			CheckInterval: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the given config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv applies TISESCRAPER_* environment overrides. A .env file in the
// working directory is loaded first when present.
func (c *Config) LoadFromEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("TISESCRAPER_BASE_URL"); v != "" {
		c.Tise.BaseURL = v
	}
	if v := os.Getenv("TISESCRAPER_DOWNLOADS_ROOT"); v != "" {
		c.Output.DownloadsRoot = v
	}
	if v := os.Getenv("TISESCRAPER_DATABASE_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("TISESCRAPER_PROFILES"); v != "" {
		var profiles []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				profiles = append(profiles, p)
			}
		}
		c.Profiles = profiles
	}
	if v := os.Getenv("TISESCRAPER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.MaxRetries = n
		}
	}
	if v := os.Getenv("TISESCRAPER_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Monitor.CheckInterval = d
		}
	}
	if v := os.Getenv("TISESCRAPER_DISCOVERY_SOURCE"); v != "" {
		c.Discovery.Source = v
	}
	if v := os.Getenv("TISESCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Load builds the effective configuration: defaults, then the optional YAML
// file, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Tise.BaseURL == "" {
		return fmt.Errorf("tise.base_url must not be empty")
	}
	if len(c.Tise.UserAgents) == 0 {
		return fmt.Errorf("tise.user_agents must contain at least one entry")
	}
	if c.RateLimit.MaxRetries < 1 {
		return fmt.Errorf("rate_limit.max_retries must be at least 1")
	}
	if c.RateLimit.MaxPages < 1 {
		return fmt.Errorf("rate_limit.max_pages must be at least 1")
	}
	if c.Output.DownloadsRoot == "" {
		return fmt.Errorf("output.downloads_root must not be empty")
	}
	if c.Output.MaxImageEdge < 1 {
		return fmt.Errorf("output.max_image_edge must be positive")
	}
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path must not be empty")
	}
	switch c.Discovery.Source {
	case "api", "browser":
	default:
		return fmt.Errorf("discovery.source must be \"api\" or \"browser\", got %q", c.Discovery.Source)
	}
	return nil
}
