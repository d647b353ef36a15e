// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Scrape     ScrapeConfig     `mapstructure:"scrape"`
	Probe      ProbeConfig      `mapstructure:"probe"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Enrich     EnrichConfig     `mapstructure:"enrich"`
	Queue      QueueConfig      `mapstructure:"queue"`
	DB         DBConfig         `mapstructure:"db"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig holds the shared key protecting the internal consumer endpoint.
type AuthConfig struct {
	InternalKey string `mapstructure:"internal_key"`
}

// ScrapeConfig governs the metadata scraper and media classifier.
type ScrapeConfig struct {
	UserAgent             string   `mapstructure:"user_agent"`
	TimeoutSeconds        int      `mapstructure:"timeout_seconds"`
	OGImagePreferredSites []string `mapstructure:"og_image_preferred_sites"`
	OGImageSkipSites      []string `mapstructure:"og_image_skip_sites"`
}

// ProbeConfig bounds the embeddability probe.
type ProbeConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRedirects   int `mapstructure:"max_redirects"`
}

// ScreenshotConfig configures the headless capture subsystem.
type ScreenshotConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	MaxParallel       int  `mapstructure:"max_parallel"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
	Width             int  `mapstructure:"width"`
	Height            int  `mapstructure:"height"`
}

// EnrichConfig controls the enrichment consumer batch loop.
type EnrichConfig struct {
	BatchSize           int `mapstructure:"batch_size"`
	VisibilitySeconds   int `mapstructure:"visibility_seconds"`
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds"`
	EnqueueWorkers      int `mapstructure:"enqueue_workers"`
	EnqueueDepth        int `mapstructure:"enqueue_depth"`
}

// QueueConfig selects and names the enrichment queue backend.
type QueueConfig struct {
	Provider       string `mapstructure:"provider"`
	Name           string `mapstructure:"name"`
	Depth          int    `mapstructure:"depth"`
	ProjectID      string `mapstructure:"project_id"`
	TopicID        string `mapstructure:"topic_id"`
	SubscriptionID string `mapstructure:"subscription_id"`
}

// DBConfig selects the row-store backend.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
}

// StorageConfig selects the blob storage backend for derived assets.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	BaseURL   string `mapstructure:"base_url"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LINKHOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scrape.user_agent", "linkhoard-bot/1.0 (+https://github.com/linkhoard/linkhoard)")
	v.SetDefault("scrape.timeout_seconds", 15)
	v.SetDefault("scrape.og_image_preferred_sites", []string{})
	v.SetDefault("scrape.og_image_skip_sites", []string{})
	v.SetDefault("probe.timeout_seconds", 5)
	v.SetDefault("probe.max_redirects", 5)
	v.SetDefault("screenshot.enabled", true)
	v.SetDefault("screenshot.max_parallel", 2)
	v.SetDefault("screenshot.nav_timeout_seconds", 25)
	v.SetDefault("screenshot.width", 1280)
	v.SetDefault("screenshot.height", 800)
	v.SetDefault("enrich.batch_size", 10)
	v.SetDefault("enrich.visibility_seconds", 300)
	v.SetDefault("enrich.fetch_timeout_seconds", 15)
	v.SetDefault("enrich.enqueue_workers", 2)
	v.SetDefault("enrich.enqueue_depth", 64)
	v.SetDefault("queue.provider", "memory")
	v.SetDefault("queue.name", "add-bookmark-url-queue")
	v.SetDefault("queue.depth", 256)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.prefix", "assets")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.InternalKey == "" {
		return fmt.Errorf("auth.internal_key must be set")
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.timeout_seconds must be > 0")
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return fmt.Errorf("probe.timeout_seconds must be > 0")
	}
	if c.Enrich.BatchSize <= 0 {
		return fmt.Errorf("enrich.batch_size must be > 0")
	}
	if c.Screenshot.Enabled && c.Screenshot.MaxParallel <= 0 {
		return fmt.Errorf("screenshot.max_parallel must be > 0 when screenshots are enabled")
	}
	switch c.Queue.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("queue.provider is 'postgres' but db.dsn is not set")
		}
	case "pubsub":
		if c.Queue.ProjectID == "" || c.Queue.TopicID == "" || c.Queue.SubscriptionID == "" {
			return fmt.Errorf("queue.provider is 'pubsub' but project_id, topic_id or subscription_id is not set")
		}
	default:
		return fmt.Errorf("unknown queue provider: %s", c.Queue.Provider)
	}
	switch c.DB.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.provider is 'postgres' but db.dsn is not set")
		}
	default:
		return fmt.Errorf("unknown db provider: %s", c.DB.Provider)
	}
	switch c.Storage.Provider {
	case "memory":
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.provider is 'local' but storage.local_dir is not set")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.provider is 'gcs' but storage.gcs_bucket is not set")
		}
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	return nil
}

// ScrapeTimeout returns the scrape timeout as a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scrape.TimeoutSeconds) * time.Second
}

// ProbeTimeout returns the embeddability probe timeout as a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// Visibility returns the queue visibility timeout as a duration.
func (c Config) Visibility() time.Duration {
	return time.Duration(c.Enrich.VisibilitySeconds) * time.Second
}
