package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  internal_key: secret
scrape:
  user_agent: linkhoard-test
  timeout_seconds: 20
  og_image_preferred_sites: ["x.com", "twitter.com"]
  og_image_skip_sites: ["example.org"]
probe:
  timeout_seconds: 3
  max_redirects: 2
screenshot:
  enabled: true
  max_parallel: 1
  nav_timeout_seconds: 10
enrich:
  batch_size: 5
  visibility_seconds: 60
queue:
  provider: memory
  name: add-bookmark-url-queue
db:
  provider: memory
storage:
  provider: local
  local_dir: /tmp/assets
  base_url: http://localhost:8080/assets
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "secret", cfg.Auth.InternalKey)
	require.Equal(t, "linkhoard-test", cfg.Scrape.UserAgent)
	require.Equal(t, []string{"x.com", "twitter.com"}, cfg.Scrape.OGImagePreferredSites)
	require.Equal(t, 3*time.Second, cfg.ProbeTimeout())
	require.Equal(t, 20*time.Second, cfg.ScrapeTimeout())
	require.Equal(t, time.Minute, cfg.Visibility())
	require.Equal(t, 5, cfg.Enrich.BatchSize)
	require.Equal(t, "add-bookmark-url-queue", cfg.Queue.Name)
	require.False(t, cfg.Logging.Development)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LINKHOARD_AUTH_INTERNAL_KEY", "k")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "add-bookmark-url-queue", cfg.Queue.Name)
	require.Equal(t, 10, cfg.Enrich.BatchSize)
	require.Equal(t, 5*time.Second, cfg.ProbeTimeout())
	require.Equal(t, 5, cfg.Probe.MaxRedirects)
	require.Equal(t, "memory", cfg.Queue.Provider)
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	valid := Config{
		Server:     ServerConfig{Port: 8080},
		Auth:       AuthConfig{InternalKey: "k"},
		Scrape:     ScrapeConfig{TimeoutSeconds: 15},
		Probe:      ProbeConfig{TimeoutSeconds: 5, MaxRedirects: 5},
		Screenshot: ScreenshotConfig{Enabled: true, MaxParallel: 1},
		Enrich:     EnrichConfig{BatchSize: 10},
		Queue:      QueueConfig{Provider: "memory"},
		DB:         DBConfig{Provider: "memory"},
		Storage:    StorageConfig{Provider: "memory"},
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"missing internal key", func(c *Config) { c.Auth.InternalKey = "" }},
		{"zero scrape timeout", func(c *Config) { c.Scrape.TimeoutSeconds = 0 }},
		{"zero probe timeout", func(c *Config) { c.Probe.TimeoutSeconds = 0 }},
		{"zero batch size", func(c *Config) { c.Enrich.BatchSize = 0 }},
		{"screenshots without parallelism", func(c *Config) { c.Screenshot.MaxParallel = 0 }},
		{"postgres queue without dsn", func(c *Config) { c.Queue.Provider = "postgres" }},
		{"pubsub queue without topic", func(c *Config) { c.Queue.Provider = "pubsub" }},
		{"unknown queue provider", func(c *Config) { c.Queue.Provider = "kafka" }},
		{"postgres db without dsn", func(c *Config) { c.DB.Provider = "postgres" }},
		{"unknown db provider", func(c *Config) { c.DB.Provider = "oracle" }},
		{"local storage without dir", func(c *Config) { c.Storage.Provider = "local" }},
		{"gcs storage without bucket", func(c *Config) { c.Storage.Provider = "gcs" }},
		{"unknown storage provider", func(c *Config) { c.Storage.Provider = "s3" }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
