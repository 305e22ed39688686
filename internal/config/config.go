// Package config loads pipeline configuration from an optional YAML file
// with environment-variable fallbacks for API credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds the per-adapter knobs.
type ProviderConfig struct {
	Enabled    bool          `yaml:"enabled"`
	APIKey     string        `yaml:"api_key"` // falls back to env var
	Timeout    time.Duration `yaml:"timeout"`
	MaxResults int           `yaml:"max_results"`
}

// VenuesConfig configures the scraped venue snapshot cache.
type VenuesConfig struct {
	Enabled         bool          `yaml:"enabled"`
	SnapshotPath    string        `yaml:"snapshot_path"` // JSON file, authoritative when newer
	DBPath          string        `yaml:"db_path"`       // optional sqlite copy
	StaleAfter      time.Duration `yaml:"stale_after"`
	RefreshCooldown time.Duration `yaml:"refresh_cooldown"`
	RefreshCommand  []string      `yaml:"refresh_command"` // external scraper invocation
}

// Config is the root configuration.
type Config struct {
	DefaultLocation string        `yaml:"default_location"`
	DefaultLimit    int           `yaml:"default_limit"`
	DaysAhead       int           `yaml:"days_ahead"` // 0 disables the window filter
	ResponseTTL     time.Duration `yaml:"response_ttl"`
	MetricsAddr     string        `yaml:"metrics_addr"` // empty disables /metrics

	SerpAPI      ProviderConfig `yaml:"serpapi"`
	Exa          ProviderConfig `yaml:"exa"`
	Perplexity   ProviderConfig `yaml:"perplexity"`
	PredictHQ    ProviderConfig `yaml:"predicthq"`
	Ticketmaster ProviderConfig `yaml:"ticketmaster"`
	Venues       VenuesConfig   `yaml:"venues"`
}

// Default returns the built-in configuration. Search-derived sources get the
// long end of the timeout range, structured APIs the short end.
func Default() *Config {
	return &Config{
		DefaultLocation: "San Francisco, CA",
		DefaultLimit:    50,
		ResponseTTL:     time.Hour,
		SerpAPI: ProviderConfig{
			Enabled:    true,
			Timeout:    30 * time.Second,
			MaxResults: 100,
		},
		Exa: ProviderConfig{
			Enabled:    true,
			Timeout:    30 * time.Second,
			MaxResults: 100,
		},
		Perplexity: ProviderConfig{
			Enabled:    true,
			Timeout:    30 * time.Second,
			MaxResults: 100,
		},
		PredictHQ: ProviderConfig{
			Enabled:    true,
			Timeout:    10 * time.Second,
			MaxResults: 100,
		},
		Ticketmaster: ProviderConfig{
			Enabled:    true,
			Timeout:    10 * time.Second,
			MaxResults: 100,
		},
		Venues: VenuesConfig{
			Enabled:         true,
			SnapshotPath:    "data/venue-snapshot.json",
			StaleAfter:      24 * time.Hour,
			RefreshCooldown: 30 * time.Minute,
		},
	}
}

// Load reads configuration from path, overlaying the defaults. An empty path
// returns the defaults. API keys absent from the file are pulled from the
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills in API keys from the environment when the file left them
// empty. File values win over the environment.
func (c *Config) applyEnv() {
	fromEnv := func(current, envVar string) string {
		if current != "" {
			return current
		}
		return os.Getenv(envVar)
	}
	c.SerpAPI.APIKey = fromEnv(c.SerpAPI.APIKey, "SERPAPI_API_KEY")
	c.Exa.APIKey = fromEnv(c.Exa.APIKey, "EXA_API_KEY")
	// Perplexity documents both spellings.
	c.Perplexity.APIKey = fromEnv(fromEnv(c.Perplexity.APIKey, "PERPLEXITY_API_KEY"), "PPLX_API_KEY")
	c.PredictHQ.APIKey = fromEnv(c.PredictHQ.APIKey, "PREDICTHQ_API_KEY")
	c.Ticketmaster.APIKey = fromEnv(c.Ticketmaster.APIKey, "TICKETMASTER_API_KEY")
}
