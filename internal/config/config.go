// Package config loads the resolver's YAML configuration. Settings
// from the config file seed the CLI flag defaults; flags win when both
// are set.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SonarrConfig holds the optional Sonarr integration settings.
type SonarrConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Days   int    `yaml:"days"`
}

// MediuxConfig holds MediUX credentials and scraper driver settings.
type MediuxConfig struct {
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	Nickname         string `yaml:"nickname"`
	ProfilePath      string `yaml:"profile_path"`
	ChromedriverPath string `yaml:"chromedriver_path"`
	Headless         bool   `yaml:"headless"`
	UseScrape        bool   `yaml:"use_scrape"`
}

// Config is the on-disk configuration, read from config/config.yml
// under the scan root.
type Config struct {
	APIBase string `yaml:"api_base"`
	APIKey  string `yaml:"api_key"`

	CacheDB         string `yaml:"cache_db"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`

	CreateBackup   bool   `yaml:"create_backup"`
	RequireProbeOK bool   `yaml:"require_probe_ok"`
	SchemaPath     string `yaml:"schema_path"`

	Sonarr SonarrConfig `yaml:"sonarr"`
	Mediux MediuxConfig `yaml:"mediux"`

	EnableAuditLog     bool `yaml:"enable_audit_log"`
	AuditRetentionDays int  `yaml:"audit_retention_days"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		APIBase:            "https://api.mediux.pro",
		CacheDB:            "probe_cache.db",
		CacheTTLSeconds:    24 * 60 * 60,
		CreateBackup:       true,
		Mediux:             MediuxConfig{Headless: true},
		Sonarr:             SonarrConfig{Days: 7},
		EnableAuditLog:     true,
		AuditRetentionDays: 30,
	}
}

// Path returns the config file location under root.
func Path(root string) string {
	return filepath.Join(root, "config", "config.yml")
}

// Load reads the config under root. A missing or unparseable file
// silently falls back to defaults; the resolver must run usefully with
// no configuration at all.
func Load(root string) *Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path(root))
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig()
	}

	defaults := DefaultConfig()
	if cfg.APIBase == "" {
		cfg.APIBase = defaults.APIBase
	}
	if cfg.CacheDB == "" {
		cfg.CacheDB = defaults.CacheDB
	}
	if cfg.CacheTTLSeconds == 0 {
		cfg.CacheTTLSeconds = defaults.CacheTTLSeconds
	}
	if cfg.Sonarr.Days == 0 {
		cfg.Sonarr.Days = defaults.Sonarr.Days
	}
	if cfg.AuditRetentionDays == 0 {
		cfg.AuditRetentionDays = defaults.AuditRetentionDays
	}

	return cfg
}

// Save writes the configuration to its location under root.
func (cfg *Config) Save(root string) error {
	path := Path(root)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
