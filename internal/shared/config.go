package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Database    DatabaseConfig    `toml:"database"`
	Import      ImportConfig      `toml:"import"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains client-credentials settings for the remote catalog.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
}

// CatalogConfig describes the remote catalog endpoint.
type CatalogConfig struct {
	BaseURL        string  `toml:"base_url"`
	Market         string  `toml:"market"`
	RateLimit      float64 `toml:"rate_limit"` // requests per second
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ImportConfig holds the whole-run retry policy and bulk import concurrency.
type ImportConfig struct {
	MaxRetries               int `toml:"max_retries"`
	HydrationBackoffSeconds  int `toml:"hydration_backoff_seconds"`
	ConnectionBackoffSeconds int `toml:"connection_backoff_seconds"`
	Workers                  int `toml:"workers"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the importer cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Catalog.BaseURL == "":
		return fmt.Errorf("%w: catalog.base_url is required", ErrInvalidConfig)
	case c.Catalog.RateLimit <= 0:
		return fmt.Errorf("%w: catalog.rate_limit must be positive", ErrInvalidConfig)
	case c.Catalog.TimeoutSeconds <= 0:
		return fmt.Errorf("%w: catalog.timeout_seconds must be positive", ErrInvalidConfig)
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	case c.Import.MaxRetries < 0:
		return fmt.Errorf("%w: import.max_retries cannot be negative", ErrInvalidConfig)
	case c.Import.HydrationBackoffSeconds < 0 || c.Import.ConnectionBackoffSeconds < 0:
		return fmt.Errorf("%w: import backoff cannot be negative", ErrInvalidConfig)
	case c.Import.Workers <= 0:
		return fmt.Errorf("%w: import.workers must be positive", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Timeout returns the per-request timeout for the remote catalog.
func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HydrationBackoff is the per-retry step for hydration failures.
func (c ImportConfig) HydrationBackoff() time.Duration {
	return time.Duration(c.HydrationBackoffSeconds) * time.Second
}

// ConnectionBackoff is the fixed delay after a connection failure.
func (c ImportConfig) ConnectionBackoff() time.Duration {
	return time.Duration(c.ConnectionBackoffSeconds) * time.Second
}
