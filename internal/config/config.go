// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	DBURL                string        `mapstructure:"DB_URL"`
	HTTPAddr             string        `mapstructure:"HTTP_ADDR"`
	GithubToken          string        `mapstructure:"GITHUB_TOKEN"`
	ReposToSync          []string      `mapstructure:"REPOS_TO_SYNC"`
	PollInterval         time.Duration `mapstructure:"POLL_INTERVAL"`
	SnapshotInterval     time.Duration `mapstructure:"SNAPSHOT_INTERVAL"`
	SeedDemo             bool          `mapstructure:"SEED_DEMO"`
	DefaultSyncSinceDate string        `mapstructure:"DEFAULT_SYNC_SINCE_DATE"`
	DefaultSyncSinceTime time.Time     `mapstructure:"-"`
}

// PollingEnabled reports whether the GitHub activity poller should run.
func (c *Config) PollingEnabled() bool {
	return len(c.ReposToSync) > 0
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("POLL_INTERVAL", "10m")
	viper.SetDefault("SNAPSHOT_INTERVAL", "24h")
	viper.SetDefault("SEED_DEMO", false)
	viper.SetDefault("DEFAULT_SYNC_SINCE_DATE", "2024-01-01T00:00:00Z")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse DefaultSyncSinceDate
	parsedTime, err := time.Parse(time.RFC3339, cfg.DefaultSyncSinceDate)
	if err != nil {
		return nil, errors.New("DEFAULT_SYNC_SINCE_DATE must be in RFC3339 format (e.g. 2024-01-01T00:00:00Z)")
	}
	cfg.DefaultSyncSinceTime = parsedTime

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.PollingEnabled() && cfg.GithubToken == "" {
		return nil, errors.New("GITHUB_TOKEN is required when REPOS_TO_SYNC is set")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("POLL_INTERVAL must be a positive duration")
	}
	if cfg.SnapshotInterval <= 0 {
		return nil, errors.New("SNAPSHOT_INTERVAL must be a positive duration")
	}

	return &cfg, nil
}
