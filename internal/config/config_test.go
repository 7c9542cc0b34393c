// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadWithEnv(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for k, v := range env {
		t.Setenv(k, v)
	}
	return LoadConfig()
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadWithEnv(t, map[string]string{
		"DB_URL": "postgres://localhost:5432/devsprint",
	})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Minute, cfg.PollInterval)
	assert.Equal(t, 24*time.Hour, cfg.SnapshotInterval)
	assert.False(t, cfg.SeedDemo)
	assert.False(t, cfg.PollingEnabled())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.DefaultSyncSinceTime)
}

func TestLoadConfigRequiresDBURL(t *testing.T) {
	_, err := loadWithEnv(t, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL")
}

func TestLoadConfigRequiresTokenWhenPolling(t *testing.T) {
	_, err := loadWithEnv(t, map[string]string{
		"DB_URL":        "postgres://localhost:5432/devsprint",
		"REPOS_TO_SYNC": "acme/app",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
}

func TestLoadConfigRejectsBadSinceDate(t *testing.T) {
	_, err := loadWithEnv(t, map[string]string{
		"DB_URL":                  "postgres://localhost:5432/devsprint",
		"DEFAULT_SYNC_SINCE_DATE": "yesterday",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RFC3339")
}
