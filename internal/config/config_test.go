package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JATOUR_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Empty(t, cfg.Feeds)
	assert.Equal(t, 10*time.Second, cfg.FeedTimeout)
	assert.Equal(t, time.Minute, cfg.CheckSweepInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JATOUR_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MERCHANT_FEED_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.FeedTimeout)
}

func TestLoad_BackupRequiresCredentials(t *testing.T) {
	t.Setenv("JATOUR_DATA_DIR", t.TempDir())
	t.Setenv("BACKUP_BUCKET", "jatour-backups")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestParseFeeds(t *testing.T) {
	feeds := parseFeeds("traveloka=https://api.traveloka.example/deals, gofood=https://api.gofood.example/v2/deals")
	require.Len(t, feeds, 2)
	assert.Equal(t, FeedConfig{Name: "traveloka", URL: "https://api.traveloka.example/deals"}, feeds[0])
	assert.Equal(t, "gofood", feeds[1].Name)

	assert.Empty(t, parseFeeds(""))
	assert.Empty(t, parseFeeds("malformed-entry"))
	assert.Len(t, parseFeeds("ok=http://x,=missing-name,missing-url="), 1)
}
