package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatelog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_PORT", "")
	cfg := Load()
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.SyncSkip)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.CloudinaryConfigured())
}

func TestPrecedence(t *testing.T) {
	path := writeFile(t, `
HTTP_PORT: 9000
rate_limit_per_min: 30
SYNC_SKIP: false
ACCESS_TTL: 5m
CORS_ORIGINS:
  - https://gate.campus.test
  - https://admin.campus.test
TIMEZONE: Europe/London
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("RATE_LIMIT_PER_MIN", "")

	cfg := Load()
	assert.Equal(t, "9100", cfg.HTTPPort, "env wins over file")
	assert.Equal(t, 30, cfg.RateLimitPerMin, "file wins over default")
	assert.False(t, cfg.SyncSkip)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, []string{"https://gate.campus.test", "https://admin.campus.test"}, cfg.CORSOrigins)
	assert.Equal(t, "Europe/London", cfg.Location().String())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ACCESS_TTL", "soon")
	t.Setenv("AUTO_MIGRATE", "maybe")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("TIMEZONE", "Mars/Olympus")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestMissingFileIsIgnored(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	cfg := Load()
	assert.Equal(t, "gatelog", cfg.JWTIssuer)
}
