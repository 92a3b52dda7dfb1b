package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", validSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "authcore", cfg.Issuer)
	require.Equal(t, time.Hour, cfg.AccessTTL)
	require.Equal(t, 12*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 60*time.Second, cfg.Leeway)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.True(t, cfg.CookieSecure)
	require.Equal(t, 5, cfg.RateLimits.Strict.RequestsPerWindow)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
issuer: from-file
audience: file-users
access_ttl: 30m
refresh_ttl: 24h
database_driver: postgres
database_dsn: postgres://auth@localhost/auth
cookie_secure: false
rate_limits:
  strict:
    requests: 10
    window: 1m
    burst: 2
`), 0600))

	t.Setenv("AUTH_CONFIG_FILE", path)
	t.Setenv("AUTH_SECRET", validSecret)
	t.Setenv("AUTH_ISSUER", "from-env")
	t.Setenv("AUTH_LEEWAY", "5")
	t.Setenv("RATELIMIT_STRICT_BURST", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "from-env", cfg.Issuer, "environment wins over the file")
	require.Equal(t, "file-users", cfg.Audience)
	require.Equal(t, 30*time.Minute, cfg.AccessTTL)
	require.Equal(t, 24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 5*time.Second, cfg.Leeway)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.False(t, cfg.CookieSecure)
	require.Equal(t, 10, cfg.RateLimits.Strict.RequestsPerWindow)
	require.Equal(t, 3, cfg.RateLimits.Strict.Burst)
	require.Equal(t, time.Minute, cfg.RateLimits.Strict.Window)
}

func TestLoadConfigSecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte(validSecret+"\n"), 0600))
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("AUTH_SECRET_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, validSecret, cfg.Secret)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("AUTH_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Secret = validSecret

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing secret", func(c *Config) { c.Secret = "" }, "AUTH_SECRET"},
		{"short secret", func(c *Config) { c.Secret = "short" }, "at least 32 bytes"},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }, "access token lifetime"},
		{"negative refresh ttl", func(c *Config) { c.RefreshTTL = -time.Second }, "refresh token lifetime"},
		{"negative leeway", func(c *Config) { c.Leeway = -time.Second }, "leeway"},
		{"postgres without dsn", func(c *Config) { c.DatabaseDriver = "postgres" }, "AUTH_DATABASE_DSN"},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, "unknown database driver"},
		{"empty audience", func(c *Config) { c.Audience = "" }, "audience"},
	}

	require.NoError(t, valid.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	_, err := New(cfg)
	require.Error(t, err)
}

func TestNewWiresSQLiteAndMemoryDenylist(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Secret = validSecret
	cfg.DatabaseFile = filepath.Join(dir, "auth.db")
	cfg.PepperFile = filepath.Join(dir, "pepper")
	cfg.LogLevel = "error"

	application, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.closeBackends() })

	require.NotNil(t, application.router)
	require.NotNil(t, application.housekeepingService)
	require.FileExists(t, cfg.PepperFile)

	rec := httptest.NewRecorder()
	application.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
