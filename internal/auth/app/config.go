package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/httpx"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"gopkg.in/yaml.v3"
)

// MinSecretLength is the shortest HMAC secret accepted, in bytes.
const MinSecretLength = 32

type RateLimits struct {
	Strict   httpx.RateLimitConfig `yaml:"strict"`
	Moderate httpx.RateLimitConfig `yaml:"moderate"`
	Public   httpx.RateLimitConfig `yaml:"public"`
}

type Config struct {
	Secret     string `yaml:"-"`           // Required: HMAC signing secret, env only (AUTH_SECRET)
	SecretFile string `yaml:"secret_file"` // Alternative to Secret: file holding the secret

	Issuer     string        `yaml:"issuer"`      // iss of every token (default: authcore)
	Audience   string        `yaml:"audience"`    // aud of every token (default: authcore-users)
	AccessTTL  time.Duration `yaml:"access_ttl"`  // default: 1h
	RefreshTTL time.Duration `yaml:"refresh_ttl"` // default: 12h
	Leeway     time.Duration `yaml:"leeway"`      // clock skew tolerance on exp/nbf (default: 60s)

	DatabaseDriver string `yaml:"database_driver"` // sqlite or postgres (default: sqlite)
	DatabaseFile   string `yaml:"database_file"`   // SQLite database file (default: ./auth.db)
	DatabaseDSN    string `yaml:"database_dsn"`    // Postgres connection string
	PepperFile     string `yaml:"pepper_file"`     // password pepper, created on first start (default: ./pepper)
	RedisAddr      string `yaml:"redis_addr"`      // Optional: shared denylist, in-memory when empty
	CookieSecure   bool   `yaml:"cookie_secure"`   // Secure attribute on the refresh cookie (default: true)

	Env                  string        `yaml:"env"`        // dev, staging, prod (default: dev)
	LogLevel             string        `yaml:"log_level"`  // debug, info, warn, error (default: info)
	LogFormat            string        `yaml:"log_format"` // json, text (default: json)
	Port                 int           `yaml:"port"`       // default: 8080
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"`

	RateLimits RateLimits `yaml:"rate_limits"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Issuer:               "authcore",
		Audience:             "authcore-users",
		AccessTTL:            jwtx.DefaultAccessTokenTTL,
		RefreshTTL:           jwtx.DefaultRefreshTokenTTL,
		Leeway:               jwtx.DefaultLeeway,
		DatabaseDriver:       "sqlite",
		DatabaseFile:         "auth.db",
		PepperFile:           "pepper",
		CookieSecure:         true,
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: time.Hour,
		RateLimits: RateLimits{
			Strict:   httpx.StrictLimit,
			Moderate: httpx.ModerateLimit,
			Public:   httpx.PublicLimit,
		},
	}
}

// LoadConfig layers the optional YAML file named by AUTH_CONFIG_FILE and
// then the environment over DefaultConfig, and resolves the secret.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("AUTH_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.Secret = os.Getenv("AUTH_SECRET")
	cfg.SecretFile = getEnvOrDefault("AUTH_SECRET_FILE", cfg.SecretFile)
	cfg.Issuer = getEnvOrDefault("AUTH_ISSUER", cfg.Issuer)
	cfg.Audience = getEnvOrDefault("AUTH_AUDIENCE", cfg.Audience)
	cfg.AccessTTL = getEnvDurationOrDefault("AUTH_ACCESS_TTL", cfg.AccessTTL)
	cfg.RefreshTTL = getEnvDurationOrDefault("AUTH_REFRESH_TTL", cfg.RefreshTTL)
	cfg.Leeway = getEnvDurationOrDefault("AUTH_LEEWAY", cfg.Leeway)
	cfg.DatabaseDriver = getEnvOrDefault("AUTH_DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.DatabaseFile = getEnvOrDefault("AUTH_DATABASE_FILE", cfg.DatabaseFile)
	cfg.DatabaseDSN = getEnvOrDefault("AUTH_DATABASE_DSN", cfg.DatabaseDSN)
	cfg.PepperFile = getEnvOrDefault("AUTH_PEPPER_FILE", cfg.PepperFile)
	cfg.RedisAddr = getEnvOrDefault("AUTH_REDIS_ADDR", cfg.RedisAddr)
	cfg.CookieSecure = getEnvBoolOrDefault("AUTH_COOKIE_SECURE", cfg.CookieSecure)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)
	cfg.RateLimits.Strict = getEnvRateLimit("STRICT", cfg.RateLimits.Strict)
	cfg.RateLimits.Moderate = getEnvRateLimit("MODERATE", cfg.RateLimits.Moderate)
	cfg.RateLimits.Public = getEnvRateLimit("PUBLIC", cfg.RateLimits.Public)

	if cfg.Secret == "" && cfg.SecretFile != "" {
		secret, err := loadSecretFile(cfg.SecretFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Secret = secret
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func loadSecretFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: read secret file: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error

	switch {
	case c.Secret == "":
		errs = append(errs, errors.New("AUTH_SECRET or AUTH_SECRET_FILE is required"))
	case len(c.Secret) < MinSecretLength:
		errs = append(errs, fmt.Errorf("secret must be at least %d bytes", MinSecretLength))
	}
	if c.Issuer == "" {
		errs = append(errs, errors.New("issuer must not be empty"))
	}
	if c.Audience == "" {
		errs = append(errs, errors.New("audience must not be empty"))
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("access token lifetime must be positive"))
	}
	if c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("refresh token lifetime must be positive"))
	}
	if c.Leeway < 0 {
		errs = append(errs, errors.New("leeway must not be negative"))
	}

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.DatabaseDriver))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

// getEnvRateLimit applies RATELIMIT_{prefix}_REQUESTS, _WINDOW_SEC and _BURST
// over base.
func getEnvRateLimit(prefix string, base httpx.RateLimitConfig) httpx.RateLimitConfig {
	base.RequestsPerWindow = getEnvIntOrDefault("RATELIMIT_"+prefix+"_REQUESTS", base.RequestsPerWindow)
	if sec := getEnvIntOrDefault("RATELIMIT_"+prefix+"_WINDOW_SEC", 0); sec > 0 {
		base.Window = time.Duration(sec) * time.Second
	}
	base.Burst = getEnvIntOrDefault("RATELIMIT_"+prefix+"_BURST", base.Burst)
	return base
}
