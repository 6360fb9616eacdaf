// Package envconfig loads deployment settings for the tenantauth binaries
// from the environment and an optional .env file.
package envconfig

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

// Settings holds everything a binary needs to build an Engine.
type Settings struct {
	Env      string
	LogLevel string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	DatabaseDSN   string
	DatabaseDebug bool
	StoreBackend  string // "memory" or "redis"
	RedisAddr     string
	RedisPrefix   string

	PurgeInterval time.Duration
	MetricsAddr   string
	AuditEnabled  bool
}

// Load reads settings from the environment. Files named in files are
// loaded first (".env" when none are given); missing files are ignored and
// never override variables that are already set.
func Load(files ...string) (*Settings, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}

	s := &Settings{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		AccessTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		DatabaseDSN:   getEnv("DATABASE_DSN", "file::memory:?cache=shared"),
		DatabaseDebug: getEnvAsBool("DATABASE_DEBUG", false),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPrefix:   getEnv("REDIS_PREFIX", tenantAuth.DefaultRedisPrefix),

		PurgeInterval: getEnvAsDuration("PURGE_INTERVAL", time.Hour),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		AuditEnabled:  getEnvAsBool("AUDIT_ENABLED", true),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks settings that have no safe default.
func (s *Settings) Validate() error {
	if len(s.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be set to at least 32 bytes")
	}
	switch s.StoreBackend {
	case "memory", "redis":
	default:
		return errors.New("STORE_BACKEND must be 'memory' or 'redis'")
	}
	if s.PurgeInterval <= 0 {
		return errors.New("PURGE_INTERVAL must be > 0")
	}
	return nil
}

// EngineConfig returns tenantAuth defaults overlaid with s.
func (s *Settings) EngineConfig() tenantAuth.Config {
	cfg := tenantAuth.DefaultConfig()
	cfg.JWT.Secret = []byte(s.JWTSecret)
	cfg.JWT.AccessTTL = s.AccessTTL
	cfg.Session.RefreshTTL = s.RefreshTTL
	cfg.Audit.Enabled = s.AuditEnabled
	return cfg
}

// Production reports whether APP_ENV is "production".
func (s *Settings) Production() bool {
	return s.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
