package tenantAuth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tenantAuth "github.com/MrEthical07/tenantAuth"
)

func validConfig() tenantAuth.Config {
	cfg := tenantAuth.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestDefaultConfigNeedsOnlySecret(t *testing.T) {
	cfg := tenantAuth.DefaultConfig()
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.RefreshTTL)
	assert.Equal(t, 24*time.Hour, cfg.OneTime.VerificationTTL)
	assert.Equal(t, time.Hour, cfg.OneTime.ResetTTL)
	assert.Equal(t, tenantAuth.RateLimitRule{MaxAttempts: 5, Window: 15 * time.Minute}, cfg.RateLimit.Login)
	assert.Equal(t, tenantAuth.RateLimitRule{MaxAttempts: 3, Window: time.Hour}, cfg.RateLimit.Register)
	assert.Equal(t, "argon2id", cfg.Password.Algorithm)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*tenantAuth.Config)
		wantErr string
	}{
		{
			name:    "short secret",
			mutate:  func(c *tenantAuth.Config) { c.JWT.Secret = []byte("short") },
			wantErr: "JWT Secret",
		},
		{
			name:    "unknown signing method",
			mutate:  func(c *tenantAuth.Config) { c.JWT.SigningMethod = "rs256" },
			wantErr: "signing method",
		},
		{
			name:    "refresh shorter than access",
			mutate:  func(c *tenantAuth.Config) { c.Session.RefreshTTL = time.Minute },
			wantErr: "RefreshTTL",
		},
		{
			name:    "weak refresh entropy",
			mutate:  func(c *tenantAuth.Config) { c.Session.TokenBytes = 16 },
			wantErr: "TokenBytes",
		},
		{
			name:    "zero reset ttl",
			mutate:  func(c *tenantAuth.Config) { c.OneTime.ResetTTL = 0 },
			wantErr: "OneTime",
		},
		{
			name:    "cheap bcrypt",
			mutate:  func(c *tenantAuth.Config) { c.Password.Algorithm = "bcrypt"; c.Password.BCryptCost = 10 },
			wantErr: "BCryptCost",
		},
		{
			name:    "unknown algorithm",
			mutate:  func(c *tenantAuth.Config) { c.Password.Algorithm = "md5" },
			wantErr: "Algorithm",
		},
		{
			name:    "half a rate rule",
			mutate:  func(c *tenantAuth.Config) { c.RateLimit.Login.Window = 0 },
			wantErr: "RateLimit Login",
		},
		{
			name: "alert without lookback",
			mutate: func(c *tenantAuth.Config) {
				c.Login.NotifyNewLocation = true
				c.Login.AlertLookback = 0
			},
			wantErr: "AlertLookback",
		},
		{
			name:    "async mail without workers",
			mutate:  func(c *tenantAuth.Config) { c.Mail.Workers = 0 },
			wantErr: "Mail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateIgnoresDisabledRules(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Login = tenantAuth.RateLimitRule{MaxAttempts: -1}

	assert.NoError(t, cfg.Validate())
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := tenantAuth.DefaultConfig()

	_, err := tenantAuth.New().WithConfig(cfg).Build()
	assert.Error(t, err)
}
