package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "secret")
	t.Setenv("JWT_ACCESS_TTL", "15m")
	t.Setenv("BCRYPT_COST", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()

	assert.Equal(t, "secret", cfg.JWTSigningKey)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 10, cfg.BcryptCost, "invalid int falls back to default")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
	assert.Empty(t, cfg.ESAddrs())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{JWTSigningKey: "k", AccessTTL: time.Hour, BcryptCost: 10, HashMaxConcurrency: 2}
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing signing key", func(c *Config) { c.JWTSigningKey = "  " }, "JWT_SIGNING_KEY"},
		{"zero ttl", func(c *Config) { c.AccessTTL = 0 }, "JWT_ACCESS_TTL"},
		{"cost too high", func(c *Config) { c.BcryptCost = 40 }, "BCRYPT_COST"},
		{"no hash workers", func(c *Config) { c.HashMaxConcurrency = 0 }, "HASH_MAX_CONCURRENCY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
