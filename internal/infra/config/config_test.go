package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, int64(200*1024), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "auto", cfg.Store.Driver)
	assert.Equal(t, int64(10), cfg.Quota.FreeDailyLimit)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	assert.InDelta(t, 0.7, cfg.OpenAI.Temperature, 1e-9)
	assert.Equal(t, 60, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 30*24*time.Hour, cfg.Webhook.DedupTTL)
	assert.Contains(t, cfg.CORS.AllowedOrigins, "https://ronchon.com")
	assert.True(t, cfg.Identity.HashKeys)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RONCHON_STORE_DRIVER", "memory")
	t.Setenv("RONCHON_QUOTA_PREMIUM_DAILY_LIMIT", "500")
	t.Setenv("MAX_FREE_PER_DAY", "3")
	t.Setenv("LICENSE_KEYS", " ABC123, ,XYZ ")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, int64(3), cfg.Quota.FreeDailyLimit)
	assert.Equal(t, int64(500), cfg.Quota.PremiumDailyLimit)
	assert.Equal(t, []string{"ABC123", "XYZ"}, cfg.License.Keys)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RONCHON_STORE_DRIVER", "etcd")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store:     StoreConfig{Driver: "memory"},
			Quota:     QuotaConfig{FreeDailyLimit: 10, PremiumDailyLimit: 100},
			RateLimit: RateLimitConfig{Enabled: true, Limit: 60, Window: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero free limit", mutate: func(c *Config) { c.Quota.FreeDailyLimit = 0 }, wantErr: true},
		{name: "premium below free", mutate: func(c *Config) { c.Quota.PremiumDailyLimit = 5 }, wantErr: true},
		{name: "rate limit without window", mutate: func(c *Config) { c.RateLimit.Window = 0 }, wantErr: true},
		{name: "rate limit disabled", mutate: func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: false}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Nil(t, ParseList(""))
	assert.Equal(t, []string{"a", "b"}, ParseList(" a ,, b,"))
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Database: "ronchon", SSLMode: "disable", Password: "p"}
	assert.Equal(t, "host=db port=5432 user=u dbname=ronchon sslmode=disable password=p", cfg.DSN())
}
