package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REDIS_URL", "")

	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Store.QueryTimeout)
	assert.Equal(t, 10, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 100, cfg.Pagination.MaxLimit)
	assert.Equal(t, "UTC", cfg.Stats.Timezone)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("REALTIME_QUEUE_SIZE", "8")
	t.Setenv("STATS_ALLOW_PARTIAL", "yes")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg := Load()

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "cache:6379", cfg.Redis.URL)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 8, cfg.Realtime.QueueSize)
	assert.True(t, cfg.Stats.AllowPartial)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSAllowedOrigins)
}

func validConfig() *Config {
	t := &Config{}
	t.Server.Port = "8080"
	t.Store.Driver = DriverMemory
	t.Store.QueryTimeout = time.Second
	t.JWT.Secret = "s3cret"
	t.Pagination = PaginationConfig{DefaultLimit: 10, MaxLimit: 50}
	t.Stats.Timezone = "Europe/Berlin"
	t.Realtime.QueueSize = 4
	t.Realtime.MaxDropped = 4
	return t
}

func TestValidateCore(t *testing.T) {
	require.NoError(t, validConfig().ValidateCore())

	cases := map[string]func(c *Config){
		"postgres without url": func(c *Config) { c.Store.Driver = DriverPostgres },
		"unknown driver":       func(c *Config) { c.Store.Driver = "mongo" },
		"default secret":       func(c *Config) { c.JWT.Secret = defaultJWTSecret },
		"max below default":    func(c *Config) { c.Pagination.MaxLimit = 5 },
		"bad timezone":         func(c *Config) { c.Stats.Timezone = "Mars/Olympus" },
		"local timezone":       func(c *Config) { c.Stats.Timezone = "Local" },
		"zero queue":           func(c *Config) { c.Realtime.QueueSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(c)
			assert.Error(t, c.ValidateCore())
		})
	}
}

func TestLocation(t *testing.T) {
	c := validConfig()
	assert.Equal(t, "Europe/Berlin", c.Location().String())
}
