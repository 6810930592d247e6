package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnvOverride(t *testing.T) {
	t.Setenv("SCHEDULER_AUTH_JWT_SECRET", "secret")
	t.Setenv("SCHEDULER_SCHEDULER_WINDOW_POLICY", "contained")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 30, cfg.Scheduler.StepMinutes)
	assert.Equal(t, "any", cfg.Scheduler.OverlapPolicy)
	assert.Equal(t, "contained", cfg.Scheduler.WindowPolicy)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.FetchTimeout)

	got, ok := GetSafe()
	require.True(t, ok)
	assert.Same(t, cfg, got)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
auth:
  jwt_secret: from-file
cache:
  driver: redis
scheduler:
  overlap_policy: contained
  block_minutes: 15
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "contained", cfg.Scheduler.OverlapPolicy)
	assert.Equal(t, 15, cfg.Scheduler.BlockMinutes)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Auth:      AuthConfig{JWTSecret: "s"},
			Cache:     CacheConfig{Driver: "memory"},
			Realtime:  RealtimeConfig{Driver: "memory"},
			Scheduler: SchedulerConfig{StepMinutes: 30, BlockMinutes: 30, OverlapPolicy: "any", WindowPolicy: "start"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, false},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, false},
		{"bad realtime driver", func(c *Config) { c.Realtime.Driver = "kafka" }, false},
		{"bad overlap policy", func(c *Config) { c.Scheduler.OverlapPolicy = "strictest" }, false},
		{"bad window policy", func(c *Config) { c.Scheduler.WindowPolicy = "end" }, false},
		{"zero step", func(c *Config) { c.Scheduler.StepMinutes = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
