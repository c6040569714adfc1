package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, time.Second, cfg.MinDelay)
	assert.Equal(t, 3*time.Second, cfg.MaxDelay)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10, cfg.MaxPages)
	assert.Equal(t, 0, cfg.MaxRecords)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Empty(t, cfg.ProxyList)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MIN_DELAY_MS", "250")
	t.Setenv("MAX_DELAY_MS", "750")
	t.Setenv("MAX_RECORDS", "100")
	t.Setenv("PROXY_LIST", "http://p1:8000, http://p2:8000,")
	t.Setenv("RENDER_JS", "true")

	cfg := Load()
	assert.Equal(t, 250*time.Millisecond, cfg.MinDelay)
	assert.Equal(t, 750*time.Millisecond, cfg.MaxDelay)
	assert.Equal(t, 100, cfg.MaxRecords)
	assert.Equal(t, []string{"http://p1:8000", "http://p2:8000"}, cfg.ProxyList)
	assert.True(t, cfg.RenderJS)
}

func TestValidateRejectsBadConfigurations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted delays", func(c *Config) { c.MinDelay = time.Second; c.MaxDelay = time.Millisecond }},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"zero base backoff", func(c *Config) { c.BaseBackoff = 0 }},
		{"max backoff below base", func(c *Config) { c.BaseBackoff = time.Minute; c.MaxBackoff = time.Second }},
		{"negative page cap", func(c *Config) { c.MaxPages = -1 }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"cap below base cooldown", func(c *Config) { c.CooldownBase = time.Minute; c.CooldownCap = time.Second }},
		{"unknown output format", func(c *Config) { c.OutputFormat = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Load()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
