package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("NLU_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, ProviderLocal, cfg.LLMProvider)
	assert.Equal(t, 30*time.Second, cfg.NLUTimeout)
	assert.Equal(t, 20, cfg.EventQueryLimit)
	assert.True(t, cfg.GreetingShortCircuit)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NLU_TIMEOUT", "5s")
	t.Setenv("EVENT_QUERY_LIMIT", "7")
	t.Setenv("GREETING_SHORT_CIRCUIT", "false")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, ,https://admin.example.com")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.NLUTimeout)
	assert.Equal(t, 7, cfg.EventQueryLimit)
	assert.False(t, cfg.GreetingShortCircuit)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("EVENT_QUERY_LIMIT", "many")
	t.Setenv("NLU_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 20, cfg.EventQueryLimit)
	assert.Equal(t, 30*time.Second, cfg.NLUTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown provider", func(c *Config) { c.LLMProvider = "gpt5" }, "LLM_PROVIDER"},
		{"unknown store", func(c *Config) { c.StoreDriver = "postgres" }, "STORE_DRIVER"},
		{"sqlite without path", func(c *Config) { c.StoreDriver = StoreSQLite; c.DatabasePath = "" }, "DATABASE_PATH"},
		{"zero event limit", func(c *Config) { c.EventQueryLimit = 0 }, "EVENT_QUERY_LIMIT"},
		{"zero timeout", func(c *Config) { c.ReplyTimeout = 0 }, "timeouts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
