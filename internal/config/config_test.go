// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validConfigJSON = `{
    "api_url": "https://trade.example.com",
    "token_file": "/tmp/tradedesk-test/token",
    "request_timeout_ms": 2500,
    "quote_debounce_ms": 300,
    "debug_logging": true,
    "simulator": {
        "port": 6001,
        "starting_cash": "2500.50",
        "token_ttl_ms": 60000,
        "prices": {"aapl": 100.5, "ibm": 50}
    }
}`

func setupTestConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:    "Valid config",
			content: validConfigJSON,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://trade.example.com", cfg.APIURL)
				assert.Equal(t, "/tmp/tradedesk-test/token", cfg.TokenFile)
				assert.Equal(t, 2500*time.Millisecond, cfg.RequestTimeout)
				assert.Equal(t, 300*time.Millisecond, cfg.QuoteDebounce)
				assert.True(t, cfg.DebugLogging)
				assert.Equal(t, 6001, cfg.Simulator.Port)
				assert.Equal(t, "2500.5", cfg.Simulator.StartingCashAmount().String())
				assert.Equal(t, time.Minute, cfg.Simulator.TokenTTL)
				assert.Equal(t, 100.5, cfg.Simulator.Prices["AAPL"])
			},
		},
		{
			name:    "Defaults fill missing keys",
			content: `{"api_url": "http://localhost:7000"}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultRequestTimeoutMs, cfg.RequestTimeoutMs)
				assert.Equal(t, DefaultQuoteDebounceMs, cfg.QuoteDebounceMs)
				assert.Equal(t, DefaultSimulatorPort, cfg.Simulator.Port)
				assert.Equal(t, DefaultTokenFile(), cfg.TokenFile)
				assert.Contains(t, cfg.Simulator.Prices, "AAPL")
			},
		},
		{
			name:    "Invalid URL",
			content: `{"api_url": "ftp://nowhere"}`,
			wantErr: true,
		},
		{
			name:    "Invalid timeout",
			content: `{"request_timeout_ms": -1}`,
			wantErr: true,
		},
		{
			name:    "Negative starting cash",
			content: `{"simulator": {"starting_cash": "-5"}}`,
			wantErr: true,
		},
		{
			name:    "Invalid JSON syntax",
			content: "{invalid json",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(setupTestConfig(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("TRADEDESK_API_URL", "http://env-host:9000")
	t.Setenv("TRADEDESK_DEBUG_LOGGING", "true")
	t.Setenv("TRADEDESK_SIMULATOR_PORT", "7777")

	cfg, err := LoadConfig(setupTestConfig(t, validConfigJSON))
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:9000", cfg.APIURL)
	assert.True(t, cfg.DebugLogging)
	assert.Equal(t, 7777, cfg.Simulator.Port)
	// Untouched keys keep the file value.
	assert.Equal(t, 2500, cfg.RequestTimeoutMs)
}
