// internal/config/config.go

// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TRADEDESK_API_URL.
const EnvPrefix = "TRADEDESK"

type Config struct {
	APIURL           string          `mapstructure:"api_url"`
	TokenFile        string          `mapstructure:"token_file"`
	RequestTimeoutMs int             `mapstructure:"request_timeout_ms"`
	QuoteDebounceMs  int             `mapstructure:"quote_debounce_ms"`
	DebugLogging     bool            `mapstructure:"debug_logging"`
	LogFile          string          `mapstructure:"log_file"`
	LogBufferSize    int             `mapstructure:"log_buffer_size"`
	EventBufferSize  int             `mapstructure:"event_buffer_size"`
	Simulator        SimulatorConfig `mapstructure:"simulator"`

	RequestTimeout time.Duration `mapstructure:"-"`
	QuoteDebounce  time.Duration `mapstructure:"-"`
}

// SimulatorConfig configures the local trading API simulator.
type SimulatorConfig struct {
	Port              int                `mapstructure:"port"`
	StartingCash      string             `mapstructure:"starting_cash"`
	TokenTTLMs        int                `mapstructure:"token_ttl_ms"`
	ReadTimeoutMs     int                `mapstructure:"read_timeout_ms"`
	WriteTimeoutMs    int                `mapstructure:"write_timeout_ms"`
	ShutdownTimeoutMs int                `mapstructure:"shutdown_timeout_ms"`
	Prices            map[string]float64 `mapstructure:"prices"`

	TokenTTL        time.Duration `mapstructure:"-"`
	ReadTimeout     time.Duration `mapstructure:"-"`
	WriteTimeout    time.Duration `mapstructure:"-"`
	ShutdownTimeout time.Duration `mapstructure:"-"`
}

const (
	DefaultAPIURL            = "http://127.0.0.1:5000"
	DefaultRequestTimeoutMs  = 10000
	DefaultQuoteDebounceMs   = 500
	DefaultLogBufferSize     = 1000
	DefaultEventBufferSize   = 256
	DefaultSimulatorPort     = 5000
	DefaultStartingCash      = "10000.00"
	DefaultTokenTTLMs        = 3600000
	DefaultReadTimeoutMs     = 5000
	DefaultWriteTimeoutMs    = 10000
	DefaultShutdownTimeoutMs = 10000
)

// DefaultPrices is the simulator's static price table.
var DefaultPrices = map[string]float64{
	"AAPL":  185.92,
	"TSLA":  171.05,
	"MSFT":  415.50,
	"IBM":   190.20,
	"GOOGL": 154.30,
	"AMZN":  178.25,
	"NVDA":  880.08,
}

// LoadConfig reads configuration from path (optional; empty or missing
// means defaults only), then applies .env and TRADEDESK_* overrides.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()

	defaults := map[string]interface{}{
		"api_url":                       DefaultAPIURL,
		"token_file":                    "",
		"request_timeout_ms":            DefaultRequestTimeoutMs,
		"quote_debounce_ms":             DefaultQuoteDebounceMs,
		"debug_logging":                 false,
		"log_file":                      "",
		"log_buffer_size":               DefaultLogBufferSize,
		"event_buffer_size":             DefaultEventBufferSize,
		"simulator.port":                DefaultSimulatorPort,
		"simulator.starting_cash":       DefaultStartingCash,
		"simulator.token_ttl_ms":        DefaultTokenTTLMs,
		"simulator.read_timeout_ms":     DefaultReadTimeoutMs,
		"simulator.write_timeout_ms":    DefaultWriteTimeoutMs,
		"simulator.shutdown_timeout_ms": DefaultShutdownTimeoutMs,
		"simulator.prices":              DefaultPrices,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config error: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config error: %w", err)
	}

	if cfg.TokenFile == "" {
		cfg.TokenFile = DefaultTokenFile()
	}
	cfg.Simulator.Prices = canonicalPrices(cfg.Simulator.Prices)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
	cfg.QuoteDebounce = time.Duration(cfg.QuoteDebounceMs) * time.Millisecond
	cfg.Simulator.TokenTTL = time.Duration(cfg.Simulator.TokenTTLMs) * time.Millisecond
	cfg.Simulator.ReadTimeout = time.Duration(cfg.Simulator.ReadTimeoutMs) * time.Millisecond
	cfg.Simulator.WriteTimeout = time.Duration(cfg.Simulator.WriteTimeoutMs) * time.Millisecond
	cfg.Simulator.ShutdownTimeout = time.Duration(cfg.Simulator.ShutdownTimeoutMs) * time.Millisecond

	return &cfg, nil
}

// DefaultTokenFile is where the session token lives when token_file is unset.
func DefaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "tradedesk", "token")
}

func validateConfig(cfg *Config) error {
	parsed, err := url.Parse(cfg.APIURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid api_url")
	}
	if !strings.HasPrefix(parsed.Scheme, "http") {
		return errors.New("api_url must use http or https")
	}
	if cfg.RequestTimeoutMs <= 0 {
		return errors.New("invalid request_timeout_ms")
	}
	if cfg.QuoteDebounceMs < 0 {
		return errors.New("invalid quote_debounce_ms")
	}
	if cfg.LogBufferSize <= 0 {
		return errors.New("invalid log_buffer_size")
	}
	if cfg.EventBufferSize <= 0 {
		return errors.New("invalid event_buffer_size")
	}
	return validateSimulator(&cfg.Simulator)
}

func validateSimulator(sim *SimulatorConfig) error {
	if sim.Port <= 0 || sim.Port > 65535 {
		return errors.New("invalid simulator.port")
	}
	if _, err := parseCash(sim.StartingCash); err != nil {
		return fmt.Errorf("invalid simulator.starting_cash: %w", err)
	}
	if sim.TokenTTLMs <= 0 {
		return errors.New("invalid simulator.token_ttl_ms")
	}
	if sim.ReadTimeoutMs <= 0 || sim.WriteTimeoutMs <= 0 || sim.ShutdownTimeoutMs <= 0 {
		return errors.New("invalid simulator timeouts")
	}
	if len(sim.Prices) == 0 {
		return errors.New("simulator.prices is empty")
	}
	for symbol, price := range sim.Prices {
		if price <= 0 {
			return fmt.Errorf("invalid price for %s", symbol)
		}
	}
	return nil
}

// StartingCashAmount is the opening balance of new simulator accounts.
func (s SimulatorConfig) StartingCashAmount() decimal.Decimal {
	amount, err := parseCash(s.StartingCash)
	if err != nil {
		return decimal.RequireFromString(DefaultStartingCash)
	}
	return amount
}

func parseCash(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	return amount, nil
}

// viper lowercases map keys; symbols are uppercase everywhere else.
func canonicalPrices(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for symbol, price := range in {
		out[strings.ToUpper(strings.TrimSpace(symbol))] = price
	}
	return out
}
