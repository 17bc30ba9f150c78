package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the engine configuration. Heuristic constants carried
// over from production tuning (low-amount thresholds, fee safety
// multiplier) are exposed here so callers can override them.
type Config struct {
	// OracleBaseURL is the base URL of the price oracle API.
	OracleBaseURL string
	// QuoteBaseURL is the base URL of the quote API.
	QuoteBaseURL string
	// QuoteAPIKey is the optional bearer token for the quote API.
	QuoteAPIKey string

	// PriceCacheTTL is the validity window of a cached price entry.
	PriceCacheTTL time.Duration
	// PriceRequestSpacing is the minimum spacing between price oracle
	// dispatches, enforced globally across all callers.
	PriceRequestSpacing time.Duration
	// PriceRefreshInterval is how often the auto-refresh watcher
	// re-issues a price fetch.
	PriceRefreshInterval time.Duration
	// RateLimitErrorClear is how long a rate-limit error stays visible
	// before it auto-clears.
	RateLimitErrorClear time.Duration
	// MaxSymbolsPerRequest caps the number of oracle ids per dispatch.
	MaxSymbolsPerRequest int

	// QuoteDebounce is the settle delay between a parameter change and
	// the quote fetch it triggers.
	QuoteDebounce time.Duration
	// CorrectionDelay is the delay before re-quoting after an
	// error-driven amount correction.
	CorrectionDelay time.Duration
	// NetworkSettleDelay is the delay before requesting a chain switch
	// after a mismatch is observed.
	NetworkSettleDelay time.Duration

	// FeeSafetyMultiplier scales a parsed fee into a safe pay amount.
	FeeSafetyMultiplier float64
	// LowAmountThresholds maps token symbols to the amount below which
	// a non-blocking low-amount warning is raised.
	LowAmountThresholds map[string]float64
}

// Load reads configuration from environment variables and an optional
// config file, falling back to production defaults.
//
// Returns:
// - *Config: the loaded configuration.
// - error: an error if the config file is present but unreadable.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".swap-lib")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	v.SetDefault("oracle_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("quote_base_url", "https://bento-swap-api.vercel.app")
	v.SetDefault("quote_api_key", "")
	v.SetDefault("price_cache_ttl", 2*time.Minute)
	v.SetDefault("price_request_spacing", 1200*time.Millisecond)
	v.SetDefault("price_refresh_interval", 5*time.Minute)
	v.SetDefault("rate_limit_error_clear", time.Minute)
	v.SetDefault("max_symbols_per_request", 50)
	v.SetDefault("quote_debounce", 500*time.Millisecond)
	v.SetDefault("correction_delay", 500*time.Millisecond)
	v.SetDefault("network_settle_delay", 500*time.Millisecond)
	v.SetDefault("fee_safety_multiplier", 2.0)
	v.SetDefault("low_amount_thresholds", map[string]float64{
		"ETH":  0.0001,
		"BTC":  0.00001,
		"USDC": 0.1,
		"USDT": 0.1,
		"DAI":  0.1,
	})

	v.SetEnvPrefix("SWAPLIB")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Viper lowercases map keys; threshold lookups are by upper-cased
	// token symbol.
	thresholds := make(map[string]float64)
	for symbol := range v.GetStringMap("low_amount_thresholds") {
		thresholds[strings.ToUpper(symbol)] = v.GetFloat64("low_amount_thresholds." + symbol)
	}

	return &Config{
		OracleBaseURL:        v.GetString("oracle_base_url"),
		QuoteBaseURL:         v.GetString("quote_base_url"),
		QuoteAPIKey:          v.GetString("quote_api_key"),
		PriceCacheTTL:        v.GetDuration("price_cache_ttl"),
		PriceRequestSpacing:  v.GetDuration("price_request_spacing"),
		PriceRefreshInterval: v.GetDuration("price_refresh_interval"),
		RateLimitErrorClear:  v.GetDuration("rate_limit_error_clear"),
		MaxSymbolsPerRequest: v.GetInt("max_symbols_per_request"),
		QuoteDebounce:        v.GetDuration("quote_debounce"),
		CorrectionDelay:      v.GetDuration("correction_delay"),
		NetworkSettleDelay:   v.GetDuration("network_settle_delay"),
		FeeSafetyMultiplier:  v.GetFloat64("fee_safety_multiplier"),
		LowAmountThresholds:  thresholds,
	}, nil
}

// Default returns the production defaults without consulting the
// environment or any config file.
func Default() *Config {
	return &Config{
		OracleBaseURL:        "https://api.coingecko.com/api/v3",
		QuoteBaseURL:         "https://bento-swap-api.vercel.app",
		PriceCacheTTL:        2 * time.Minute,
		PriceRequestSpacing:  1200 * time.Millisecond,
		PriceRefreshInterval: 5 * time.Minute,
		RateLimitErrorClear:  time.Minute,
		MaxSymbolsPerRequest: 50,
		QuoteDebounce:        500 * time.Millisecond,
		CorrectionDelay:      500 * time.Millisecond,
		NetworkSettleDelay:   500 * time.Millisecond,
		FeeSafetyMultiplier:  2.0,
		LowAmountThresholds: map[string]float64{
			"ETH":  0.0001,
			"BTC":  0.00001,
			"USDC": 0.1,
			"USDT": 0.1,
			"DAI":  0.1,
		},
	}
}
