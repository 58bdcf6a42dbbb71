package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Binance market data
	BinanceRESTURL   string
	BinanceWSURL     string
	KlineInterval    string
	KlineCacheTTL    time.Duration
	HTTPFetchTimeout time.Duration

	// WebSocket
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSFrameBufferSize       int

	// Evaluation
	TimeoutHorizon        time.Duration
	FeeRate               float64
	BreakEvenAfterTP1     bool
	EntryFillTolerancePct float64
	SweepInterval         time.Duration
	// TPWeights are the default take-profit fractions for signals that omit
	// their own. Empty means an equal split across the signal's targets.
	TPWeights []float64

	// Candle cache
	CacheNumCounters int64
	CacheMaxCost     int64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Persistence retries
	StoreRetryInitialBackoff time.Duration
	StoreRetryMaxBackoff     time.Duration
	StoreRetryBackoffMult    float64
	StoreRetryMaxAttempts    int
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Binance defaults
		BinanceRESTURL:   getEnvOrDefault("BINANCE_REST_URL", "https://fapi.binance.com"),
		BinanceWSURL:     getEnvOrDefault("BINANCE_WS_URL", "wss://fstream.binance.com/ws"),
		KlineInterval:    getEnvOrDefault("KLINE_INTERVAL", "1m"),
		KlineCacheTTL:    getDurationOrDefault("KLINE_CACHE_TTL", 10*time.Minute),
		HTTPFetchTimeout: getDurationOrDefault("HTTP_FETCH_TIMEOUT", 15*time.Second),

		// WebSocket defaults
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSFrameBufferSize:       getIntOrDefault("WS_FRAME_BUFFER_SIZE", 1000),

		// Evaluation defaults
		TimeoutHorizon:        getDurationOrDefault("TIMEOUT_HORIZON", 48*time.Hour),
		FeeRate:               getFloat64OrDefault("FEE_RATE", 0.00055),
		BreakEvenAfterTP1:     getBoolOrDefault("BREAK_EVEN_AFTER_TP1", true),
		EntryFillTolerancePct: getFloat64OrDefault("ENTRY_FILL_TOLERANCE_PCT", 1.0),
		SweepInterval:         getDurationOrDefault("SWEEP_INTERVAL", 30*time.Second),
		TPWeights:             getFloatSliceOrDefault("TP_WEIGHTS", nil),

		// Cache defaults
		CacheNumCounters: int64(getIntOrDefault("CACHE_NUM_COUNTERS", 10000)),
		CacheMaxCost:     int64(getIntOrDefault("CACHE_MAX_COST", 1000)),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "ghost"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "ghost123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "ghost_outcomes"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Retry defaults
		StoreRetryInitialBackoff: getDurationOrDefault("STORE_RETRY_INITIAL_BACKOFF", 100*time.Millisecond),
		StoreRetryMaxBackoff:     getDurationOrDefault("STORE_RETRY_MAX_BACKOFF", 5*time.Second),
		StoreRetryBackoffMult:    getFloat64OrDefault("STORE_RETRY_BACKOFF_MULTIPLIER", 2.0),
		StoreRetryMaxAttempts:    getIntOrDefault("STORE_RETRY_MAX_ATTEMPTS", 5),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.BinanceRESTURL == "" {
		return fmt.Errorf("BINANCE_REST_URL cannot be empty")
	}

	if c.BinanceWSURL == "" {
		return fmt.Errorf("BINANCE_WS_URL cannot be empty")
	}

	if c.TimeoutHorizon <= 0 {
		return fmt.Errorf("TIMEOUT_HORIZON must be positive, got %v", c.TimeoutHorizon)
	}

	if c.FeeRate < 0 || c.FeeRate >= 1.0 {
		return fmt.Errorf("FEE_RATE must be in [0, 1.0), got %f", c.FeeRate)
	}

	if c.EntryFillTolerancePct < 0 {
		return fmt.Errorf("ENTRY_FILL_TOLERANCE_PCT must not be negative, got %f", c.EntryFillTolerancePct)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	sum := 0.0
	for _, w := range c.TPWeights {
		if w <= 0 {
			return fmt.Errorf("TP_WEIGHTS entries must be positive, got %f", w)
		}
		sum += w
	}
	if sum > 1.0 {
		return fmt.Errorf("TP_WEIGHTS must sum to at most 1.0, got %f", sum)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getFloatSliceOrDefault(key string, defaultValue []float64) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		floatVal, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return defaultValue
		}
		out = append(out, floatVal)
	}

	return out
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
