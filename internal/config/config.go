package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Bus backends.
const (
	BusMemory = "memory"
	BusRedis  = "redis"
)

// Config holds all runtime configuration for the trade feed.
type Config struct {
	Port                 int
	LogLevel             string
	QuoteInterval        time.Duration
	NotificationInterval time.Duration
	NotificationGrace    time.Duration
	QuoteVolatility      decimal.Decimal
	BusBackend           string
	RedisAddr            string
	BusProbeInterval     time.Duration
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	ShutdownTimeout      time.Duration
}

// LoadDotEnv copies variables from the given .env files into the process
// environment without overriding ones already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	quoteInterval, err := getPositiveDuration("QUOTE_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_INTERVAL: %w", err)
	}

	notificationInterval, err := getPositiveDuration("NOTIFICATION_INTERVAL", 1500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_INTERVAL: %w", err)
	}

	notificationGrace, err := getDuration("NOTIFICATION_GRACE", 1500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_GRACE: %w", err)
	}
	if notificationGrace < 0 {
		return nil, fmt.Errorf("invalid NOTIFICATION_GRACE: must be >= 0, got %v", notificationGrace)
	}

	volatility, err := getDecimal("QUOTE_VOLATILITY", decimal.RequireFromString("0.02"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_VOLATILITY: %w", err)
	}
	if volatility.IsNegative() || volatility.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("invalid QUOTE_VOLATILITY: must be in [0, 1), got %s", volatility)
	}

	busBackend := getStr("BUS_BACKEND", BusMemory)
	if busBackend != BusMemory && busBackend != BusRedis {
		return nil, fmt.Errorf("invalid BUS_BACKEND: %q, must be one of: memory, redis", busBackend)
	}

	redisAddr := getStr("REDIS_ADDR", "localhost:6379")

	busProbeInterval, err := getPositiveDuration("BUS_PROBE_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid BUS_PROBE_INTERVAL: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                 port,
		LogLevel:             logLevel,
		QuoteInterval:        quoteInterval,
		NotificationInterval: notificationInterval,
		NotificationGrace:    notificationGrace,
		QuoteVolatility:      volatility,
		BusBackend:           busBackend,
		RedisAddr:            redisAddr,
		BusProbeInterval:     busProbeInterval,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		ShutdownTimeout:      shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

// getPositiveDuration is getDuration for ticker intervals, which must be > 0.
func getPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be > 0, got %v", d)
	}
	return d, nil
}

func getDecimal(key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return decimal.NewFromString(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
