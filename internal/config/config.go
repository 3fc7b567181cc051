// Package config loads server settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the resolved server configuration.
type Config struct {
	Port string

	// DatabaseURL selects the PostgreSQL store; empty means in-memory.
	DatabaseURL string
	// RedisURL enables the snapshot cache in front of PostgreSQL.
	RedisURL string
	CacheTTL time.Duration

	// KafkaBrokers enables clearing event publishing when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	Epsilon         decimal.Decimal
	MaxParticipants int
	MaxCapacity     decimal.Decimal
	PriceCap        decimal.Decimal
	MaxSideCapacity decimal.Decimal

	// SeedDefaultScenario creates the reference scenario on startup when
	// the store holds none.
	SeedDefaultScenario bool
}

// Load reads .env (if present) and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (Config, error) {
	if err := loadDotenv(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:         envString("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envString("KAFKA_TOPIC", "spot.clearing"),
	}

	var err error
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Epsilon, err = envDecimal("CLEARING_EPSILON", decimal.New(1, -3)); err != nil {
		return Config{}, err
	}
	if cfg.Epsilon.IsNegative() {
		return Config{}, fmt.Errorf("config: CLEARING_EPSILON must not be negative, got %s", cfg.Epsilon)
	}
	if cfg.MaxParticipants, err = envInt("MAX_PARTICIPANTS", 200); err != nil {
		return Config{}, err
	}
	if cfg.MaxCapacity, err = envDecimal("MAX_CAPACITY", decimal.Zero); err != nil {
		return Config{}, err
	}
	if cfg.PriceCap, err = envDecimal("PRICE_CAP", decimal.Zero); err != nil {
		return Config{}, err
	}
	if cfg.MaxSideCapacity, err = envDecimal("MAX_SIDE_CAPACITY", decimal.Zero); err != nil {
		return Config{}, err
	}
	if cfg.SeedDefaultScenario, err = envBool("SEED_DEFAULT_SCENARIO", true); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotenv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func envDecimal(key string, def decimal.Decimal) (decimal.Decimal, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
