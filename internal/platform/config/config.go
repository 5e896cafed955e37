// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development-friendly default; production
// deployments override via the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration

	// DatabaseURL selects PostgreSQL persistence; empty runs on in-memory
	// stores (development and tests).
	DatabaseURL string

	// RedisURL enables the dashboard summary cache; empty disables caching.
	RedisURL string

	// KafkaBrokers enables event publishing; empty disables it.
	KafkaBrokers []string
	KafkaTopic   string

	Rules Rules
}

// Rules holds the tunable thresholds of the compiled rule set.
type Rules struct {
	// TransactionLimit is the single-transaction amount ceiling, in the
	// account currency.
	TransactionLimit float64
	// VelocityMaxCount and VelocityMaxAmount bound per-account activity in
	// any rolling hour.
	VelocityMaxCount  int
	VelocityMaxAmount float64
	// HighRiskCountries are ISO 3166-1 alpha-3 codes requiring enhanced due
	// diligence.
	HighRiskCountries []string
}

// FromEnv reads configuration from the environment.
func FromEnv() Config {
	return Config{
		Addr:            getString("COMPLIANCE_ADDR", ":8080"),
		ShutdownTimeout: getDuration("COMPLIANCE_SHUTDOWN_TIMEOUT", 10*time.Second),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    getList("KAFKA_BROKERS"),
		KafkaTopic:      getString("KAFKA_TOPIC", "compliance.events"),
		Rules: Rules{
			TransactionLimit:  getFloat("RULE_TRANSACTION_LIMIT", 10000),
			VelocityMaxCount:  getInt("RULE_VELOCITY_MAX_COUNT", 10),
			VelocityMaxAmount: getFloat("RULE_VELOCITY_MAX_AMOUNT", 50000),
			HighRiskCountries: getListDefault("RULE_HIGH_RISK_COUNTRIES",
				[]string{"AFG", "IRN", "IRQ", "PRK", "SYR", "YEM"}),
		},
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string) []string {
	return getListDefault(key, nil)
}

func getListDefault(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
