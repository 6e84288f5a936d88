package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the process reads from the environment.
type Config struct {
	AppName     string
	Environment string
	HTTPPort    int

	DatabaseDriver string
	DatabaseDSN    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	LogLevel string

	TracingEnabled       bool
	MetricsEnabled       bool
	OTELExporterEndpoint string
	OTELExporterProtocol string
	TraceSamplingRatio   float64

	SchedulerEnabled   bool
	SchedulerInterval  time.Duration
	SchedulerBatchSize int

	RateLimitPerMinute int

	SeedEnabled bool

	SnowflakeNode int64
}

// Load reads the environment into a Config. A .env file is honored in
// development so local runs do not need exported variables.
func Load() (Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getString("APP_NAME", "uniqbrio-billing"),
		Environment: getString("APP_ENV", "development"),
		HTTPPort:    getInt("HTTP_PORT", 8080),

		DatabaseDriver: strings.ToLower(getString("DATABASE_DRIVER", "postgres")),
		DatabaseDSN:    getString("DATABASE_DSN", ""),
		DBMaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),

		LogLevel: getString("LOG_LEVEL", "info"),

		TracingEnabled:       getBool("OTEL_TRACING_ENABLED", false),
		MetricsEnabled:       getBool("OTEL_METRICS_ENABLED", false),
		OTELExporterEndpoint: getString("OTEL_EXPORTER_ENDPOINT", ""),
		OTELExporterProtocol: getString("OTEL_EXPORTER_PROTOCOL", "grpc"),
		TraceSamplingRatio:   getFloat("OTEL_TRACE_SAMPLING_RATIO", 0.1),

		SchedulerEnabled:   getBool("SCHEDULER_ENABLED", true),
		SchedulerInterval:  getDuration("SCHEDULER_INTERVAL", time.Hour),
		SchedulerBatchSize: getInt("SCHEDULER_BATCH_SIZE", 500),

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 300),

		SeedEnabled: getBool("SEED_ENABLED", false),

		SnowflakeNode: int64(getInt("SNOWFLAKE_NODE", 1)),
	}

	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.DatabaseDSN == "" && cfg.DatabaseDriver == "postgres" {
		return Config{}, fmt.Errorf("DATABASE_DSN is required for postgres")
	}
	return cfg, nil
}

// IsDevelopment reports whether the process runs in a dev environment.
func (c Config) IsDevelopment() bool {
	env := strings.ToLower(c.Environment)
	return env == "development" || env == "dev" || env == "local"
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
