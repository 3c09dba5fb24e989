package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Storage
	DataDir  string // CSV market data cache
	StoreDSN string // SQLite run store file
	Strategy string // strategy YAML path

	// Database (optional: Postgres price repository / run store)
	Database DatabaseConfig

	// Redis (optional price cache)
	Redis RedisConfig

	// External APIs
	Yahoo YahooConfig

	// Scheduled jobs (cron expressions with seconds)
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a Postgres URL is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// YahooConfig holds the market data chart API configuration
type YahooConfig struct {
	BaseURL string
	RPS     float64 // requests per second
	Timeout time.Duration
}

// SchedulerConfig holds the cron schedules of the `rotation scheduler` jobs
type SchedulerConfig struct {
	RefreshSchedule  string // data refresh, after the NSE close
	BacktestSchedule string // backtest as of the refreshed data
	Workers          int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		DataDir:  getEnv("DATA_DIR", "data"),
		StoreDSN: getEnv("STORE_DSN", filepath.Join("data", "runs.db")),
		Strategy: getEnv("STRATEGY_CONFIG", filepath.Join("config", "strategy", "sector_rotation.yaml")),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "12h"),
		},

		Yahoo: YahooConfig{
			BaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RPS:     getEnvAsFloat("YAHOO_RPS", 2),
			Timeout: getEnvAsDuration("YAHOO_TIMEOUT", "30s"),
		},

		Scheduler: SchedulerConfig{
			RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "CRON_TZ=Asia/Kolkata 0 30 18 * * 1-5"),
			BacktestSchedule: getEnv("BACKTEST_SCHEDULE", "CRON_TZ=Asia/Kolkata 0 0 19 * * 1-5"),
			Workers:          getEnvAsInt("COLLECT_WORKERS", 4),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR must not be empty")
	}

	if c.Yahoo.RPS <= 0 {
		return fmt.Errorf("YAHOO_RPS must be positive")
	}

	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("COLLECT_WORKERS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
