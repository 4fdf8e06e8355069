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
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Serving store (Postgres)
	Database DatabaseConfig

	// Staging store (DuckDB)
	Staging StagingConfig

	// Redis
	Redis RedisConfig

	// Corpus source
	ECFR ECFRConfig

	// Batch pipeline
	Pipeline PipelineConfig

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

// StagingConfig holds the DuckDB staging lake configuration
type StagingConfig struct {
	Path string // empty = in-memory
}

// ECFRConfig holds eCFR corpus source configuration
type ECFRConfig struct {
	BaseURL string
	// AgenciesSource and CorrectionsSource accept a local file path or an http(s) URL.
	AgenciesSource    string
	CorrectionsSource string
	RateLimit         int // requests per second
	Timeout           time.Duration
}

// PipelineConfig holds batch pipeline settings
type PipelineConfig struct {
	Workers           int
	SnapshotRetention int
	Schedule          string // cron expression with seconds
	ScoringConfigPath string // optional YAML, defaults built in
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	baseURL := getEnv("ECFR_BASE_URL", "https://www.ecfr.gov")

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Staging: StagingConfig{
			Path: getEnv("DUCKDB_PATH", "ecfr_staging.duckdb"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		ECFR: ECFRConfig{
			BaseURL:           baseURL,
			AgenciesSource:    getEnv("ECFR_AGENCIES_SOURCE", baseURL+"/api/admin/v1/agencies.json"),
			CorrectionsSource: getEnv("ECFR_CORRECTIONS_SOURCE", baseURL+"/api/admin/v1/corrections.json"),
			RateLimit:         getEnvAsInt("ECFR_RATE_LIMIT", 5),
			Timeout:           getEnvAsDuration("ECFR_TIMEOUT", "60s"),
		},

		Pipeline: PipelineConfig{
			Workers:           getEnvAsInt("PIPELINE_WORKERS", 4),
			SnapshotRetention: getEnvAsInt("PIPELINE_SNAPSHOT_RETENTION", 5),
			Schedule:          getEnv("PIPELINE_SCHEDULE", "0 0 6 * * *"),
			ScoringConfigPath: getEnv("SCORING_CONFIG_PATH", ""),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be >= 1")
	}

	if c.Pipeline.SnapshotRetention < 1 {
		return fmt.Errorf("PIPELINE_SNAPSHOT_RETENTION must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
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
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
