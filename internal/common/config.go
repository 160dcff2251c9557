package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/cte-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Processing ProcessingConfig
	Log        LogConfig
}

// DatabaseConfig holds run-history store configuration
type DatabaseConfig struct {
	// DSN selects the driver: postgres:// URLs use pgx, anything else is a sqlite path/DSN.
	// Empty disables run history.
	DSN             string
	MaxConns        int
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	MaxUploadBytes int64
}

// ProcessingConfig holds batch-processing configuration
type ProcessingConfig struct {
	Workers        int
	FilterRegion   string
	ProcessTimeout time.Duration
	WatchDebounce  time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables, reading a .env file first when present.
func LoadConfig() *Config {
	_ = godotenv.Load() // ignore error if .env doesn't exist

	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":9090"),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 50<<20),
		},
		Processing: ProcessingConfig{
			Workers:        getEnvAsInt("WORKERS", 1),
			FilterRegion:   getEnv("FILTER_REGION", string(constants.DefaultRegion)),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", time.Minute),
			WatchDebounce:  getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("HTTP_ADDR", c.Server.HTTPAddr, Required).
		Field("FILTER_REGION", c.Processing.FilterRegion, Required, RegionCode)
	if c.Processing.Workers < 1 {
		v.errors = append(v.errors, ValidationError{Field: "WORKERS", Value: c.Processing.Workers, Message: "must be at least 1"})
	}
	if c.Server.MaxUploadBytes <= 0 {
		v.errors = append(v.errors, ValidationError{Field: "MAX_UPLOAD_BYTES", Value: c.Server.MaxUploadBytes, Message: "must be positive"})
	}
	if err := v.Err(); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", err)
	}
	return nil
}

// Region returns the configured filter region in canonical form.
func (c *Config) Region() constants.Region {
	r, ok := constants.Canonicalize(c.Processing.FilterRegion)
	if !ok {
		return constants.DefaultRegion
	}
	return r
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
