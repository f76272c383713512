// Package config loads application configuration from command-line flags,
// environment variables, an optional .env file and defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"ebook-library/internal/validation"

	"github.com/joho/godotenv"
)

// Prefix of every environment variable the application reads.
const envPrefix = "ELIBRARY_"

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Sweeper SweeperConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `json:"env" validate:"oneof=development staging production test"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `json:"log_level" validate:"oneof=debug info warn warning error"`
	Format string `json:"log_format" validate:"omitempty,oneof=json pretty"`
}

// StorageConfig says where the data files and book content live.
type StorageConfig struct {
	DataDir  string `json:"data_dir" validate:"notblank"`
	BooksDir string `json:"books_dir" validate:"notblank"`
}

// SweeperConfig holds the reservation lifecycle schedule.
type SweeperConfig struct {
	// Schedule is a cron spec; descriptors such as @hourly are accepted.
	Schedule string `json:"sweep_schedule" validate:"notblank"`
}

// Overrides are values given on the command line. Empty fields fall through
// to the environment.
type Overrides struct {
	Environment string
	LogLevel    string
	LogFormat   string
	DataDir     string
	BooksDir    string
	Schedule    string
	EnvFile     string
}

// LoadConfig builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(o Overrides) (*Config, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables that are already set, which gives
	// the environment precedence over the file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: strings.ToLower(getConfigValue(o.Environment, "ENV", "development")),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getConfigValue(o.LogLevel, "LOG_LEVEL", "info")),
			Format: strings.ToLower(getConfigValue(o.LogFormat, "LOG_FORMAT", "")),
		},
		Storage: StorageConfig{
			DataDir:  getConfigValue(o.DataDir, "DATA_DIR", "data"),
			BooksDir: getConfigValue(o.BooksDir, "BOOKS_DIR", "books"),
		},
		Sweeper: SweeperConfig{
			Schedule: getConfigValue(o.Schedule, "SWEEP_SCHEDULE", "@hourly"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	v := validation.Default()
	for _, section := range []any{c.App, c.Logger, c.Storage, c.Sweeper} {
		if err := v.Validate(section); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return nil
}

// IsProduction reports whether the application runs in production.
func (c *Config) IsProduction() bool { return c.App.Environment == "production" }

// getConfigValue returns the flag value if set, then the ELIBRARY_ prefixed
// environment variable, then the default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := strings.TrimSpace(os.Getenv(envPrefix + envKey)); envValue != "" {
		return envValue
	}
	return defaultValue
}
