package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{"ENV", "LOG_LEVEL", "LOG_FORMAT", "DATA_DIR", "BOOKS_DIR", "SWEEP_SCHEDULE"}

// clearEnv blanks every variable so values from the developer's shell do not
// leak into a test. t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(envPrefix+k, "")
		os.Unsetenv(envPrefix + k)
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(Overrides{EnvFile: noEnvFile(t)})
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "", cfg.Logger.Format)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "books", cfg.Storage.BooksDir)
	assert.Equal(t, "@hourly", cfg.Sweeper.Schedule)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigPrecedence(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"ELIBRARY_DATA_DIR=/from/file\n"+
			"ELIBRARY_BOOKS_DIR=/file/books\n"+
			"ELIBRARY_LOG_LEVEL=warn\n"), 0o644))
	t.Setenv("ELIBRARY_LOG_LEVEL", "debug")
	t.Setenv("ELIBRARY_ENV", "Production")

	cfg, err := LoadConfig(Overrides{EnvFile: envFile, BooksDir: "/flag/books"})
	t.Cleanup(func() {
		os.Unsetenv("ELIBRARY_DATA_DIR")
		os.Unsetenv("ELIBRARY_BOOKS_DIR")
	})
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.Storage.DataDir, ".env fills unset variables")
	assert.Equal(t, "/flag/books", cfg.Storage.BooksDir, "flags beat everything")
	assert.Equal(t, "debug", cfg.Logger.Level, "environment beats .env")
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		o    Overrides
	}{
		{"unknown environment", Overrides{Environment: "moon"}},
		{"unknown level", Overrides{LogLevel: "loud"}},
		{"unknown format", Overrides{LogFormat: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			tt.o.EnvFile = noEnvFile(t)
			_, err := LoadConfig(tt.o)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigBrokenEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	_, err := LoadConfig(Overrides{EnvFile: dir})
	assert.Error(t, err)
}
