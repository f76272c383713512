// Package app wires the application's dependencies with samber/do.
package app

import (
	"io"
	"os"

	"github.com/samber/do/v2"

	"ebook-library/internal/config"
	"ebook-library/internal/logger"
	"ebook-library/internal/sweeper"
	"ebook-library/library"
)

// Options seed the container: command-line overrides and where logs go.
type Options struct {
	Overrides config.Overrides
	LogWriter io.Writer
}

// NewContainer creates the DI container with all providers registered.
// Nothing is constructed until first invoked.
func NewContainer(opts Options) *do.RootScope {
	if opts.LogWriter == nil {
		opts.LogWriter = os.Stderr
	}
	injector := do.New()

	do.ProvideValue(injector, opts)

	// Core infrastructure
	do.Provide(injector, ProvideConfig)
	do.Provide(injector, ProvideLogger)

	// Library
	do.Provide(injector, ProvideManager)

	// Workers
	do.Provide(injector, ProvideSweeper)

	return injector
}

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	opts := do.MustInvoke[Options](i)
	return config.LoadConfig(opts.Overrides)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	opts := do.MustInvoke[Options](i)

	log := logger.New(logger.Config{
		Writer:      opts.LogWriter,
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})
	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"data_dir", cfg.Storage.DataDir,
		"books_dir", cfg.Storage.BooksDir,
	)
	return log, nil
}

// ProvideManager provides the library façade over the data directory.
func ProvideManager(i do.Injector) (*library.LibraryManager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return library.NewLibraryManager(cfg.Storage.DataDir, cfg.Storage.BooksDir,
		library.WithLogger(log.Logger))
}

// ProvideSweeper provides the reservation lifecycle sweeper.
func ProvideSweeper(i do.Injector) (*sweeper.Sweeper, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	mgr := do.MustInvoke[*library.LibraryManager](i)

	return sweeper.New(mgr.Reservations, cfg.Sweeper.Schedule, log.Logger)
}
