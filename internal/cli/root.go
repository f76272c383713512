// Package cli defines the elibrary command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"ebook-library/internal/app"
	"ebook-library/internal/logger"
	"ebook-library/library"
)

// runtime carries the flag values and the container shared by all commands.
type runtime struct {
	opts     app.Options
	injector *do.RootScope
}

func (r *runtime) manager() (*library.LibraryManager, error) {
	return do.Invoke[*library.LibraryManager](r.injector)
}

func (r *runtime) logger() (*logger.Logger, error) {
	return do.Invoke[*logger.Logger](r.injector)
}

// NewRootCmd builds the command tree. Running it without a subcommand opens
// the interactive console.
func NewRootCmd() *cobra.Command {
	r := &runtime{}

	root := &cobra.Command{
		Use:   "elibrary",
		Short: "elibrary - a file-backed e-book lending library",
		Long: `elibrary keeps users, books and reservations in plain text files and lets
members reserve and read e-books from an interactive console.

Run without a command to open the console. Use "elibrary [command] --help" to
see what each command does.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			r.opts.LogWriter = cmd.ErrOrStderr()
			r.injector = app.NewContainer(r.opts)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd, r)
		},
	}

	// Global persistent flags = available to all subcommands
	flags := root.PersistentFlags()
	flags.StringVar(&r.opts.Overrides.DataDir, "data-dir", "", "directory holding the users, books and reservations files (default \"data\")")
	flags.StringVar(&r.opts.Overrides.BooksDir, "books-dir", "", "directory holding book content files (default \"books\")")
	flags.StringVar(&r.opts.Overrides.LogLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&r.opts.Overrides.LogFormat, "log-format", "", "pretty or json")
	flags.StringVar(&r.opts.Overrides.Environment, "env", "", "development, staging, production or test")
	flags.StringVar(&r.opts.Overrides.EnvFile, "env-file", "", "dotenv file to load (default \".env\")")

	root.AddCommand(
		newConsoleCmd(r),
		newAdminCmd(r),
		newImportBooksCmd(r),
		newExportCmd(r),
		newSweepCmd(r),
	)
	return root
}

// Execute runs the command tree with os.Args and exits non-zero on failure.
// SIGINT and SIGTERM cancel the command's context.
func Execute() {
	ExecuteArgs(os.Args[1:])
}

// ExecuteArgs is Execute with explicit arguments.
func ExecuteArgs(args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
