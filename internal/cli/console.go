package cli

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"ebook-library/internal/console"
	"ebook-library/internal/sweeper"
)

func newConsoleCmd(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open the interactive library console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd, r)
		},
	}
}

// runConsole brings reservation statuses up to date and then hands the
// terminal to the menu loop.
func runConsole(cmd *cobra.Command, r *runtime) error {
	mgr, err := r.manager()
	if err != nil {
		return err
	}
	log, err := r.logger()
	if err != nil {
		return err
	}
	sw, err := do.Invoke[*sweeper.Sweeper](r.injector)
	if err != nil {
		return err
	}
	if _, err := sw.RunOnce(); err != nil {
		log.Warn("could not update reservation statuses", "error", err)
	}

	return console.New(mgr, cmd.InOrStdin(), cmd.OutOrStdout(), log.Logger).Run(cmd.Context())
}
