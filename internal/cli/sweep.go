package cli

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"ebook-library/internal/sweeper"
)

func newSweepCmd(r *runtime) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Activate and expire reservations as their dates arrive",
		Long: `Move APPROVED reservations to ACTIVE once their start date is reached and
APPROVED or ACTIVE ones to EXPIRED after their end date. Without --once the
command keeps running and sweeps on the configured cron schedule until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sw, err := do.Invoke[*sweeper.Sweeper](r.injector)
			if err != nil {
				return err
			}
			if !once {
				return sw.Run(cmd.Context())
			}
			report, err := sw.RunOnce()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activated %d, expired %d reservation(s)\n", report.Activated, report.Expired)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "sweep a single time and exit")
	cmd.Flags().StringVar(&r.opts.Overrides.Schedule, "schedule", "", "cron schedule, five fields or a descriptor such as @hourly (default \"@hourly\")")
	return cmd
}
