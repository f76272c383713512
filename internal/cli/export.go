package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ebook-library/internal/snapshot"
)

func newExportCmd(r *runtime) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a SQLite snapshot of users, books and reservations",
		Long: `Copy the current contents of the data files into a SQLite database for
reporting tools. The database is rewritten on every export; passwords are not
exported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := r.manager()
			if err != nil {
				return err
			}
			log, err := r.logger()
			if err != nil {
				return err
			}
			dump, err := mgr.Dump()
			if err != nil {
				return err
			}
			counts, err := snapshot.Export(cmd.Context(), out, dump, log.Logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d users, %d books and %d reservations to %s\n",
				counts.Users, counts.Books, counts.Reservations, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "library.db", "path of the SQLite database to write")
	return cmd
}
