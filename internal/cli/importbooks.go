package cli

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ebook-library/internal/importer"
	"ebook-library/library"
)

func newImportBooksCmd(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import-books",
		Short: "Catalogue every content file in the books directory not yet listed",
		Long: `Register each <name>.txt in the books directory that no book refers to yet.
The title is derived from the file name; author and genre are set to "Unknown"
and the release date to today, for an admin to correct later.`,
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Importing books from %s...\n", mgr.BooksDir())
			res, err := importer.New(mgr, nil, log.Logger).Run(library.System)
			if err != nil {
				return err
			}

			failed := make([]string, 0, len(res.Failed))
			for name := range res.Failed {
				failed = append(failed, name)
			}
			sort.Strings(failed)
			for _, name := range failed {
				fmt.Fprintf(out, "ERROR %s: %v\n", name, res.Failed[name])
			}

			fmt.Fprintf(out, "\nImport complete!\n")
			fmt.Fprintf(out, "Imported: %d, already catalogued: %d, errors: %d\n",
				len(res.Imported), len(res.Skipped), len(res.Failed))

			if len(res.Imported) > 0 {
				fmt.Fprintln(out, "\nImported books:")
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tFILE")
				for _, b := range res.Imported {
					fmt.Fprintf(tw, "%s\t%s\t%s.txt\n", strconv.Itoa(b.ID), b.Title, b.Filename)
				}
				tw.Flush()
			}
			return nil
		},
	}
}
