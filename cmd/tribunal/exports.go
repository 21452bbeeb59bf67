package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/run-bigpig/tribunal/internal/archive"

	"github.com/spf13/cobra"
)

func newExportsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exports",
		Short: "List saved session exports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := archive.NewStore(a.cfg.Session.ExportDir)
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no exports in %s\n", store.Dir())
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SUBJECT\tCREATED\tSIZE\tFILE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Subject, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Size, e.Name)
			}
			return w.Flush()
		},
	}
}
