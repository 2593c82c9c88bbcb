package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				source, err := a.source(cmd.Context())
				if err != nil {
					return err
				}
				list, err := source.Scripts(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, script := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\n", script.ID, script.Name, script.Description)
				}
				return w.Flush()
			})
		},
	}
}
