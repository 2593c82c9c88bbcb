package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-scriptform/pkg/validation"
)

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema <script-id>",
		Short: "Print the OpenAPI schema a submission must satisfy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScriptID(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				source, err := a.source(ctx)
				if err != nil {
					return err
				}
				script, err := source.Script(ctx, id)
				if err != nil {
					return err
				}
				f, err := a.factory(source, nil)
				if err != nil {
					return err
				}
				form, err := f.MasterForm(ctx, script)
				if err != nil {
					return err
				}

				data, err := json.MarshalIndent(validation.SchemaFor(form), "", "  ")
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, append(data, '\n'))
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}
