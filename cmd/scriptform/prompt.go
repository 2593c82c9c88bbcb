package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-scriptform/pkg/render"
	"github.com/goliatone/go-scriptform/pkg/renderers/tui"
)

func newPromptCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "prompt <script-id>",
		Short: "Fill in a script's parameters interactively",
		Long: "Prompt for every parameter of a script in the terminal and print the answers " +
			"as JSON, form-encoded or name=value text. Invalid answers are asked again.",
		Args: cobra.ExactArgs(1),
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

				renderer, err := tui.New(tui.WithOutputFormat(tui.OutputFormat(format)))
				if err != nil {
					return err
				}
				answers, err := renderer.Render(ctx, form, render.RenderOptions{})
				if errors.Is(err, tui.ErrAborted) {
					return errors.New("prompt aborted")
				}
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, answers)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(tui.OutputFormatJSON), "output format: json, form or pretty")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}
