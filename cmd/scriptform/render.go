package main

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-scriptform/pkg/orchestrator"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		grouped bool
		output  string
		values  []string
	)

	cmd := &cobra.Command{
		Use:   "render <script-id>",
		Short: "Render the form of a script as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseScriptID(args[0])
			if err != nil {
				return err
			}
			initial, err := parseAssignments(values)
			if err != nil {
				return err
			}

			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				source, err := a.source(ctx)
				if err != nil {
					return err
				}
				f, err := a.factory(source, nil)
				if err != nil {
					return err
				}
				renderers, err := a.renderers()
				if err != nil {
					return err
				}
				gen := orchestrator.New(
					orchestrator.WithSource(source),
					orchestrator.WithFactory(f),
					orchestrator.WithRegistry(renderers),
				)

				req := orchestrator.Request{ScriptID: id, Initial: initial}
				if !grouped {
					req.RenderOptions.Values = initial
					page, err := gen.Generate(ctx, req)
					if err != nil {
						return err
					}
					return writeOutput(cmd.OutOrStdout(), output, page)
				}

				groups, err := gen.GenerateGroups(ctx, req)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				for _, group := range groups {
					fmt.Fprintf(&buf, "<fieldset class=\"fg-group\">\n<legend>%s</legend>\n", html.EscapeString(group.Name))
					buf.Write(group.Output)
					buf.WriteString("</fieldset>\n")
				}
				return writeOutput(cmd.OutOrStdout(), output, buf.Bytes())
			})
		},
	}
	cmd.Flags().BoolVar(&grouped, "groups", false, "render one fieldset per parameter group")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringArrayVar(&values, "set", nil, "initial value as slug=value (repeatable)")
	return cmd
}

// parseAssignments turns slug=value pairs into initial values. Repeated slugs
// collect into a list.
func parseAssignments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want slug=value", pair)
		}
		switch existing := out[key].(type) {
		case nil:
			out[key] = value
		case string:
			out[key] = []string{existing, value}
		case []string:
			out[key] = append(existing, value)
		}
	}
	return out, nil
}
