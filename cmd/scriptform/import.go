package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-scriptform/pkg/scripts"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "import [dir...]",
		Short: "Import script definitions into the database",
		Long: "Import YAML or JSON script definitions, replacing the stored parameters of " +
			"every script they declare. With --server the running service is told to drop " +
			"its cached forms for the imported scripts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				dirs := args
				if len(dirs) == 0 && a.cfg.Definitions != "" {
					dirs = []string{a.cfg.Definitions}
				}
				if len(dirs) == 0 {
					return errors.New("no definitions directory given")
				}

				var defs []scripts.Definition
				for _, dir := range dirs {
					loaded, err := scripts.LoadFS(os.DirFS(dir))
					if err != nil {
						return err
					}
					defs = append(defs, loaded...)
				}

				store, err := a.database(ctx)
				if err != nil {
					return err
				}
				ids, err := store.Import(ctx, defs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d script(s) into %s\n", len(ids), a.cfg.Database)

				if server == "" {
					return nil
				}
				for _, id := range ids {
					if err := invalidateRemote(ctx, server, id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "base URL of a running scriptform service to invalidate")
	return cmd
}

func invalidateRemote(ctx context.Context, base string, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/scripts/%d/forms", strings.TrimRight(base, "/"), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("invalidate script %d: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("invalidate script %d: unexpected status %s", id, resp.Status)
	}
	return nil
}
