package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-scriptform/internal/config"
	"github.com/goliatone/go-scriptform/internal/logger"
	"github.com/goliatone/go-scriptform/internal/store/sqlite"
	"github.com/goliatone/go-scriptform/pkg/orchestrator"
	"github.com/goliatone/go-scriptform/pkg/scripts"
)

type rootOptions struct {
	cfgPath     string
	definitions string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "scriptform",
		Short:         "Build, render and validate forms for script parameters",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "scriptform.yaml", "configuration file")
	cmd.PersistentFlags().StringVar(&opts.definitions, "definitions", "", "read scripts from a definitions directory instead of the database")

	cmd.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newListCmd(opts),
		newRenderCmd(opts),
		newSchemaCmd(opts),
		newPromptCmd(opts),
		newLintCmd(),
	)
	return cmd
}

// app bundles what every command needs once configuration is loaded.
type app struct {
	opts    *rootOptions
	cfg     config.Config
	logger  *slog.Logger
	closers []io.Closer
}

func withApp(opts *rootOptions, fn func(*app) error) error {
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return err
	}
	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	a := &app{opts: opts, cfg: cfg, logger: log, closers: []io.Closer{closer}}
	defer a.close()
	return fn(a)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close:", err)
		}
	}
}

// source opens the script source: the definitions directory when one was
// given on the command line, the configured database otherwise.
func (a *app) source(ctx context.Context) (orchestrator.Source, error) {
	if a.opts.definitions != "" {
		defs, err := scripts.LoadFS(os.DirFS(a.opts.definitions))
		if err != nil {
			return nil, err
		}
		a.logger.Debug("definitions loaded", "dir", a.opts.definitions, "scripts", len(defs))
		return scripts.NewMemoryStoreFromDefinitions(defs)
	}
	return a.database(ctx)
}

func (a *app) database(ctx context.Context) (*sqlite.Store, error) {
	store, err := sqlite.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store)
	return store, nil
}

func parseScriptID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid script id %q", raw)
	}
	return id, nil
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
