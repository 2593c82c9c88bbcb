package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-scriptform/internal/httpapi"
	"github.com/goliatone/go-scriptform/internal/metrics"
	"github.com/goliatone/go-scriptform/internal/store/sqlite"
	"github.com/goliatone/go-scriptform/pkg/cache"
	"github.com/goliatone/go-scriptform/pkg/factory"
	"github.com/goliatone/go-scriptform/pkg/render"
	"github.com/goliatone/go-scriptform/pkg/renderers/vanilla"
	"github.com/goliatone/go-scriptform/pkg/scripts"
	"github.com/goliatone/go-scriptform/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forms and validate submissions over HTTP",
		Long: "Serve the HTTP API. When the configuration names a definitions directory " +
			"it is imported into the database before the server starts.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app) error {
				ctx := cmd.Context()
				if addr != "" {
					a.cfg.Addr = addr
				}

				source, err := a.source(ctx)
				if err != nil {
					return err
				}
				if store, ok := source.(*sqlite.Store); ok {
					if err := a.importConfiguredDefinitions(ctx, store); err != nil {
						return err
					}
				}

				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				collector, err := metrics.New(reg)
				if err != nil {
					return err
				}

				f, err := a.factory(source, collector)
				if err != nil {
					return err
				}
				renderers, err := a.renderers()
				if err != nil {
					return err
				}

				srv, err := httpapi.New(httpapi.Config{
					Catalog:   source,
					Factory:   f,
					Renderers: renderers,
					Logger:    a.logger,
					Gatherer:  reg,
				})
				if err != nil {
					return err
				}
				return a.listen(ctx, srv.Handler())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides configuration)")
	return cmd
}

// importConfiguredDefinitions loads cfg.Definitions into the database.
func (a *app) importConfiguredDefinitions(ctx context.Context, store *sqlite.Store) error {
	if a.cfg.Definitions == "" {
		return nil
	}
	defs, err := scripts.LoadFS(os.DirFS(a.cfg.Definitions))
	if err != nil {
		return err
	}
	ids, err := store.Import(ctx, defs)
	if err != nil {
		return err
	}
	a.logger.Info("definitions imported", "dir", a.cfg.Definitions, "scripts", len(ids))
	return nil
}

func (a *app) factory(store scripts.ParameterStore, collector *metrics.Collector) (*factory.Factory, error) {
	options := []factory.Option{
		factory.WithStore(store),
		factory.WithLogger(a.logger),
	}
	if a.cfg.StorageRoot != "" {
		resolver, err := storage.NewLocal(a.cfg.StorageRoot)
		if err != nil {
			return nil, err
		}
		options = append(options, factory.WithResolver(resolver))
	}
	if collector != nil {
		options = append(options,
			factory.WithCache(cache.New(cache.WithObserver(collector))),
			factory.WithBuildObserver(collector),
		)
	}
	return factory.New(options...)
}

func (a *app) renderers() (*render.Registry, error) {
	html, err := vanilla.New(vanilla.WithTemplatesDir(a.cfg.TemplatesDir))
	if err != nil {
		return nil, err
	}
	registry := render.NewRegistry()
	if err := registry.Register(html); err != nil {
		return nil, err
	}
	return registry, nil
}

func (a *app) listen(ctx context.Context, handler http.Handler) error {
	server := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("shutdown failed", "error", err)
		}
	}()

	a.logger.Info("starting server", "addr", a.cfg.Addr, "database", a.cfg.Database)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
