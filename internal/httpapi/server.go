// Package httpapi exposes scripts, their forms and submission validation
// over HTTP.
package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-scriptform/pkg/factory"
	"github.com/goliatone/go-scriptform/pkg/render"
	"github.com/goliatone/go-scriptform/pkg/scripts"
)

// maxUploadMemory bounds the multipart data kept in memory while parsing a
// submission. Larger parts spill to temporary files.
const maxUploadMemory = 32 << 20

// Config wires the server dependencies. Catalog, Factory and Renderers are
// required.
type Config struct {
	Catalog   scripts.Catalog
	Factory   *factory.Factory
	Renderers *render.Registry
	Logger    *slog.Logger
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
}

// Server holds the handlers. Build the router with Handler.
type Server struct {
	catalog   scripts.Catalog
	factory   *factory.Factory
	renderers *render.Registry
	logger    *slog.Logger
	gatherer  prometheus.Gatherer
}

// New validates cfg and returns a Server.
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Catalog == nil:
		return nil, errors.New("httpapi: catalog is required")
	case cfg.Factory == nil:
		return nil, errors.New("httpapi: factory is required")
	case cfg.Renderers == nil:
		return nil, errors.New("httpapi: renderer registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		catalog:   cfg.Catalog,
		factory:   cfg.Factory,
		renderers: cfg.Renderers,
		logger:    logger,
		gatherer:  cfg.Gatherer,
	}, nil
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/scripts", func(r chi.Router) {
		r.Get("/", s.listScripts)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/groups", s.groupForms)
			r.Get("/form", s.masterForm)
			r.Get("/form.html", s.masterFormHTML)
			r.Get("/schema", s.submissionSchema)
			r.Post("/submissions", s.submit)
			r.Delete("/forms", s.invalidate)
		})
	})
	r.Delete("/forms", s.purge)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
