package scriptform

import (
	"context"

	"github.com/goliatone/go-scriptform/pkg/orchestrator"
	"github.com/goliatone/go-scriptform/pkg/render"
)

// RenderOptions describes per-request overrides that renderers can use to
// prefill values or surface server-side validation errors.
type RenderOptions = render.RenderOptions

// Request aliases orchestrator.Request for callers using the root package.
type Request = orchestrator.Request

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// GenerateHTML renders the master form of script id from source using the
// named renderer. It is the simplest entry point for callers that just want
// HTML output.
func GenerateHTML(ctx context.Context, source orchestrator.Source, id int64, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(append([]orchestrator.Option{orchestrator.WithSource(source)}, options...)...)
	return gen.Generate(ctx, orchestrator.Request{
		ScriptID: id,
		Renderer: rendererName,
	})
}
