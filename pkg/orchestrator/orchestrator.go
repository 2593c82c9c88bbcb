package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-scriptform/pkg/factory"
	"github.com/goliatone/go-scriptform/pkg/render"
	"github.com/goliatone/go-scriptform/pkg/renderers/vanilla"
	"github.com/goliatone/go-scriptform/pkg/scripts"
)

const defaultRendererName = "vanilla"

// Source is what the orchestrator reads scripts from. Both scripts.MemoryStore
// and the SQLite store satisfy it.
type Source interface {
	scripts.Catalog
	scripts.ParameterStore
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithSource sets the script source. It also backs the default factory.
func WithSource(source Source) Option {
	return func(o *Orchestrator) {
		o.catalog = source
		o.store = source
	}
}

// WithCatalog injects the catalog used to resolve script identifiers.
func WithCatalog(catalog scripts.Catalog) Option {
	return func(o *Orchestrator) {
		o.catalog = catalog
	}
}

// WithFactory injects a configured form factory, typically one shared with
// an HTTP server so both observe the same cache.
func WithFactory(f *factory.Factory) Option {
	return func(o *Orchestrator) {
		o.factory = f
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// Orchestrator resolves a script, obtains its cached forms and renders them.
// Missing dependencies fall back to built-in implementations (a factory over
// the source, the vanilla renderer).
type Orchestrator struct {
	catalog         scripts.Catalog
	store           scripts.ParameterStore
	factory         *factory.Factory
	registry        *render.Registry
	defaultRenderer string
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{defaultRenderer: defaultRendererName}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one rendering of a script's forms.
type Request struct {
	// ScriptID selects the script in the catalog.
	ScriptID int64

	// Renderer names the renderer to use. If empty, the orchestrator falls back
	// to the configured default renderer.
	Renderer string

	// Initial pre-populates group forms, keyed by parameter slug. Grouped
	// renderings with initial values are built fresh and never cached.
	Initial map[string]any

	// RenderOptions carries per-request instructions such as prefilled values
	// or server-side errors.
	RenderOptions render.RenderOptions
}

// RenderedGroup is one group form and its rendered output.
type RenderedGroup struct {
	Name   string
	Output []byte
}

// Generate renders the master form of the requested script.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	script, renderer, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	form, err := o.factory.MasterForm(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build master form: %w", err)
	}

	opts := req.RenderOptions
	if opts.Action == "" {
		opts.Action = script.SubmissionURL()
	}
	output, err := renderer.Render(ctx, form, opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// GenerateGroups renders every group form of the requested script as a
// fragment, in display order.
func (o *Orchestrator) GenerateGroups(ctx context.Context, req Request) ([]RenderedGroup, error) {
	script, renderer, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	groups, err := o.factory.GroupForms(ctx, script, req.Initial)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build group forms: %w", err)
	}

	opts := req.RenderOptions
	opts.Fragment = true
	if opts.Action == "" {
		opts.Action = groups.Action()
	}

	out := make([]RenderedGroup, 0, groups.Len())
	for _, group := range groups.Groups() {
		output, err := renderer.Render(ctx, group.Form, opts)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: render group %q: %w", group.Name, err)
		}
		out = append(out, RenderedGroup{Name: group.Name, Output: output})
	}
	return out, nil
}

// Factory exposes the form factory in use.
func (o *Orchestrator) Factory() *factory.Factory {
	return o.factory
}

func (o *Orchestrator) prepare(ctx context.Context, req Request) (scripts.Script, render.Renderer, error) {
	if ctx == nil {
		return scripts.Script{}, nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return scripts.Script{}, nil, err
	}
	if err := o.initialiseErr; err != nil {
		return scripts.Script{}, nil, err
	}

	script, err := o.catalog.Script(ctx, req.ScriptID)
	if err != nil {
		return scripts.Script{}, nil, fmt.Errorf("orchestrator: resolve script %d: %w", req.ScriptID, err)
	}
	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return scripts.Script{}, nil, err
	}
	return script, renderer, nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	renderer, err := o.registry.Get(target)
	if err == nil {
		return renderer, nil
	}
	if name != "" {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
	}
	// The configured default is missing; use the registry's own fallback.
	renderer, err = o.registry.Get("")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.catalog == nil {
		o.initialiseErr = errors.New("orchestrator: script catalog is required")
		return
	}
	if o.factory == nil {
		if o.store == nil {
			o.initialiseErr = errors.New("orchestrator: factory or parameter store is required")
			return
		}
		f, err := factory.New(factory.WithStore(o.store))
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default factory: %w", err)
			return
		}
		o.factory = f
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
			return
		}
		o.registry.MustRegister(renderer)
	}
}
