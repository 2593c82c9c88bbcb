package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/render"
	rendertemplate "github.com/goliatone/go-scriptform/pkg/render/template"
	"github.com/goliatone/go-scriptform/pkg/render/template/gotemplate"
)

const formTemplate = "templates/form.tmpl"

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	policy           *bluemonday.Policy
}

// WithTemplatesFS supplies an alternate template bundle. It must provide
// templates/form.tmpl and templates/field.tmpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithHelpPolicy replaces the sanitising policy applied to help text.
func WithHelpPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// Renderer renders forms as HTML through pongo2 templates.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
	policy    *bluemonday.Policy
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.policy == nil {
		cfg.policy = helpPolicy()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{templates: renderer, policy: cfg.policy}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render writes form as HTML. Values in options take precedence over field
// initials; the form itself is never modified.
func (r *Renderer) Render(ctx context.Context, form model.Form, options render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}

	view := buildFormView(form, options, r.policy)
	result, err := r.templates.RenderTemplate(formTemplate, view)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}

// helpPolicy allows the inline markup script authors commonly put in help
// text and strips everything else.
func helpPolicy() *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	policy.AllowElements("b", "strong", "i", "em", "code", "br", "p", "ul", "ol", "li")
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowStandardURLs()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}
