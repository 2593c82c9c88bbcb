package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/render"
	"github.com/goliatone/go-scriptform/pkg/scripts"
	"github.com/goliatone/go-scriptform/pkg/testsupport"
)

type echoRenderer struct{}

func (echoRenderer) Name() string        { return "echo" }
func (echoRenderer) ContentType() string { return "text/plain" }
func (echoRenderer) Render(_ context.Context, form model.Form, opts render.RenderOptions) ([]byte, error) {
	parts := append([]string{opts.Action}, form.Names()...)
	if opts.Fragment {
		parts = append(parts, "fragment")
	}
	return []byte(strings.Join(parts, ",")), nil
}

func sampleSource(t *testing.T) *scripts.MemoryStore {
	t.Helper()
	extras := &scripts.ParameterGroup{ID: 3, Name: "Extras"}
	return testsupport.MustStore(t,
		scripts.Script{ID: 11, Name: "greet"},
		scripts.Parameter{ID: 1, Slug: "name", Title: "name", Kind: "CharField", Required: true},
		scripts.Parameter{ID: 2, Slug: "shout", Title: "shout", Kind: "BooleanField", Group: extras},
	)
}

func echoRegistry() *render.Registry {
	registry := render.NewRegistry()
	registry.MustRegister(echoRenderer{})
	return registry
}

func TestGenerate_UsesDefaultVanillaRenderer(t *testing.T) {
	o := New(WithSource(sampleSource(t)))

	output, err := o.Generate(context.Background(), Request{ScriptID: 11})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	html := string(output)
	if !strings.Contains(html, `action="/scripts/11/submissions"`) {
		t.Fatalf("expected submission action in output:\n%s", html)
	}
	if !strings.Contains(html, `name="shout"`) {
		t.Fatalf("expected shout field in output:\n%s", html)
	}
}

func TestGenerate_FallsBackWhenDefaultMissing(t *testing.T) {
	o := New(WithSource(sampleSource(t)), WithRegistry(echoRegistry()))

	output, err := o.Generate(context.Background(), Request{ScriptID: 11})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got, want := string(output), "/scripts/11/submissions,_script,name,shout"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestGenerate_UnknownRenderer(t *testing.T) {
	o := New(WithSource(sampleSource(t)), WithRegistry(echoRegistry()))
	_, err := o.Generate(context.Background(), Request{ScriptID: 11, Renderer: "pdf"})
	if !errors.Is(err, render.ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}
}

func TestGenerate_UnknownScript(t *testing.T) {
	o := New(WithSource(sampleSource(t)))
	_, err := o.Generate(context.Background(), Request{ScriptID: 99})
	if !errors.Is(err, scripts.ErrScriptNotFound) {
		t.Fatalf("expected ErrScriptNotFound, got %v", err)
	}
}

func TestGenerateGroups(t *testing.T) {
	o := New(WithSource(sampleSource(t)), WithRegistry(echoRegistry()), WithDefaultRenderer("echo"))

	groups, err := o.GenerateGroups(context.Background(), Request{ScriptID: 11})
	if err != nil {
		t.Fatalf("generate groups: %v", err)
	}

	got := make(map[string]string, len(groups))
	var order []string
	for _, group := range groups {
		order = append(order, group.Name)
		got[group.Name] = string(group.Output)
	}
	if diff := cmp.Diff([]string{"Required", "Extras"}, order); diff != "" {
		t.Fatalf("group order mismatch (-want +got):\n%s", diff)
	}
	want := map[string]string{
		"Required": "/scripts/11/submissions,_script,name,fragment",
		"Extras":   "/scripts/11/submissions,shout,fragment",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("group output mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_RequiresCatalog(t *testing.T) {
	o := New()
	if _, err := o.Generate(context.Background(), Request{ScriptID: 1}); err == nil {
		t.Fatal("expected error without catalog")
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	o := New(WithSource(sampleSource(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Generate(ctx, Request{ScriptID: 11}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
