package render_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/render"
)

type stubRenderer struct{ name string }

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return "text/plain" }
func (s stubRenderer) Render(_ context.Context, form model.Form, _ render.RenderOptions) ([]byte, error) {
	return []byte(s.name + ":" + form.Names()[0]), nil
}

func TestRegistry(t *testing.T) {
	registry := render.NewRegistry()
	registry.MustRegister(stubRenderer{name: "vanilla"})
	registry.MustRegister(stubRenderer{name: "tui"})

	if err := registry.Register(stubRenderer{name: "tui"}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register(stubRenderer{}); err == nil {
		t.Fatalf("expected error for unnamed renderer")
	}
	if diff := cmp.Diff([]string{"tui", "vanilla"}, registry.List()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	form := mustForm(t)
	out, contentType, err := registry.Render(context.Background(), "", form, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render default: %v", err)
	}
	if string(out) != "vanilla:_script" || contentType != "text/plain" {
		t.Fatalf("unexpected default render %q (%s)", out, contentType)
	}

	if err := registry.SetDefault("tui"); err != nil {
		t.Fatalf("set default: %v", err)
	}
	out, _, _ = registry.Render(context.Background(), "", form, render.RenderOptions{})
	if string(out) != "tui:_script" {
		t.Fatalf("expected tui default, got %q", out)
	}

	if _, err := registry.Get("preact"); !errors.Is(err, render.ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}
	if registry.Has("preact") || !registry.Has("vanilla") {
		t.Fatalf("Has reported unexpected membership")
	}
}

func TestValuesFromQuery(t *testing.T) {
	got := render.ValuesFromQuery(map[string][]string{
		"iterations": {"3"},
		"seeds":      {"1", "2"},
		"empty":      {},
	})
	want := map[string]any{"iterations": "3", "seeds": []string{"1", "2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}
