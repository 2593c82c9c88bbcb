package scriptform

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-scriptform/pkg/testsupport"
)

const definitions = `
scripts:
  - script:
      id: 5
      name: thumbnail
    groups:
      - id: 1
        name: Sizing
    parameters:
      - id: 1
        slug: source
        title: source image
        kind: file
        required: true
      - id: 2
        slug: width
        title: width
        kind: integer
        group: 1
`

func TestGenerateHTMLFromDefinitions(t *testing.T) {
	store, err := LoadDefinitions(fstest.MapFS{
		"thumbnail.yaml": &fstest.MapFile{Data: []byte(definitions)},
	})
	if err != nil {
		t.Fatalf("load definitions: %v", err)
	}

	html, err := GenerateHTML(context.Background(), store, 5, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, want := range []string{
		`action="/scripts/5/submissions"`,
		`name="_script"`,
		`<label for="fg-source">Source Image`,
		`type="number" name="width"`,
	} {
		if !strings.Contains(string(html), want) {
			t.Fatalf("expected %q in output:\n%s", want, html)
		}
	}
}

func TestEmbeddedTemplates(t *testing.T) {
	for _, name := range []string{"templates/form.tmpl", "templates/field.tmpl"} {
		if _, err := fs.Stat(EmbeddedTemplates(), name); err != nil {
			t.Fatalf("expected embedded %s: %v", name, err)
		}
	}
}

func TestNewFactory(t *testing.T) {
	store := testsupport.MustLoadDefinitionsFS(t, fstest.MapFS{
		"thumbnail.yaml": &fstest.MapFile{Data: []byte(definitions)},
	})
	script, err := store.Script(context.Background(), 5)
	if err != nil {
		t.Fatalf("script: %v", err)
	}

	f, err := NewFactory(store)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	groups, err := f.GroupForms(context.Background(), script, nil)
	if err != nil {
		t.Fatalf("group forms: %v", err)
	}
	if groups.Len() != 2 || groups.Group(0).Name != "Required" || groups.Group(1).Name != "Sizing" {
		t.Fatalf("unexpected groups: %+v", groups.Groups())
	}
	if _, err := NewFactory(nil); err == nil {
		t.Fatal("expected error without store")
	}
}
