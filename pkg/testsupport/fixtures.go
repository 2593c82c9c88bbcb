// Package testsupport holds fixtures shared by tests across packages.
package testsupport

import (
	"io/fs"
	"os"
	"testing"

	"github.com/goliatone/go-scriptform/pkg/scripts"
)

// MustLoadDefinitions reads every definition file under dir into a
// MemoryStore. Helpers fail the test on error to keep callers concise.
func MustLoadDefinitions(t *testing.T, dir string) *scripts.MemoryStore {
	t.Helper()
	return MustLoadDefinitionsFS(t, os.DirFS(dir))
}

// MustLoadDefinitionsFS is MustLoadDefinitions over an arbitrary fs.FS, such
// as a fstest.MapFS built inline.
func MustLoadDefinitionsFS(t *testing.T, fsys fs.FS) *scripts.MemoryStore {
	t.Helper()

	defs, err := scripts.LoadFS(fsys)
	if err != nil {
		t.Fatalf("testsupport: load definitions: %v", err)
	}
	store, err := scripts.NewMemoryStoreFromDefinitions(defs)
	if err != nil {
		t.Fatalf("testsupport: resolve definitions: %v", err)
	}
	return store
}

// MustStore seeds a MemoryStore with one script and its parameters.
func MustStore(t *testing.T, script scripts.Script, params ...scripts.Parameter) *scripts.MemoryStore {
	t.Helper()

	store := scripts.NewMemoryStore()
	if err := store.Put(script, params...); err != nil {
		t.Fatalf("testsupport: seed store: %v", err)
	}
	return store
}
