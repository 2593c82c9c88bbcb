package scriptform

import (
	"io/fs"

	"github.com/goliatone/go-scriptform/pkg/scripts"
)

// LoadDefinitions reads every YAML or JSON script definition in fsys into an
// in-memory store usable as an orchestrator source.
func LoadDefinitions(fsys fs.FS) (*scripts.MemoryStore, error) {
	defs, err := scripts.LoadFS(fsys)
	if err != nil {
		return nil, err
	}
	return scripts.NewMemoryStoreFromDefinitions(defs)
}
