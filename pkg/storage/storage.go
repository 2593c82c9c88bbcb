// Package storage resolves stored file identifiers into file handles that
// forms can show as initial values for upload fields.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot reports an identifier that resolves outside the storage root.
var ErrOutsideRoot = errors.New("storage: path escapes storage root")

// ErrEmptyIdentifier reports a blank file identifier.
var ErrEmptyIdentifier = errors.New("storage: identifier is required")

// File is a handle to a stored object exposing its location.
type File interface {
	Name() string
	Path() string
}

// Resolver turns a stored identifier into a concrete File.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (File, error)
}

// ResolverFunc adapts a function into a Resolver.
type ResolverFunc func(ctx context.Context, identifier string) (File, error)

// Resolve calls the underlying function.
func (fn ResolverFunc) Resolve(ctx context.Context, identifier string) (File, error) {
	return fn(ctx, identifier)
}

// Object is the File implementation returned by Local.
type Object struct {
	name   string
	path   string
	size   int64
	exists bool
}

// NewObject constructs an Object for an already known location.
func NewObject(name, path string) Object {
	return Object{name: name, path: path}
}

func (o Object) Name() string { return o.name }
func (o Object) Path() string { return o.path }

// Size reports the object size in bytes; zero when the file is missing.
func (o Object) Size() int64 { return o.size }

// Exists reports whether the object was present when resolved.
func (o Object) Exists() bool { return o.exists }

// String returns the storage name, which is what forms display.
func (o Object) String() string { return o.name }

// Local resolves identifiers relative to a directory on disk.
type Local struct {
	root string
}

var _ Resolver = (*Local)(nil)

// NewLocal creates a resolver rooted at dir.
func NewLocal(dir string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: root directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute storage root.
func (l *Local) Root() string {
	return l.root
}

// Resolve maps identifier to a path under the root. Missing files resolve to
// an Object with Exists() == false; the storage backend owns their lifecycle.
func (l *Local) Resolve(ctx context.Context, identifier string) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := filepath.ToSlash(strings.TrimSpace(identifier))
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return nil, ErrEmptyIdentifier
	}

	full := filepath.Join(l.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %q", ErrOutsideRoot, identifier)
	}

	obj := Object{name: filepath.ToSlash(rel), path: full}
	info, err := os.Stat(full)
	switch {
	case err == nil:
		obj.size = info.Size()
		obj.exists = !info.IsDir()
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("storage: stat %q: %w", identifier, err)
	}
	return obj, nil
}
