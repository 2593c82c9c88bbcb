// Package model defines the read-only form structures produced from script
// parameters. A Field is one UI input with a kind drawn from the closed
// FieldKind set; each kind carries its own Options variant (TextOptions,
// ChoiceOptions, FileOptions, ...). Forms keep fields in insertion order and
// are safe to share: accessors that expose slices or maps hand out copies, so
// cached forms cannot be mutated by callers. Builder converts a
// scripts.Parameter into a Field, resolving file initial values through a
// storage.Resolver.
package model
