package scripts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk layout of a definitions file. A file can declare
// any number of scripts.
type Document struct {
	Scripts []Definition `json:"scripts" yaml:"scripts"`
}

// Definition declares a script together with its groups and parameters.
type Definition struct {
	Script     Script                `json:"script" yaml:"script"`
	Groups     []ParameterGroup      `json:"groups,omitempty" yaml:"groups,omitempty"`
	Parameters []ParameterDefinition `json:"parameters" yaml:"parameters"`
}

// ParameterDefinition is the authoring form of a Parameter: choices are a
// plain list and the group is referenced by ID.
type ParameterDefinition struct {
	ID             int64  `json:"id" yaml:"id"`
	Slug           string `json:"slug" yaml:"slug"`
	Title          string `json:"title" yaml:"title"`
	Kind           string `json:"kind" yaml:"kind"`
	Required       bool   `json:"required,omitempty" yaml:"required,omitempty"`
	HelpText       string `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	Choices        []any  `json:"choices,omitempty" yaml:"choices,omitempty"`
	MultipleChoice bool   `json:"multiple_choice,omitempty" yaml:"multiple_choice,omitempty"`
	IsOutput       bool   `json:"is_output,omitempty" yaml:"is_output,omitempty"`
	Group          int64  `json:"group,omitempty" yaml:"group,omitempty"`
}

// Resolve converts the definition into Parameters bound to the script,
// linking group references. Unknown group IDs are reported as errors.
func (d Definition) Resolve() ([]Parameter, error) {
	groups := make(map[int64]ParameterGroup, len(d.Groups))
	for _, group := range d.Groups {
		if group.ID <= 0 {
			return nil, fmt.Errorf("scripts: script %d: group %q needs a positive id", d.Script.ID, group.Name)
		}
		groups[group.ID] = group
	}

	out := make([]Parameter, 0, len(d.Parameters))
	for _, def := range d.Parameters {
		slug := strings.TrimSpace(def.Slug)
		if slug == "" {
			return nil, fmt.Errorf("scripts: script %d: parameter %d has an empty slug", d.Script.ID, def.ID)
		}
		param := Parameter{
			ID:             def.ID,
			ScriptID:       d.Script.ID,
			Slug:           slug,
			Title:          def.Title,
			Kind:           def.Kind,
			Required:       def.Required,
			HelpText:       def.HelpText,
			MultipleChoice: def.MultipleChoice,
			IsOutput:       def.IsOutput,
		}
		if param.Title == "" {
			param.Title = slug
		}
		if len(def.Choices) > 0 {
			encoded, err := json.Marshal(def.Choices)
			if err != nil {
				return nil, fmt.Errorf("scripts: script %d: encode choices for %q: %w", d.Script.ID, slug, err)
			}
			param.Choices = string(encoded)
		}
		if def.Group != 0 {
			group, ok := groups[def.Group]
			if !ok {
				return nil, fmt.Errorf("scripts: script %d: parameter %q references unknown group %d", d.Script.ID, slug, def.Group)
			}
			param.Group = &group
		}
		out = append(out, param)
	}
	return out, nil
}

// ParseDocument decodes a JSON or YAML definitions payload. The path only
// selects the decoder and annotates errors.
func ParseDocument(data []byte, path string) (Document, error) {
	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("scripts: parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("scripts: parse %s: %w", path, err)
		}
	}
	return doc, nil
}

// LoadFS walks fsys collecting script definitions from .yaml, .yml and .json
// files. Duplicate script IDs across files are rejected.
func LoadFS(fsys fs.FS) ([]Definition, error) {
	if fsys == nil {
		return nil, nil
	}

	var out []Definition
	seen := make(map[int64]string)

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("scripts: read %s: %w", path, err)
		}
		doc, err := ParseDocument(data, path)
		if err != nil {
			return err
		}

		for _, def := range doc.Scripts {
			if def.Script.ID <= 0 {
				return fmt.Errorf("scripts: file %s declares a script without a positive id", path)
			}
			if previous, exists := seen[def.Script.ID]; exists {
				return fmt.Errorf("scripts: duplicate script %d (files %s and %s)", def.Script.ID, previous, path)
			}
			seen[def.Script.ID] = path
			out = append(out, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NewMemoryStoreFromDefinitions resolves and loads definitions into a fresh
// MemoryStore.
func NewMemoryStoreFromDefinitions(defs []Definition) (*MemoryStore, error) {
	store := NewMemoryStore()
	for _, def := range defs {
		params, err := def.Resolve()
		if err != nil {
			return nil, err
		}
		if err := store.Put(def.Script, params...); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
