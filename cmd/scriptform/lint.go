package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/scripts"
)

type violation struct {
	file     string
	location string
	message  string
}

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <dir>...",
		Short: "Check script definitions for problems that break form building",
		Long: "Lint definition files: unknown parameter kinds, malformed choices, missing or " +
			"unknown groups and duplicate script identifiers are reported per file.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			violations, err := lintDirs(cmd.Context(), args)
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no problems found")
				return nil
			}

			sort.Slice(violations, func(i, j int) bool {
				if violations[i].file == violations[j].file {
					if violations[i].location == violations[j].location {
						return violations[i].message < violations[j].message
					}
					return violations[i].location < violations[j].location
				}
				return violations[i].file < violations[j].file
			})
			for _, v := range violations {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s -> %s\n", v.file, v.location, v.message)
			}
			return fmt.Errorf("%d problem(s) found", len(violations))
		},
	}
}

func lintDirs(ctx context.Context, dirs []string) ([]violation, error) {
	builder := model.NewBuilder()
	seen := make(map[int64]string)
	var result []violation

	for _, dir := range dirs {
		fsys := os.DirFS(dir)
		err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() || !isDefinitionPath(path) {
				return nil
			}
			file := filepath.Join(dir, filepath.FromSlash(path))

			data, err := fs.ReadFile(fsys, path)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			doc, err := scripts.ParseDocument(data, file)
			if err != nil {
				result = append(result, violation{file: file, location: "document", message: err.Error()})
				return nil
			}
			for _, def := range doc.Scripts {
				result = append(result, lintDefinition(ctx, builder, file, def, seen)...)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func lintDefinition(ctx context.Context, builder *model.Builder, file string, def scripts.Definition, seen map[int64]string) []violation {
	location := fmt.Sprintf("script %d (%s)", def.Script.ID, def.Script.Name)
	report := func(where, message string) violation {
		return violation{file: file, location: where, message: message}
	}

	var result []violation
	if def.Script.ID <= 0 {
		result = append(result, report(location, "script id must be positive"))
	}
	if previous, ok := seen[def.Script.ID]; ok {
		result = append(result, report(location, "duplicate script id, first declared in "+previous))
	} else {
		seen[def.Script.ID] = file
	}

	params, err := def.Resolve()
	if err != nil {
		return append(result, report(location, err.Error()))
	}

	slugs := make(map[string]struct{}, len(params))
	for _, param := range params {
		where := location + " parameter " + param.Slug
		if _, dup := slugs[param.Slug]; dup {
			result = append(result, report(where, "duplicate slug"))
		}
		slugs[param.Slug] = struct{}{}

		if _, _, err := param.GroupKey(); err != nil {
			result = append(result, report(where, err.Error()))
		}
		if _, err := builder.BuildField(ctx, param, nil); err != nil {
			result = append(result, report(where, err.Error()))
		}
	}
	return result
}

func isDefinitionPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
