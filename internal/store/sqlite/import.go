package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-scriptform/pkg/scripts"
)

// Import upserts definitions in a single transaction. Each script's groups
// and parameters are replaced wholesale. It returns the IDs of the scripts
// it touched so callers can invalidate cached forms.
func (s *Store) Import(ctx context.Context, defs []scripts.Definition) ([]int64, error) {
	resolved := make([][]scripts.Parameter, len(defs))
	for idx, def := range defs {
		params, err := def.Resolve()
		if err != nil {
			return nil, err
		}
		resolved[idx] = params
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	touched := make([]int64, 0, len(defs))
	for idx, def := range defs {
		if err := importScript(ctx, tx, def, resolved[idx]); err != nil {
			return nil, err
		}
		touched = append(touched, def.Script.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit import: %w", err)
	}
	return touched, nil
}

// Delete removes a script with its groups and parameters. It reports whether
// the script existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("sqlite: delete script %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: delete script %d: %w", id, err)
	}
	return n > 0, nil
}

func importScript(ctx context.Context, tx *sql.Tx, def scripts.Definition, params []scripts.Parameter) error {
	script := def.Script
	if script.ID <= 0 {
		return fmt.Errorf("sqlite: script id must be positive, got %d", script.ID)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO scripts (id, name, description, url) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    description = excluded.description,
    url = excluded.url,
    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		script.ID, script.Name, script.Description, script.URL,
	); err != nil {
		return fmt.Errorf("sqlite: upsert script %d: %w", script.ID, err)
	}

	for _, stmt := range []string{
		`DELETE FROM parameters WHERE script_id = ?`,
		`DELETE FROM parameter_groups WHERE script_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, script.ID); err != nil {
			return fmt.Errorf("sqlite: clear script %d: %w", script.ID, err)
		}
	}

	for _, group := range def.Groups {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parameter_groups (script_id, id, name) VALUES (?, ?, ?)`,
			script.ID, group.ID, group.Name,
		); err != nil {
			return fmt.Errorf("sqlite: insert group %d of script %d: %w", group.ID, script.ID, err)
		}
	}

	for _, param := range params {
		var groupID sql.NullInt64
		if param.Group != nil {
			groupID = sql.NullInt64{Int64: param.Group.ID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO parameters (script_id, id, slug, title, kind, required, help_text,
                        choices, multiple_choice, is_output, group_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			script.ID, param.ID, param.Slug, param.Title, param.Kind, param.Required,
			param.HelpText, param.Choices, param.MultipleChoice, param.IsOutput, groupID,
		); err != nil {
			return fmt.Errorf("sqlite: insert parameter %q of script %d: %w", param.Slug, script.ID, err)
		}
	}
	return nil
}
