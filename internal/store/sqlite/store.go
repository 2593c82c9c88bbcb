// Package sqlite persists script definitions in SQLite and serves them as a
// parameter store and catalog.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/goliatone/go-scriptform/pkg/scripts"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var gooseMu sync.Mutex

// Store implements scripts.ParameterStore and scripts.Catalog on SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ scripts.ParameterStore = (*Store)(nil)
	_ scripts.Catalog        = (*Store)(nil)
)

// Open opens (creating if needed) the database at path, enables foreign keys
// and WAL, and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: database path is not set")
	}

	dsn := path
	if path == MemoryPath {
		dsn = "file::memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	if path == MemoryPath {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: connect: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// migrate runs goose against the embedded migrations. goose keeps its base
// FS and dialect in package state, hence the lock.
func migrate(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(Migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const parametersQuery = `
SELECT p.id, p.script_id, p.slug, p.title, p.kind, p.required, p.help_text,
       p.choices, p.multiple_choice, p.is_output, g.id, g.name
FROM parameters p
LEFT JOIN parameter_groups g ON g.script_id = p.script_id AND g.id = p.group_id
WHERE p.script_id = ?
ORDER BY p.id ASC`

// Parameters implements scripts.ParameterStore. Parameters come back ordered
// by ID; an unknown script yields an empty list.
func (s *Store) Parameters(ctx context.Context, script scripts.Identity) ([]scripts.Parameter, error) {
	if script == nil {
		return nil, errors.New("sqlite: script is required")
	}

	rows, err := s.db.QueryContext(ctx, parametersQuery, script.PrimaryKey())
	if err != nil {
		return nil, fmt.Errorf("sqlite: query parameters: %w", err)
	}
	defer rows.Close()

	var out []scripts.Parameter
	for rows.Next() {
		var (
			param     scripts.Parameter
			groupID   sql.NullInt64
			groupName sql.NullString
		)
		if err := rows.Scan(
			&param.ID, &param.ScriptID, &param.Slug, &param.Title, &param.Kind,
			&param.Required, &param.HelpText, &param.Choices,
			&param.MultipleChoice, &param.IsOutput, &groupID, &groupName,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan parameter: %w", err)
		}
		if groupID.Valid {
			param.Group = &scripts.ParameterGroup{ID: groupID.Int64, Name: groupName.String}
		}
		out = append(out, param)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate parameters: %w", err)
	}
	return out, nil
}

// Script implements scripts.Catalog.
func (s *Store) Script(ctx context.Context, id int64) (scripts.Script, error) {
	var script scripts.Script
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, url FROM scripts WHERE id = ?`, id,
	).Scan(&script.ID, &script.Name, &script.Description, &script.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return scripts.Script{}, fmt.Errorf("%w: %d", scripts.ErrScriptNotFound, id)
	}
	if err != nil {
		return scripts.Script{}, fmt.Errorf("sqlite: query script %d: %w", id, err)
	}
	return script, nil
}

// Scripts implements scripts.Catalog, ordered by ID.
func (s *Store) Scripts(ctx context.Context) ([]scripts.Script, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, url FROM scripts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query scripts: %w", err)
	}
	defer rows.Close()

	var out []scripts.Script
	for rows.Next() {
		var script scripts.Script
		if err := rows.Scan(&script.ID, &script.Name, &script.Description, &script.URL); err != nil {
			return nil, fmt.Errorf("sqlite: scan script: %w", err)
		}
		out = append(out, script)
	}
	return out, rows.Err()
}
