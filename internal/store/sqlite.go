package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/typeid"
)

const sqliteSchema = `
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS designs (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS design_snapshots (
    id         TEXT PRIMARY KEY,
    design_id  TEXT NOT NULL REFERENCES designs(id) ON DELETE CASCADE,
    version    INTEGER NOT NULL,
    document   BLOB NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (design_id, version)
);`

// SQLite is the single-file backend used by desktop builds and tests.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (s *SQLite) Save(ctx context.Context, d *document.Design) error {
	data, err := encode(d)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	at := now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO designs (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		d.ID, d.Name, at, at)
	if err != nil {
		return fmt.Errorf("upsert design: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO design_snapshots (id, design_id, version, document, created_at)
		SELECT ?, ?, COALESCE(MAX(version), 0) + 1, ?, ?
		FROM design_snapshots WHERE design_id = ?`,
		typeid.NewSnapshotID(), d.ID, data, at, d.ID)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) Load(ctx context.Context, id string) (*document.Design, error) {
	return s.loadRow(s.db.QueryRowContext(ctx, `
		SELECT document FROM design_snapshots
		WHERE design_id = ? ORDER BY version DESC LIMIT 1`, id))
}

func (s *SQLite) LoadVersion(ctx context.Context, id string, version int) (*document.Design, error) {
	return s.loadRow(s.db.QueryRowContext(ctx, `
		SELECT document FROM design_snapshots WHERE design_id = ? AND version = ?`, id, version))
}

func (s *SQLite) loadRow(row *sql.Row) (*document.Design, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return decode(data)
}

func (s *SQLite) Versions(ctx context.Context, id string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, design_id, version, created_at FROM design_snapshots
		WHERE design_id = ? ORDER BY version`, id)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var out []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ID, &v.DesignID, &v.Version, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLite) List(ctx context.Context) ([]document.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, updated_at FROM designs`)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	defer rows.Close()
	out := []document.Summary{}
	for rows.Next() {
		var sm document.Summary
		if err := rows.Scan(&sm.ID, &sm.Name, &sm.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortSummaries(out)
	return out, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM designs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
