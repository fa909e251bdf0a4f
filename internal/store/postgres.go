package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/typeid"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS designs (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS design_snapshots (
    id         TEXT PRIMARY KEY,
    design_id  TEXT NOT NULL REFERENCES designs(id) ON DELETE CASCADE,
    version    INTEGER NOT NULL,
    document   JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (design_id, version)
);`

// Postgres stores every save as a new snapshot row.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, d *document.Design) error {
	data, err := encode(d)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO designs (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`,
			d.ID, d.Name)
		if err != nil {
			return fmt.Errorf("upsert design: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO design_snapshots (id, design_id, version, document)
			SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3
			FROM design_snapshots WHERE design_id = $2`,
			typeid.NewSnapshotID(), d.ID, data)
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		return nil
	})
}

func (p *Postgres) Load(ctx context.Context, id string) (*document.Design, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `
		SELECT document FROM design_snapshots
		WHERE design_id = $1 ORDER BY version DESC LIMIT 1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return decode(data)
}

func (p *Postgres) LoadVersion(ctx context.Context, id string, version int) (*document.Design, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `
		SELECT document FROM design_snapshots WHERE design_id = $1 AND version = $2`,
		id, version).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return decode(data)
}

func (p *Postgres) Versions(ctx context.Context, id string) ([]Version, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, design_id, version, created_at FROM design_snapshots
		WHERE design_id = $1 ORDER BY version`, id)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Version, error) {
		var v Version
		var at time.Time
		err := row.Scan(&v.ID, &v.DesignID, &v.Version, &at)
		v.CreatedAt = at.UTC().Format(time.RFC3339)
		return v, err
	})
}

func (p *Postgres) List(ctx context.Context) ([]document.Summary, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name, updated_at FROM designs ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (document.Summary, error) {
		var s document.Summary
		var at time.Time
		err := row.Scan(&s.ID, &s.Name, &at)
		s.UpdatedAt = at.UTC().Format(time.RFC3339)
		return s, err
	})
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM designs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
