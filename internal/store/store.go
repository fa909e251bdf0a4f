// Package store persists design files. Every backend keeps the latest
// document per design; the SQL backends also keep a numbered version per save.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/inamate/canvas/internal/document"
)

var ErrNotFound = document.ErrNotFound

type Store interface {
	Save(ctx context.Context, d *document.Design) error
	Load(ctx context.Context, id string) (*document.Design, error)
	List(ctx context.Context) ([]document.Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Version is one saved revision of a design.
type Version struct {
	ID        string `json:"id"`
	DesignID  string `json:"designId"`
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
}

// Versioned is implemented by stores that keep every save.
type Versioned interface {
	Versions(ctx context.Context, id string) ([]Version, error)
	LoadVersion(ctx context.Context, id string, version int) (*document.Design, error)
}

// Open picks a backend by driver name: "memory", "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "postgres", "pgx":
		return NewPostgres(ctx, dsn)
	case "sqlite":
		return NewSQLite(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

func encode(d *document.Design) ([]byte, error) {
	if d == nil || d.ID == "" {
		return nil, fmt.Errorf("%w: missing id", document.ErrInvalidDesign)
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal design: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*document.Design, error) {
	var d document.Design
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal design: %w", err)
	}
	return &d, nil
}

func sortSummaries(out []document.Summary) {
	slices.SortFunc(out, func(a, b document.Summary) int {
		if a.UpdatedAt != b.UpdatedAt {
			if a.UpdatedAt > b.UpdatedAt {
				return -1
			}
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
