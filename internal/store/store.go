// Package store persists designs. A design row carries the serialized document
// (canvas and elements only), the blueprint it was resolved from and a version that
// increases on every save.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("design not found")
	ErrConflict       = errors.New("design was modified concurrently")
	ErrUnsupportedURL = errors.New("unsupported database url")
)

type Design struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Name      string          `json:"name"`
	Format    string          `json:"format"`
	Version   int             `json:"version"`
	Document  json.RawMessage `json:"document"`
	Blueprint json.RawMessage `json:"blueprint,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store is implemented by the SQLite and PostgreSQL backends.
type Store interface {
	// Create inserts d with version 1 and fills in the timestamps.
	Create(ctx context.Context, d *Design) error
	Get(ctx context.Context, id string) (*Design, error)
	// List returns the designs of ownerID, newest first. An empty owner lists all.
	List(ctx context.Context, ownerID string) ([]Design, error)
	// Save writes d if the stored version still equals d.Version, then bumps
	// d.Version. A stale version yields ErrConflict.
	Save(ctx context.Context, d *Design) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open picks a backend from the URL scheme: sqlite://path or file:path for SQLite,
// postgres:// or postgresql:// for PostgreSQL.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file:"):
		return OpenSQLite(strings.TrimPrefix(url, "file:"))
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
	}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
