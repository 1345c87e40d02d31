package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database file at path and applies migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	conn.SetMaxOpenConns(1)

	db := &SQLite{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *SQLite) Close() error {
	return db.conn.Close()
}

func (db *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS designs (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			format TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			document TEXT NOT NULL,
			blueprint TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_designs_owner ON designs(owner_id, updated_at)`,
	}
	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

const sqliteColumns = `id, owner_id, name, format, version, document, blueprint, created_at, updated_at`

func (db *SQLite) Create(ctx context.Context, d *Design) error {
	now := time.Now().UTC()
	d.Version = 1
	d.CreatedAt, d.UpdatedAt = now, now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO designs (`+sqliteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.Name, d.Format, d.Version, string(d.Document), nullText(d.Blueprint),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert design: %w", err)
	}
	return nil
}

func (db *SQLite) Get(ctx context.Context, id string) (*Design, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM designs WHERE id = ?`, id)
	d, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get design: %w", err)
	}
	return d, nil
}

func (db *SQLite) List(ctx context.Context, ownerID string) ([]Design, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM designs WHERE ? = '' OR owner_id = ? ORDER BY updated_at DESC, id`,
		ownerID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	defer rows.Close()

	designs := []Design{}
	for rows.Next() {
		d, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan design: %w", err)
		}
		designs = append(designs, *d)
	}
	return designs, rows.Err()
}

func (db *SQLite) Save(ctx context.Context, d *Design) error {
	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE designs SET name = ?, format = ?, document = ?, blueprint = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		d.Name, d.Format, string(d.Document), nullText(d.Blueprint), formatTime(now), d.ID, d.Version,
	)
	if err != nil {
		return fmt.Errorf("update design: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update design: %w", err)
	}
	if n == 0 {
		var exists int
		err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM designs WHERE id = ?`, d.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check design: %w", err)
		}
		return ErrConflict
	}
	d.Version++
	d.UpdatedAt = now
	return nil
}

func (db *SQLite) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM designs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(s scanner) (*Design, error) {
	var (
		d                    Design
		doc                  string
		bp                   sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Format, &d.Version, &doc, &bp, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.Document = []byte(doc)
	if bp.Valid && bp.String != "" {
		d.Blueprint = []byte(bp.String)
	}
	var err error
	if d.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &d, nil
}

// timeLayout is fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullText(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
