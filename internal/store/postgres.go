package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects a pgx pool, verifies it and applies migrations.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &Postgres{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

func (db *Postgres) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS designs (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			format TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			document JSONB NOT NULL,
			blueprint JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_designs_owner ON designs(owner_id, updated_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := db.pool.Exec(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

const pgColumns = `id, owner_id, name, format, version, document, blueprint, created_at, updated_at`

func (db *Postgres) Create(ctx context.Context, d *Design) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO designs (id, owner_id, name, format, version, document, blueprint)
		 VALUES ($1, $2, $3, $4, 1, $5, $6)
		 RETURNING version, created_at, updated_at`,
		d.ID, d.OwnerID, d.Name, d.Format, []byte(d.Document), nullJSON(d.Blueprint),
	).Scan(&d.Version, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert design: %w", err)
	}
	return nil
}

func (db *Postgres) Get(ctx context.Context, id string) (*Design, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM designs WHERE id = $1`, id)
	d, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get design: %w", err)
	}
	return d, nil
}

func (db *Postgres) List(ctx context.Context, ownerID string) ([]Design, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+pgColumns+` FROM designs WHERE $1 = '' OR owner_id = $1 ORDER BY updated_at DESC, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	defer rows.Close()

	designs := []Design{}
	for rows.Next() {
		d, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("scan design: %w", err)
		}
		designs = append(designs, *d)
	}
	return designs, rows.Err()
}

func (db *Postgres) Save(ctx context.Context, d *Design) error {
	err := db.pool.QueryRow(ctx,
		`UPDATE designs
		 SET name = $2, format = $3, document = $4, blueprint = $5, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $6
		 RETURNING version, updated_at`,
		d.ID, d.Name, d.Format, []byte(d.Document), nullJSON(d.Blueprint), d.Version,
	).Scan(&d.Version, &d.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update design: %w", err)
	}

	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM designs WHERE id = $1)`, d.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check design: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (db *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM designs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPostgres(row pgx.Row) (*Design, error) {
	var d Design
	var doc, bp []byte
	if err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Format, &d.Version, &doc, &bp, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Document = doc
	if len(bp) > 0 {
		d.Blueprint = bp
	}
	return &d, nil
}
