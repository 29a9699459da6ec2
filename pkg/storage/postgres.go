package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflow_snapshots (
    key        TEXT PRIMARY KEY,
    data       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Postgres stores snapshots as jsonb rows keyed by workflow key.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// CreateSchema creates the workflow_snapshots table if it doesn't exist.
func (p *Postgres) CreateSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, schemaSQL)
	return err
}

func (p *Postgres) Save(ctx context.Context, key string, data []byte) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO workflow_snapshots (key, data, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := p.db.QueryRow(ctx,
		`SELECT data FROM workflow_snapshots WHERE key = $1`, key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get snapshot: %w", err)
	}
	return data, nil
}

func (p *Postgres) Clear(ctx context.Context, key string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM workflow_snapshots WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("storage: delete snapshot: %w", err)
	}
	return nil
}
