package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres is a Backup store keeping the last document of each key in a
// PostgreSQL table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects to the database and creates the backup table if
// needed.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot reach postgres: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS ledger_backup (
    key      TEXT PRIMARY KEY,
    document BYTEA NOT NULL,
    saved_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);`)
	if err != nil {
		return fmt.Errorf("cannot create ledger_backup table: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT document FROM ledger_backup WHERE key = $1`, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cannot load backup %q: %w", key, err)
	}
	return doc, true, nil
}

func (p *Postgres) Save(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
INSERT INTO ledger_backup (key, document, saved_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET document = EXCLUDED.document, saved_at = EXCLUDED.saved_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("cannot save backup %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
