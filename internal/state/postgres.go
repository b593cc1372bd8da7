package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	createStateTable = `CREATE TABLE IF NOT EXISTS combo_state (
	id         SMALLINT PRIMARY KEY,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectStateDoc = `SELECT doc FROM combo_state WHERE id = 1`
	upsertStateDoc = `INSERT INTO combo_state (id, doc, updated_at) VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`
)

// PostgresBackend stores the document as a single jsonb row.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend ensures the state table exists and returns the backend.
func NewPostgresBackend(ctx context.Context, db *sqlx.DB) (*PostgresBackend, error) {
	if db == nil {
		return nil, errors.New("state: nil database handle")
	}
	if _, err := db.ExecContext(ctx, createStateTable); err != nil {
		return nil, fmt.Errorf("state: ensure table: %w", err)
	}
	return &PostgresBackend{db: db}, nil
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Load(ctx context.Context) (Document, error) {
	var raw []byte
	err := b.db.GetContext(ctx, &raw, selectStateDoc)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultDocument(), ErrNotFound
	}
	if err != nil {
		return DefaultDocument(), fmt.Errorf("state: select: %w", err)
	}
	return Decode(raw)
}

func (b *PostgresBackend) Save(ctx context.Context, doc Document) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	if _, err := b.db.ExecContext(ctx, upsertStateDoc, string(data), updated.UTC()); err != nil {
		return fmt.Errorf("state: upsert: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Close() error { return b.db.Close() }
