package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/freightdesk/internal/platform/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_documents (
	key        TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	version    BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores documents in the kv_documents table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pool. Call EnsureSchema once before first use.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the backing table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("kv: ensure schema: %w", err)
	}
	return nil
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, key string) (Document, bool, error) {
	var doc Document
	err := p.pool.QueryRow(ctx, `SELECT data, version FROM kv_documents WHERE key = $1`, key).
		Scan(&doc.Data, &doc.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("kv: select %s: %w", key, err)
	}
	return doc, true, nil
}

// Set implements Store.
func (p *Postgres) Set(ctx context.Context, key string, data json.RawMessage, expected int64) (int64, error) {
	next := expected + 1
	err := db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		var current int64
		err := tx.QueryRow(ctx, `SELECT version FROM kv_documents WHERE key = $1 FOR UPDATE`, key).Scan(&current)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			current = 0
		case err != nil:
			return fmt.Errorf("kv: lock %s: %w", key, err)
		}
		if current != expected {
			return ErrVersionConflict
		}
		if expected == 0 {
			_, err = tx.Exec(ctx, `INSERT INTO kv_documents (key, data, version) VALUES ($1, $2, $3)`, key, []byte(data), next)
		} else {
			_, err = tx.Exec(ctx, `UPDATE kv_documents SET data = $2, version = $3, updated_at = now() WHERE key = $1`, key, []byte(data), next)
		}
		return err
	})
	if err != nil {
		if isConflict(err) {
			return 0, ErrVersionConflict
		}
		return 0, err
	}
	return next, nil
}

func isConflict(err error) bool {
	if errors.Is(err, ErrVersionConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// unique_violation on a racing first insert, serialization_failure under RepeatableRead
		return pgErr.Code == "23505" || pgErr.Code == "40001"
	}
	return false
}
