package kv

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/freightdesk/internal/platform/db"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("FREIGHTDESK_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("FREIGHTDESK_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.New(ctx, dsn, db.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewPostgres(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	_, err = pool.Exec(ctx, `DELETE FROM kv_documents WHERE key = 'freightData'`)
	require.NoError(t, err)

	exerciseStore(t, store)
}
