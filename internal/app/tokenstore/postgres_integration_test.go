package tokenstore

import (
	"context"
	"os"
	"testing"

	"hzpresence/internal/app/db"
	"hzpresence/internal/pkg/randx"
)

// Integration tests are enabled when HZPRESENCE_DATABASE_URL is set.

func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("HZPRESENCE_DATABASE_URL")
	if dsn == "" {
		t.Skip("HZPRESENCE_DATABASE_URL is not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}
	defer pool.Close()

	namespace := "test-" + randx.MessageID()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM client_kv WHERE namespace = $1`, namespace)
	})

	exerciseStore(t, NewPostgresStore(pool, namespace))
}

func TestPostgresStore_NamespacesAreIsolated(t *testing.T) {
	dsn := os.Getenv("HZPRESENCE_DATABASE_URL")
	if dsn == "" {
		t.Skip("HZPRESENCE_DATABASE_URL is not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}
	defer pool.Close()

	nsA, nsB := "test-"+randx.MessageID(), "test-"+randx.MessageID()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM client_kv WHERE namespace = ANY($1)`, []string{nsA, nsB})
	})

	a, b := NewPostgresStore(pool, nsA), NewPostgresStore(pool, nsB)
	if err := a.Set(ctx, TokenKey, "A"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := b.Get(ctx, TokenKey); err != nil || ok {
		t.Fatalf("namespace leak: ok=%v err=%v", ok, err)
	}
}
