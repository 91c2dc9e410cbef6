package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is the subset of *pgxpool.Pool the store uses.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists values in the client_kv table, scoped to a namespace so that
// several local profiles can share one database.
type PostgresStore struct {
	db        PgxQuerier
	namespace string
}

// NewPostgresStore returns a store for namespace. The schema is created by db.NewPool.
func NewPostgresStore(db PgxQuerier, namespace string) *PostgresStore {
	if namespace == "" {
		namespace = "default"
	}
	return &PostgresStore{db: db, namespace: namespace}
}

func (p *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}

	var value string
	err := p.db.QueryRow(ctx,
		`SELECT value FROM client_kv WHERE namespace = $1 AND key = $2`,
		p.namespace, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("tokenstore: postgres get %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	_, err := p.db.Exec(ctx,
		`INSERT INTO client_kv (namespace, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		p.namespace, key, value,
	)
	if err != nil {
		return fmt.Errorf("tokenstore: postgres set %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Remove(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	_, err := p.db.Exec(ctx,
		`DELETE FROM client_kv WHERE namespace = $1 AND key = $2`,
		p.namespace, key,
	)
	if err != nil {
		return fmt.Errorf("tokenstore: postgres remove %s: %w", key, err)
	}
	return nil
}
