package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/programmerrakibul/book-wagon-client/internal/database"
)

type PostgresBackend struct {
	db *database.DB
}

func NewPostgresBackend(db *database.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (p *PostgresBackend) Get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := p.db.Pool.QueryRow(ctx, `
		SELECT value FROM client_storage
		WHERE namespace = $1 AND key = $2
	`, namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (p *PostgresBackend) Set(ctx context.Context, namespace, key, value string) error {
	_, err := p.db.Pool.Exec(ctx, `
		INSERT INTO client_storage (namespace, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, namespace, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, namespace, key string) error {
	_, err := p.db.Pool.Exec(ctx, `DELETE FROM client_storage WHERE namespace = $1 AND key = $2`, namespace, key)
	return err
}

func (p *PostgresBackend) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := p.db.Pool.Exec(ctx, `DELETE FROM client_storage WHERE namespace = $1`, namespace)
	return err
}
