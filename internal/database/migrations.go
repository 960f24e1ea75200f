package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS client_storage (
		namespace VARCHAR(255) NOT NULL,
		key VARCHAR(255) NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (namespace, key)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_client_storage_updated_at ON client_storage(updated_at)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
