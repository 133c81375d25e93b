// Package migrations встроенная схема PostgreSQL и ее применение.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"nestor-insights/internal/storage/postgres"
)

const schemaTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// RunPostgresMigrations применяет еще не примененные файлы по порядку имен.
// Каждый файл выполняется в своей транзакции вместе с отметкой в schema_migrations,
// поэтому повторный запуск ничего не меняет. Возвращает число примененных файлов.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) (int, error) {
	if _, err := pool.Exec(ctx, schemaTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := PostgresFiles()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, path.Join("postgres", file))
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}
		version := strings.TrimSuffix(file, ".sql")

		var done bool
		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
			).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return nil
			}
			if sql := strings.TrimSpace(string(data)); sql != "" {
				if _, err := tx.Exec(ctx, sql); err != nil {
					return err
				}
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
				return err
			}
			done = true
			return nil
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", file, err)
		}
		if done {
			applied++
		}
	}

	return applied, nil
}

// PostgresFiles имена встроенных миграций в порядке применения
func PostgresFiles() ([]string, error) {
	entries, err := fs.ReadDir(PostgresFS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
