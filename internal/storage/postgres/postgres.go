// Package postgres хранит анкеты и историю паттернов в PostgreSQL через pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nestor-insights/internal/storage"
)

// connectTimeout ограничивает подключение и первый Ping
const connectTimeout = 10 * time.Second

// uniqueViolation код ошибки PostgreSQL при нарушении уникальности
const uniqueViolation = "23505"

// Pool пул соединений, общий для всех хранилищ
type Pool struct {
	*pgxpool.Pool
}

// NewPool подключается к базе и проверяет соединение.
// maxConns <= 0 оставляет значение из DSN.
func NewPool(ctx context.Context, dsn string, maxConns int32) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// storageError переводит ошибки pgx в ошибки пакета storage, остальные оборачивает op
func storageError(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return storage.ErrNotFound
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, storage.ErrInvalidInput)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
