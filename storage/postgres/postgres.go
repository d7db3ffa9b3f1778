package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Connect opens a pool and checks the database is reachable
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates any missing tables. It is safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// mapError turns driver errors into the service error taxonomy
func mapError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NotFound(resource, id)
	case isUniqueViolation(err):
		return apperrors.Wrapf(apperrors.ErrDuplicate, "%s %s", resource, id)
	default:
		return fmt.Errorf("%s %s: %w", resource, id, err)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
