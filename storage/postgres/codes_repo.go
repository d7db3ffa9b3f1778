package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-entitlement-auth/authcode"
)

var _ authcode.Repo = (*CodeRepo)(nil)

type CodeRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRepo(pool *pgxpool.Pool) *CodeRepo {
	return &CodeRepo{pool: pool}
}

func (r *CodeRepo) Save(ctx context.Context, code *authcode.Code) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO authorization_codes (code, user_id, client_id, redirect_uri, issued_at, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)`,
		code.Code, code.UserID, code.ClientID, code.RedirectURI, code.IssuedAt, code.ExpiresAt)
	return mapError(err, "authorization code", "")
}

// Consume flips the consumed flag and returns the row in one statement, so
// two racing exchanges cannot both see an unconsumed code
func (r *CodeRepo) Consume(ctx context.Context, code string) (*authcode.Code, error) {
	var c authcode.Code
	err := r.pool.QueryRow(ctx, `
		UPDATE authorization_codes SET consumed = TRUE
		WHERE code = $1 AND NOT consumed
		RETURNING code, user_id, client_id, redirect_uri, issued_at, expires_at, consumed`, code).
		Scan(&c.Code, &c.UserID, &c.ClientID, &c.RedirectURI, &c.IssuedAt, &c.ExpiresAt, &c.Consumed)
	if err != nil {
		return nil, mapError(err, "authorization code", "")
	}
	return &c, nil
}

func (r *CodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM authorization_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapError(err, "authorization codes", "")
	}
	return int(tag.RowsAffected()), nil
}
