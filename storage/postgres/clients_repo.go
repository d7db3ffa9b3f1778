package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-entitlement-auth/clients"
)

var _ clients.Repo = (*ClientRepo)(nil)

type ClientRepo struct {
	pool *pgxpool.Pool
}

func NewClientRepo(pool *pgxpool.Pool) *ClientRepo {
	return &ClientRepo{pool: pool}
}

const clientColumns = `client_id, client_secret_hash, name, redirect_uri, webhook_url, webhook_secret, is_active, created_at, updated_at`

func (r *ClientRepo) Create(ctx context.Context, c *clients.Client) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO oauth_clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.SecretHash, c.Name, c.RedirectURI, c.WebhookURL, c.WebhookSecret, c.IsActive, c.CreatedAt, c.UpdatedAt)
	return mapError(err, "client", c.ID)
}

func (r *ClientRepo) Update(ctx context.Context, c *clients.Client) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE oauth_clients
		SET name = $2, redirect_uri = $3, webhook_url = $4, webhook_secret = $5, is_active = $6, updated_at = $7
		WHERE client_id = $1`,
		c.ID, c.Name, c.RedirectURI, c.WebhookURL, c.WebhookSecret, c.IsActive, c.UpdatedAt)
	if err != nil {
		return mapError(err, "client", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "client", c.ID)
	}
	return nil
}

func (r *ClientRepo) Get(ctx context.Context, clientID string) (*clients.Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM oauth_clients WHERE client_id = $1`, clientID)
	c, err := scanClient(row)
	return c, mapError(err, "client", clientID)
}

func (r *ClientRepo) List(ctx context.Context, offset, limit int) ([]*clients.Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+` FROM oauth_clients
		ORDER BY created_at, client_id
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, mapError(err, "clients", "")
	}
	defer rows.Close()

	list := make([]*clients.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, mapError(err, "clients", "")
		}
		list = append(list, c)
	}
	return list, mapError(rows.Err(), "clients", "")
}

func scanClient(row pgx.Row) (*clients.Client, error) {
	var c clients.Client
	if err := row.Scan(&c.ID, &c.SecretHash, &c.Name, &c.RedirectURI, &c.WebhookURL, &c.WebhookSecret, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
