package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-entitlement-auth/entitlements"
)

var _ entitlements.IntegrationRepo = (*IntegrationRepo)(nil)

type IntegrationRepo struct {
	pool *pgxpool.Pool
}

func NewIntegrationRepo(pool *pgxpool.Pool) *IntegrationRepo {
	return &IntegrationRepo{pool: pool}
}

const integrationColumns = `user_id, solosuccess_user_id, subscription_tier, is_active, sync_status, last_sync_at, last_error, created_at, updated_at`

func (r *IntegrationRepo) Get(ctx context.Context, userID string) (*entitlements.Integration, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+integrationColumns+` FROM solosuccess_integrations WHERE user_id = $1`, userID)
	i, err := scanIntegration(row)
	return i, mapError(err, "integration", userID)
}

func (r *IntegrationRepo) Upsert(ctx context.Context, i *entitlements.Integration) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO solosuccess_integrations (`+integrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			solosuccess_user_id = EXCLUDED.solosuccess_user_id,
			subscription_tier = EXCLUDED.subscription_tier,
			is_active = EXCLUDED.is_active,
			sync_status = EXCLUDED.sync_status,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at`,
		i.UserID, i.SoloSuccessUserID, i.SubscriptionTier, i.IsActive, string(i.SyncStatus),
		i.LastSyncAt, i.LastError, i.CreatedAt, i.UpdatedAt)
	return mapError(err, "integration", i.UserID)
}

func (r *IntegrationRepo) Update(ctx context.Context, i *entitlements.Integration) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE solosuccess_integrations
		SET solosuccess_user_id = $2, subscription_tier = $3, is_active = $4, sync_status = $5,
			last_sync_at = $6, last_error = $7, updated_at = $8
		WHERE user_id = $1`,
		i.UserID, i.SoloSuccessUserID, i.SubscriptionTier, i.IsActive, string(i.SyncStatus),
		i.LastSyncAt, i.LastError, i.UpdatedAt)
	if err != nil {
		return mapError(err, "integration", i.UserID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "integration", i.UserID)
	}
	return nil
}

func (r *IntegrationRepo) ListActive(ctx context.Context) ([]*entitlements.Integration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+integrationColumns+` FROM solosuccess_integrations
		WHERE is_active ORDER BY user_id`)
	if err != nil {
		return nil, mapError(err, "integrations", "")
	}
	defer rows.Close()

	list := make([]*entitlements.Integration, 0)
	for rows.Next() {
		i, err := scanIntegration(rows)
		if err != nil {
			return nil, mapError(err, "integrations", "")
		}
		list = append(list, i)
	}
	return list, mapError(rows.Err(), "integrations", "")
}

func scanIntegration(row pgx.Row) (*entitlements.Integration, error) {
	var (
		i      entitlements.Integration
		status string
	)
	if err := row.Scan(&i.UserID, &i.SoloSuccessUserID, &i.SubscriptionTier, &i.IsActive, &status,
		&i.LastSyncAt, &i.LastError, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	i.SyncStatus = entitlements.SyncStatus(status)
	return &i, nil
}
