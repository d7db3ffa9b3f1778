package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-entitlement-auth/users"
)

var _ users.Repo = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, COALESCE(external_id, ''), created_at, updated_at`

func (r *UserRepo) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, external_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, string(user.Role),
		nullable(user.ExternalID), user.CreatedAt, user.UpdatedAt)
	return mapError(err, "user", user.Email)
}

func (r *UserRepo) Update(ctx context.Context, user *users.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5, role = $6, external_id = $7, updated_at = $8
		WHERE id = $1`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, string(user.Role),
		nullable(user.ExternalID), user.UpdatedAt)
	if err != nil {
		return mapError(err, "user", user.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "user", user.ID)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	return user, mapError(err, "user", id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	return user, mapError(err, "user", email)
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*users.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID)
	user, err := scanUser(row)
	return user, mapError(err, "user", externalID)
}

func scanUser(row pgx.Row) (*users.User, error) {
	var (
		u    users.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role, &u.ExternalID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = users.RoleType(role)
	return &u, nil
}
