package users

import "context"

// Repo stores local identities. Create returns an error wrapping
// errors.ErrDuplicate when the email or external id is already taken.
type Repo interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
}
