package fakeuserrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/jrsteele09/go-entitlement-auth/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]*users.User
	emailIds    map[string]string // email to user id
	externalIds map[string]string // external id to user id
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.User),
		emailIds:    make(map[string]string),
		externalIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if _, ok := ur.emailIds[user.Email]; ok {
		return apperrors.Wrapf(apperrors.ErrDuplicate, "email %s", user.Email)
	}
	if user.ExternalID != "" {
		if _, ok := ur.externalIds[user.ExternalID]; ok {
			return apperrors.Wrapf(apperrors.ErrDuplicate, "external id %s", user.ExternalID)
		}
		ur.externalIds[user.ExternalID] = user.ID
	}
	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) Update(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	existing, ok := ur.users[user.ID]
	if !ok {
		return apperrors.NotFound("user", user.ID)
	}
	if id, ok := ur.emailIds[user.Email]; ok && id != user.ID {
		return apperrors.Wrapf(apperrors.ErrDuplicate, "email %s", user.Email)
	}
	if user.ExternalID != "" {
		if id, ok := ur.externalIds[user.ExternalID]; ok && id != user.ID {
			return apperrors.Wrapf(apperrors.ErrDuplicate, "external id %s", user.ExternalID)
		}
	}
	delete(ur.emailIds, existing.Email)
	if existing.ExternalID != "" {
		delete(ur.externalIds, existing.ExternalID)
	}
	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[user.Email] = user.ID
	if user.ExternalID != "" {
		ur.externalIds[user.ExternalID] = user.ID
	}
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (ur *FakeUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.emailIds[email]
	ur.lock.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("user", email)
	}
	return ur.GetByID(ctx, id)
}

func (ur *FakeUserRepo) GetByExternalID(ctx context.Context, externalID string) (*users.User, error) {
	ur.lock.RLock()
	id, ok := ur.externalIds[externalID]
	ur.lock.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("user", externalID)
	}
	return ur.GetByID(ctx, id)
}

// Count returns the number of stored users
func (ur *FakeUserRepo) Count() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}
