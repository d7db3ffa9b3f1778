package fakeentitlementrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
)

var _ entitlements.IntegrationRepo = (*FakeIntegrationRepo)(nil)

type FakeIntegrationRepo struct {
	integrations map[string]*entitlements.Integration
	lock         sync.RWMutex
}

func NewFakeIntegrationRepo() *FakeIntegrationRepo {
	return &FakeIntegrationRepo{
		integrations: make(map[string]*entitlements.Integration),
	}
}

func (r *FakeIntegrationRepo) Get(_ context.Context, userID string) (*entitlements.Integration, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	i, ok := r.integrations[userID]
	if !ok {
		return nil, apperrors.NotFound("integration", userID)
	}
	c := *i
	return &c, nil
}

func (r *FakeIntegrationRepo) Upsert(_ context.Context, integration *entitlements.Integration) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	c := *integration
	if existing, ok := r.integrations[integration.UserID]; ok {
		c.CreatedAt = existing.CreatedAt
		c.LastSyncAt = existing.LastSyncAt
	}
	r.integrations[integration.UserID] = &c
	return nil
}

func (r *FakeIntegrationRepo) Update(_ context.Context, integration *entitlements.Integration) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.integrations[integration.UserID]; !ok {
		return apperrors.NotFound("integration", integration.UserID)
	}
	c := *integration
	r.integrations[integration.UserID] = &c
	return nil
}

func (r *FakeIntegrationRepo) ListActive(_ context.Context) ([]*entitlements.Integration, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	list := make([]*entitlements.Integration, 0, len(r.integrations))
	for _, i := range r.integrations {
		if i.IsActive {
			c := *i
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(a, b int) bool { return list[a].UserID < list[b].UserID })
	return list, nil
}

func (r *FakeIntegrationRepo) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.integrations)
}
