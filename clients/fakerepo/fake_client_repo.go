package fakeclientrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-entitlement-auth/clients"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	clients map[string]*clients.Client
	lock    sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[string]*clients.Client),
	}
}

func (r *FakeClientRepo) Create(_ context.Context, clientData *clients.Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.clients[clientData.ID]; ok {
		return apperrors.Wrapf(apperrors.ErrDuplicate, "client %s", clientData.ID)
	}
	stored := *clientData
	r.clients[clientData.ID] = &stored
	return nil
}

func (r *FakeClientRepo) Update(_ context.Context, clientData *clients.Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.clients[clientData.ID]; !ok {
		return apperrors.NotFound("client", clientData.ID)
	}
	stored := *clientData
	r.clients[clientData.ID] = &stored
	return nil
}

func (r *FakeClientRepo) Get(_ context.Context, clientID string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, apperrors.NotFound("client", clientID)
	}
	copied := *client
	return &copied, nil
}

func (r *FakeClientRepo) List(_ context.Context, offset, limit int) ([]*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*clients.Client, 0, len(r.clients))
	for _, v := range r.clients {
		copied := *v
		list = append(list, &copied)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt) ||
			(list[i].CreatedAt.Equal(list[j].CreatedAt) && list[i].ID < list[j].ID)
	})

	if offset >= len(list) {
		return []*clients.Client{}, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}
