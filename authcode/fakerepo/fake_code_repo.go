package fakecoderepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-entitlement-auth/authcode"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
)

var _ authcode.Repo = (*FakeCodeRepo)(nil)

// FakeCodeRepo keeps codes in a map. Consumed codes stay in the map until
// they expire so that a replay is still recognised as a consumed code.
type FakeCodeRepo struct {
	codes map[string]*authcode.Code
	lock  sync.Mutex
}

func NewFakeCodeRepo() *FakeCodeRepo {
	return &FakeCodeRepo{
		codes: make(map[string]*authcode.Code),
	}
}

func (r *FakeCodeRepo) Save(_ context.Context, code *authcode.Code) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.codes[code.Code]; ok {
		return apperrors.ErrDuplicate
	}
	c := *code
	r.codes[code.Code] = &c
	return nil
}

func (r *FakeCodeRepo) Consume(_ context.Context, code string) (*authcode.Code, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	stored, ok := r.codes[code]
	if !ok || stored.Consumed {
		return nil, apperrors.NotFound("authorization code", "")
	}
	stored.Consumed = true
	c := *stored
	return &c, nil
}

func (r *FakeCodeRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	n := 0
	for k, c := range r.codes {
		if c.Expired(now) {
			delete(r.codes, k)
			n++
		}
	}
	return n, nil
}

func (r *FakeCodeRepo) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.codes)
}
