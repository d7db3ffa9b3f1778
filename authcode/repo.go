package authcode

import (
	"context"
	"time"
)

type Repo interface {
	Save(ctx context.Context, code *Code) error
	// Consume reads the code and marks it consumed in one step. A missing or
	// already consumed code is reported as ErrNotFound.
	Consume(ctx context.Context, code string) (*Code, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
