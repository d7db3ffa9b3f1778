package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-entitlement-auth/authcode"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/redis/go-redis/v9"
)

var _ authcode.Repo = (*CodeRepo)(nil)

// CodeRepo keeps authorization codes as JSON values that expire with the code
type CodeRepo struct {
	client redis.UniversalClient
}

func NewCodeRepo(client redis.UniversalClient) *CodeRepo {
	return &CodeRepo{client: client}
}

func (r *CodeRepo) Save(ctx context.Context, code *authcode.Code) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("marshal code: %w", err)
	}
	ttl := code.ExpiresAt.Sub(code.IssuedAt)
	if ttl <= 0 {
		return apperrors.Validation("expiresAt", "must be after issuedAt")
	}
	ok, err := r.client.SetNX(ctx, codeKeyPrefix+code.Code, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("persist code: %w", err)
	}
	if !ok {
		return apperrors.ErrDuplicate
	}
	return nil
}

// Consume uses GETDEL so the read and the removal are one server-side step
func (r *CodeRepo) Consume(ctx context.Context, code string) (*authcode.Code, error) {
	payload, err := r.client.GetDel(ctx, codeKeyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("authorization code", "")
		}
		return nil, fmt.Errorf("consume code: %w", err)
	}
	var c authcode.Code
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("decode code: %w", err)
	}
	c.Consumed = true
	return &c, nil
}

// DeleteExpired is a no-op, keys expire on their own
func (r *CodeRepo) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
