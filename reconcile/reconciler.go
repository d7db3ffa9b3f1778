package reconcile

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Syncer is the part of the entitlement engine a sweep needs
type Syncer interface {
	ActiveIntegrations(ctx context.Context) ([]*entitlements.Integration, error)
	SyncIntegrationTier(ctx context.Context, userID, externalID, tier string) error
	MarkError(ctx context.Context, userID string, cause error) error
}

// Result counts the outcome of one sweep. Skipped records were not attempted
// because the sweep's context ended first.
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped,omitempty"`
}

// Reconciler re-applies every active integration's tier
type Reconciler struct {
	syncer      Syncer
	concurrency int
	logger      zerolog.Logger
}

type Option func(*Reconciler)

// WithConcurrency caps how many integrations are synced at once. One means sequential.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func New(syncer Syncer, options ...Option) (*Reconciler, error) {
	if syncer == nil {
		return nil, errors.New("[reconcile.New] syncer is required")
	}
	r := &Reconciler{
		syncer:      syncer,
		concurrency: 1,
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// SyncAll sweeps every active integration. A failing record is marked and
// counted; only a failure to list integrations is returned as an error.
func (r *Reconciler) SyncAll(ctx context.Context) (Result, error) {
	integrations, err := r.syncer.ActiveIntegrations(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Reconciler.SyncAll] ActiveIntegrations")
	}

	var success, failed, skipped int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	scheduled := 0
	for _, integration := range integrations {
		if gctx.Err() != nil {
			break
		}
		scheduled++
		g.Go(func() error {
			if gctx.Err() != nil {
				atomic.AddInt64(&skipped, 1)
				return nil
			}
			if err := r.syncOne(gctx, integration); err != nil {
				atomic.AddInt64(&failed, 1)
				return nil
			}
			atomic.AddInt64(&success, 1)
			return nil
		})
	}
	_ = g.Wait() // workers never return an error
	skipped += int64(len(integrations) - scheduled)

	result := Result{Success: int(success), Failed: int(failed), Skipped: int(skipped)}
	r.logger.Info().Int("success", result.Success).Int("failed", result.Failed).Int("skipped", result.Skipped).Msg("entitlement sweep complete")
	return result, nil
}

func (r *Reconciler) syncOne(ctx context.Context, integration *entitlements.Integration) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic: %v", rec)
		}
		if err != nil {
			r.logger.Err(err).Str("user_id", integration.UserID).Msg("integration sync failed")
			if markErr := r.syncer.MarkError(ctx, integration.UserID, err); markErr != nil {
				r.logger.Err(markErr).Str("user_id", integration.UserID).Msg("failed to record sync error")
			}
		}
	}()
	return r.syncer.SyncIntegrationTier(ctx, integration.UserID, integration.SoloSuccessUserID, integration.SubscriptionTier)
}

// Run sweeps on every tick until ctx is cancelled. A zero interval disables it.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.SyncAll(ctx); err != nil {
				r.logger.Err(err).Msg("scheduled entitlement sweep failed")
			}
		}
	}
}
