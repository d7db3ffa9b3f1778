package server

import (
	"context"
	"time"
)

const defaultSweepInterval = time.Minute

// RunSweepers drops expired authorization codes, reset tokens and deny-list
// entries on every tick until ctx is cancelled.
func (s *Server) RunSweepers(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Server) sweep(ctx context.Context) {
	codes, err := s.services.Codes.Sweep(ctx)
	if err != nil {
		s.logger.Err(err).Msg("authorization code sweep failed")
	}
	resets := s.services.ResetTokens.Sweep()
	s.services.Tokens.CleanupRevokedTokens(ctx)

	if codes > 0 || resets > 0 {
		s.logger.Debug().Int("codes", codes).Int("reset_tokens", resets).Msg("sweep complete")
	}
}
