package tokencleanup

import (
	"context"
	"time"

	"github.com/impenglish/backend/internal/logger"
	"github.com/impenglish/backend/internal/repository"
)

const defaultInterval = time.Hour

// Sweeper deletes expired refresh token records in the background. Expired
// records are already inert for authorization, the sweep only reclaims
// storage, so it never races a live state transition.
type Sweeper struct {
	interval    time.Duration
	refreshRepo repository.RefreshTokenRepo
	logger      logger.Logger
}

func New(interval time.Duration, refreshRepo repository.RefreshTokenRepo, l logger.Logger) *Sweeper {
	if interval == 0 {
		interval = defaultInterval
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Sweeper{
		interval:    interval,
		refreshRepo: refreshRepo,
		logger:      l,
	}
}

// Run sweeps once immediately and then on every tick until the context is
// cancelled. The returned channel is closed when the sweeper stops.
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting token sweeper", "interval", s.interval)

	go func() {
		defer close(idleStopped)

		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Token sweeper stopped by context")
				return

			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	return idleStopped
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.refreshRepo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("Failed to delete expired refresh tokens", "error", err.Error())
		return
	}

	if deleted > 0 {
		s.logger.Info("Deleted expired refresh tokens", "count", deleted)
	}
}
