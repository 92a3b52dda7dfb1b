package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

// Sweeper is implemented by in-process caches that need periodic pruning,
// such as the memory denylist.
type Sweeper interface {
	Sweep() int
}

// HousekeepingService periodically deletes refresh token records that can
// never be exchanged again. Expiry itself is still decided lazily at
// verification time; this only bounds table growth.
type HousekeepingService struct {
	Store    store.Store
	Sweepers []Sweeper
	Logger   *slog.Logger
	Interval time.Duration

	// Retention keeps expired rows around for a while so replays of
	// recently expired tokens are still recognised as such.
	Retention time.Duration

	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. A non-positive interval defaults to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration, sweepers ...Sweeper) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:     st,
		Sweepers:  sweepers,
		Logger:    logger,
		Interval:  interval,
		Retention: 24 * time.Hour,
		Now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one pass. Each step is independent; a failure in one
// does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	cutoff := s.Now().UTC().Add(-s.Retention)

	n, err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else {
		s.Logger.Debug("deleted expired refresh tokens", "count", n, "cutoff", cutoff)
	}

	swept := 0
	for _, sw := range s.Sweepers {
		swept += sw.Sweep()
	}

	s.Logger.Info("housekeeping cleanup completed", "refresh_tokens_deleted", n, "denylist_swept", swept)
}
