package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobassist/jobassist/internal/api/store"
)

// HousekeepingService periodically purges refresh sessions that are revoked
// or expired and clears action tokens past their expiry.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Metrics  *Metrics

	// Timeout bounds one sweep.
	Timeout time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the worker. It runs one sweep immediately.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup(time.Now())

	for {
		select {
		case t := <-ticker.C:
			s.cleanup(t)
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each purge independently; one failing does not skip the rest.
func (s *HousekeepingService) cleanup(now time.Time) {
	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	now = now.UTC()

	sessions, err := s.Store.Sessions().PurgeSessions(ctx, now)
	if err != nil {
		s.Logger.Error("failed to purge refresh sessions", "error", err)
	} else {
		s.Metrics.swept("refresh_sessions", sessions)
	}

	tokens, err := s.Store.Users().DeleteExpiredActionTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to clear expired action tokens", "error", err)
	} else {
		s.Metrics.swept("action_tokens", tokens)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"sessions_purged", sessions,
		"action_tokens_cleared", tokens,
	)
}
