package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/robfig/cron/v3"
)

// DefaultHousekeepingSchedule runs cleanup hourly.
const DefaultHousekeepingSchedule = "@every 1h"

// HousekeepingService periodically clears lapsed reset tokens and ceremony
// challenges. Expired values are already ignored on read; this only keeps the
// rows tidy.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Schedule string
	Clock    Clock

	cron *cron.Cron
}

// NewHousekeepingService creates a housekeeping service. An empty schedule
// defaults to DefaultHousekeepingSchedule.
func NewHousekeepingService(st store.Store, logger *slog.Logger, schedule string) *HousekeepingService {
	if schedule == "" {
		schedule = DefaultHousekeepingSchedule
	}
	return &HousekeepingService{Store: st, Logger: logger, Schedule: schedule}
}

// Start runs a cleanup immediately, then on every tick of the schedule.
func (s *HousekeepingService) Start() error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.Logger.Handler(), slog.LevelInfo))
	s.cron = cron.New(cron.WithChain(cron.Recover(cronLogger)))

	if _, err := s.cron.AddFunc(s.Schedule, s.Cleanup); err != nil {
		return fmt.Errorf("failed to schedule housekeeping %q: %w", s.Schedule, err)
	}

	s.Cleanup()
	s.cron.Start()
	s.Logger.Info("housekeeping service started", "schedule", s.Schedule)
	return nil
}

// Stop waits for a running cleanup to finish.
func (s *HousekeepingService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.Logger.Info("housekeeping service stopped")
}

// Cleanup performs one pass. Each step is independent.
func (s *HousekeepingService) Cleanup() {
	ctx := context.Background()
	now := s.Clock.now()
	repo := s.Store.SecurityConfigs()

	if n, err := repo.ClearExpiredResetTokens(ctx, now); err != nil {
		s.Logger.Error("failed to clear expired reset tokens", "error", err)
	} else {
		s.Logger.Debug("cleared expired reset tokens", "count", n)
	}

	if n, err := repo.ClearExpiredChallenges(ctx, now); err != nil {
		s.Logger.Error("failed to clear expired challenges", "error", err)
	} else {
		s.Logger.Debug("cleared expired challenges", "count", n)
	}

	s.Logger.Info("housekeeping cleanup completed")
}
