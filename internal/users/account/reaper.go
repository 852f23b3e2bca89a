// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"log/slog"
	"time"
)

// Reaper periodically removes registrations that were never activated.
type Reaper struct {
	service  *Service
	logger   *slog.Logger
	ttl      time.Duration
	interval time.Duration
}

// NewReaper builds a reaper that deletes pending accounts older than ttl
// every interval.
func NewReaper(service *Service, logger *slog.Logger, ttl, interval time.Duration) *Reaper {
	return &Reaper{service: service, logger: logger, ttl: ttl, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (reaper *Reaper) Run(ctx context.Context) {
	reaper.logger.Info("account_reaper_started",
		slog.Duration("ttl", reaper.ttl),
		slog.Duration("interval", reaper.interval),
	)

	ticker := time.NewTicker(reaper.interval)
	defer ticker.Stop()

	for {
		reaper.Sweep(ctx)

		select {
		case <-ctx.Done():
			reaper.logger.Info("account_reaper_stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs a single purge and returns how many accounts it removed.
func (reaper *Reaper) Sweep(ctx context.Context) int {
	removed, err := reaper.service.RemoveUnactivated(ctx, reaper.ttl)
	if err != nil {
		if ctx.Err() == nil {
			reaper.logger.Error("account_reaper_sweep_failed", slog.Any("error", err))
		}
		return 0
	}

	if len(removed) > 0 {
		reaper.logger.Info("account_reaper_swept", slog.Int("removed", len(removed)))
	}
	return len(removed)
}
