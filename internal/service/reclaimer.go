package service

import (
	"context"
	"time"

	"sheltermail/internal/repository"
	"sheltermail/pkg/logger"

	"go.uber.org/zap"
)

// Reclaimer sweeps messages stranded in 'sending' back to 'pending'. A worker
// that dies between the claim update and the outcome update leaves its rows
// in 'sending' forever; the sweeper restores them after a grace period wide
// enough that no live worker can still be holding them. Reclaimed messages
// may be delivered twice.
type Reclaimer struct {
	repo     repository.OutboxInterface
	after    time.Duration
	interval time.Duration
}

func NewReclaimer(repo repository.OutboxInterface, after, interval time.Duration) *Reclaimer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reclaimer{
		repo:     repo,
		after:    after,
		interval: interval,
	}
}

func (r *Reclaimer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	logger.Info("stale-sending reclaimer started",
		zap.Duration("after", r.after), zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("stale-sending reclaimer stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reclaimer) sweep(ctx context.Context) {
	n, err := r.repo.ReclaimStale(ctx, r.after)
	if err != nil {
		logger.Error("stale-sending sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Warn("requeued stale sending messages", zap.Int64("count", n))
	}
}
