package reservation

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically runs the engine's expiry sweep. It owns no state of
// its own; all coordination happens through the ledger's atomic primitives,
// so it composes safely with in-flight confirms and cancels.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(engine *Engine, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		engine:   engine,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting hold sweeper", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping hold sweeper")
			return
		case <-ticker.C:
			count, err := s.engine.SweepExpired(ctx)
			if err != nil {
				s.logger.Error("hold sweep failed", "error", err)
				continue
			}

			if count > 0 {
				s.logger.Info("expired stale holds", "count", count)
			}
		}
	}
}
