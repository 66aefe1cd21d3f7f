package enhance

import (
	"context"
	"log/slog"
	"time"

	"github.com/groundupcareers/resume-enhancer/internal/storage"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultSweepAge      = 30 * time.Minute
)

// Sweeper periodically fails jobs stuck in processing status. A job can
// be left there when the server dies mid-stream, so the database would
// otherwise report it as running forever.
type Sweeper struct {
	store    storage.EnhancementStore
	logger   *slog.Logger
	interval time.Duration
	age      time.Duration
}

// NewSweeper creates a sweeper. Zero interval or age selects the
// defaults of five and thirty minutes.
func NewSweeper(store storage.EnhancementStore, logger *slog.Logger, interval, age time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if age <= 0 {
		age = defaultSweepAge
	}
	return &Sweeper{store: store, logger: logger, interval: interval, age: age}
}

// Run sweeps on a fixed interval until ctx is canceled. It performs one
// sweep immediately so a restart reclaims orphans without waiting a full
// interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
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

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.store.SweepStaleProcessing(ctx, s.age)
	if err != nil {
		s.logger.Error("orphan sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("failed orphaned enhancements", slog.Int("count", n))
	}
}
