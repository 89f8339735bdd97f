// Package maintenance runs periodic index upkeep: compaction and the stale
// availability purge, delegated to the indexer's Optimize operation.
package maintenance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openstay/stayindex/internal/metrics"
)

// Defaults for the run schedule.
const (
	DefaultStartupDelay = 10 * time.Minute
	DefaultInterval     = 6 * time.Hour
)

// Optimizer is the maintenance entry point of the indexer.
type Optimizer interface {
	Optimize(ctx context.Context) error
}

// Scheduler triggers Optimize after a startup delay and then on a fixed
// period. Failures are logged and retried on the next tick; they never stop
// the loop.
type Scheduler struct {
	optimizer    Optimizer
	startupDelay time.Duration
	interval     time.Duration
	logger       *zap.Logger

	quit      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a scheduler. Non-positive durations select the defaults.
func New(optimizer Optimizer, startupDelay, interval time.Duration, logger *zap.Logger) *Scheduler {
	if startupDelay <= 0 {
		startupDelay = DefaultStartupDelay
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		optimizer:    optimizer,
		startupDelay: startupDelay,
		interval:     interval,
		logger:       logger,
		quit:         make(chan struct{}),
	}
}

// Start launches the background loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.loop(ctx)
		s.logger.Info("maintenance scheduler started",
			zap.Duration("startup_delay", s.startupDelay),
			zap.Duration("interval", s.interval),
		)
	})
}

// Stop terminates the loop and waits for any in-flight run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	s.wg.Wait()
	s.logger.Info("maintenance scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	delay := time.NewTimer(s.startupDelay)
	defer delay.Stop()
	select {
	case <-delay.C:
	case <-s.quit:
		return
	case <-ctx.Done():
		return
	}

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	err := s.optimizer.Optimize(ctx)
	metrics.MaintenanceRun(err)
	if err != nil {
		s.logger.Error("maintenance run failed", zap.Error(err))
		return
	}
	s.logger.Info("maintenance run finished", zap.Duration("took", time.Since(start)))
}
