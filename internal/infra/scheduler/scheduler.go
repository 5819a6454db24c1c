// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ronchon/server/internal/port/outbound"
	"go.uber.org/zap"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler whose jobs recover from panics.
func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("scheduler")
	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger: log,
	}
}

// AddSweep runs sweeper on the cron expression expr.
func (s *Scheduler) AddSweep(expr, name string, sweeper outbound.SweeperPort) error {
	_, err := s.cron.AddFunc(expr, func() {
		s.runSweep(name, sweeper)
	})
	if err != nil {
		return fmt.Errorf("schedule %s sweep %q: %w", name, expr, err)
	}
	s.logger.Info("scheduled sweep", zap.String("store", name), zap.String("schedule", expr))
	return nil
}

func (s *Scheduler) runSweep(name string, sweeper outbound.SweeperPort) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	n, err := sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Warn("sweep failed", zap.String("store", name), zap.Error(err))
		return
	}
	s.logger.Debug("sweep finished",
		zap.String("store", name),
		zap.Int("removed", n),
		zap.Duration("took", time.Since(start)),
	)
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
