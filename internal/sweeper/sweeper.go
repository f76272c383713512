// Package sweeper applies the time-driven reservation transitions
// (APPROVED to ACTIVE, APPROVED or ACTIVE to EXPIRED) on a cron schedule.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"

	"ebook-library/library"

	"github.com/robfig/cron/v3"
)

// Advancer is the part of the reservation service the sweeper drives.
type Advancer interface {
	AdvanceLifecycle() (library.LifecycleReport, error)
}

// Sweeper runs an Advancer on a schedule.
type Sweeper struct {
	advancer Advancer
	schedule string
	logger   *slog.Logger
}

// New checks schedule (standard five-field cron or a descriptor such as
// @hourly) and returns a sweeper for advancer.
func New(advancer Advancer, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return &Sweeper{advancer: advancer, schedule: schedule, logger: logger.With("component", "sweeper")}, nil
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce() (library.LifecycleReport, error) {
	report, err := s.advancer.AdvanceLifecycle()
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		return report, err
	}
	s.logger.Debug("sweep finished", "activated", report.Activated, "expired", report.Expired)
	return report, nil
}

// Run sweeps once immediately and then on every tick of the schedule until
// ctx is cancelled. A sweep still running when the next tick fires is not
// overlapped.
func (s *Sweeper) Run(ctx context.Context) error {
	clog := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))

	if _, err := c.AddFunc(s.schedule, func() { _, _ = s.RunOnce() }); err != nil {
		return fmt.Errorf("add sweep job: %w", err)
	}
	_, _ = s.RunOnce()

	s.logger.Info("sweeper started", "schedule", s.schedule)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("sweeper stopped")
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
