package reaper

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/lingodocs/docstore/internal/logging"
)

// Scheduler runs the reaper on a cron schedule. SkipIfStillRunning gives
// the two guarantees the job needs: at most one run in flight, and a
// missed boundary is skipped rather than queued.
type Scheduler struct {
	cron   *cron.Cron
	reaper *Reaper
	logger logging.Logger

	// ctx is cancelled by Stop so an in-flight run does not hold up
	// shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(r *Reaper, spec string, logger logging.Logger) (*Scheduler, error) {
	cl := &cronLogger{logger: logger}
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cl),
		cron.Recover(cl),
	))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, reaper: r, logger: logger, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(spec, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid reap schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	if _, err := s.reaper.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error(s.ctx, "scheduled reap failed", "error", err)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels an in-flight run, halts scheduling and waits for the job to
// return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// cronLogger adapts logging.Logger to the cron library's interface.
type cronLogger struct {
	logger logging.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...any) {
	c.logger.Debug(context.Background(), msg, keysAndValues...)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{"error", err}, keysAndValues...)
	c.logger.Error(context.Background(), msg, args...)
}
