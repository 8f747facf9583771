package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/teemow/agendahook/internal/briefing"
	"github.com/teemow/agendahook/internal/logging"
)

// Scheduler starts runs from a standard five-field cron expression.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	logger *slog.Logger
}

// NewScheduler registers a job that calls runner on every tick of spec.
// Ticks that arrive while the previous scheduled run is still going are
// skipped. Runs carry ctx's values but not its cancellation, so a run that
// has started is delivered even during shutdown; Stop waits for it.
func NewScheduler(ctx context.Context, spec string, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "scheduler"))
	adapter := logging.NewCronAdapter(logger)

	c := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)

	runCtx := context.WithoutCancel(ctx)
	_, err := c.AddFunc(spec, func() {
		outcome := runner.Run(runCtx, briefing.TriggerSchedule)
		logger.Info("scheduled run finished",
			slog.String(logging.KeyRunID, outcome.RunID),
			logging.StatusCode(outcome.Status),
			slog.String("message", outcome.Message))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c, spec: spec, logger: logger}, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.logger.Info("schedule active", slog.String("schedule", s.spec), slog.Time("next", entry.Next))
	}
}

// Stop prevents further runs and returns a context that is done once a run
// in progress has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
