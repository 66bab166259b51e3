package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/robfig/cron/v3"

	"caixa/internal/log"
)

// Scheduler fires a job on a standard five-field cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers job under a cron schedule. Each run gets ctx; a failing run is
// logged and the schedule continues.
func NewScheduler(ctx context.Context, schedule string, job func(context.Context) error, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With(log.FieldComponent, log.ComponentScheduler)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		if err := job(ctx); err != nil {
			logger.ErrorContext(ctx, "Scheduled job failed", log.FieldError, err)
			return
		}
		logger.InfoContext(ctx, "Scheduled job done")
	})
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("Scheduler started", "next_run", e.Next)
	}
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
