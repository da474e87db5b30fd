package scheduler

import (
	"CourseMarket/pkg/logger"
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

type overdueSweeper interface {
	MarkOverdueInstallments(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	log  logger.Log
	cron *cron.Cron
}

// New registers the overdue-installment sweep on spec, a standard five-field cron expression in UTC.
func New(log logger.Log, spec string, sweeper overdueSweeper) (*Scheduler, error) {
	s := &Scheduler{
		log:  log.With("component", "scheduler"),
		cron: cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cron.DiscardLogger))),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.sweepOverdue(sweeper) }); err != nil {
		return nil, fmt.Errorf("schedule overdue sweep %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) sweepOverdue(sweeper overdueSweeper) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	started := time.Now()
	n, err := sweeper.MarkOverdueInstallments(ctx, started.UTC())
	if err != nil {
		s.log.ErrorErr("overdue sweep failed", err)
		return
	}
	s.log.Info("overdue sweep finished", "marked", n, "took", time.Since(started))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}
