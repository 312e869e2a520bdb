// Package scheduler drives the periodic enqueueing of report jobs,
// adapted from the teacher's robfig/cron-based SchedulerImpl: instead of
// scheduling arbitrary named jobs with persisted ScheduleSpecs, it runs a
// small fixed set of cron entries that enqueue gapps_queue rows for the
// reporting handlers.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/vzanotti/gappsd-go/internal/logging"
	"github.com/vzanotti/gappsd-go/internal/queue"
)

// Scheduler wraps a robfig/cron runner that enqueues usage_report and
// account_report jobs on a fixed cadence, freeing the manager's drain
// loop from having to special-case report generation.
type Scheduler struct {
	cron  *cron.Cron
	queue queue.Store
	log   *logging.Logger
}

// New builds a Scheduler. usageSpec and accountSpec are standard 5-field
// cron expressions (no seconds field, matching robfig/cron's default
// parser); an empty spec disables that entry.
func New(store queue.Store, log *logging.Logger, usageSpec, accountSpec string) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), queue: store, log: log}

	if usageSpec != "" {
		if _, err := s.cron.AddFunc(usageSpec, s.enqueue("usage_report")); err != nil {
			return nil, err
		}
	}
	if accountSpec != "" {
		if _, err := s.cron.AddFunc(accountSpec, s.enqueue("account_report")); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) enqueue(jobType string) func() {
	return func() {
		if err := s.queue.Enqueue(context.Background(), jobType, queue.PriorityOffline, map[string]string{}); err != nil {
			s.log.Errorw("scheduler: failed to enqueue job", "job_type", jobType, "error", err)
		}
	}
}

// Start begins running the cron schedule in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the cron schedule, waiting for any in-flight enqueue calls
// to finish.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }
