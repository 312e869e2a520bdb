// Package admin implements the admin console (C8): a human-confirmed,
// out-of-band drain of the admin partition of gapps_queue (rows with
// p_admin_request = true), reusing the same handler registry and
// dispatch path the daemon uses, but requiring interactive confirmation
// before invoking any handler with side effects.
package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vzanotti/gappsd-go/internal/logging"
	"github.com/vzanotti/gappsd-go/internal/queue"
)

// Console drains admin-flagged rows one at a time, rendering each job's
// long description and asking for explicit operator confirmation.
type Console struct {
	Store         queue.Store
	Registry      *queue.Registry
	Log           *logging.Logger
	SoftfailDelay time.Duration
	SoftfailMax   int
	In            io.Reader
	Out           io.Writer
}

// Run drains every currently eligible admin row across all three
// priority classes, prompting for confirmation before each.
func (c *Console) Run(ctx context.Context) error {
	reader := bufio.NewReader(c.In)
	for _, class := range []queue.Priority{queue.PriorityImmediate, queue.PriorityNormal, queue.PriorityOffline} {
		for {
			row, err := c.Store.FetchEligible(ctx, class, true, queue.DefaultLeaseAge)
			if err != nil {
				return fmt.Errorf("admin: fetch admin row: %w", err)
			}
			if row == nil {
				break
			}
			if err := c.process(ctx, *row, reader); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Console) process(ctx context.Context, row queue.Row, reader *bufio.Reader) error {
	job := queue.NewJob(row, c.SoftfailDelay, c.SoftfailMax)
	handler, ok := c.Registry.Lookup(job.Type())
	if !ok {
		fmt.Fprintf(c.Out, "job #%d: no handler registered for type %s, skipping\n", job.ID(), job.Type())
		return nil
	}

	fmt.Fprintln(c.Out, handler.LongDescription(job))
	fmt.Fprint(c.Out, "Dispatch this job? [y/N] ")
	line, _ := reader.ReadString('\n')
	if strings.TrimSpace(strings.ToLower(line)) != "y" {
		fmt.Fprintf(c.Out, "job #%d: skipped\n", job.ID())
		return nil
	}

	now := time.Now()
	job.MarkActive(now)
	if err := c.Store.Save(ctx, job.Row()); err != nil {
		return fmt.Errorf("admin: persist active: %w", err)
	}
	runErr := handler.Run(ctx, job)
	applyOutcome(job, handler, runErr, now)
	if err := c.Store.Save(ctx, job.Row()); err != nil {
		return fmt.Errorf("admin: persist outcome: %w", err)
	}
	fmt.Fprintf(c.Out, "job #%d: %s\n", job.ID(), job.Status())
	return nil
}

// applyOutcome mirrors queue.Manager's outcome application (§4.6.5); the
// console does not honor read-only mode, since an operator manually
// confirming a side-effecting job has already overridden that guard.
func applyOutcome(job *queue.Job, handler queue.Handler, runErr error, now time.Time) {
	if runErr == nil {
		if job.Status() == queue.StatusActive {
			job.MarkSuccess(now, "")
		}
		return
	}
	job.MarkFailed(now, queue.ClassifyErr(runErr), runErr.Error())
}
