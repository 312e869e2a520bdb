// Package supervisor implements the daemon's outer run loop (C7): the
// deadline-gated restart and backup-mode escalation wrapped around one
// queue.Manager instance. Grounded on the teacher's cmd/api/main.go
// graceful-shutdown pattern (signal.Notify + context cancellation),
// generalized from an HTTP server's shutdown to the queue manager's
// cooperative poll loop.
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/logging"
	"github.com/vzanotti/gappsd-go/internal/queue"
)

// ErrRestartRequested is returned by Run when the deadline gate trips: the
// caller (cmd/gappsd's main) exits with a code asking the process
// supervisor to relaunch it, rather than this process replacing itself.
var ErrRestartRequested = &restartError{}

type restartError struct{}

func (*restartError) Error() string { return "supervisor: max run time exceeded, restart requested" }

// Supervisor wraps a queue.Manager with the sliding-window escalation
// and deadline-gate contracts from spec.md §4.7.
type Supervisor struct {
	Manager    *queue.Manager
	Directory  *directory.Client
	Log        *logging.Logger
	MaxRunTime time.Duration

	transientWindow []time.Time
}

func New(m *queue.Manager, dir *directory.Client, log *logging.Logger, maxRunTime time.Duration) *Supervisor {
	return &Supervisor{Manager: m, Directory: dir, Log: log, MaxRunTime: maxRunTime}
}

// Run executes the deadline-gated supervision loop until SIGINT, a
// restart is requested, or backup mode is entered (in which case Run
// returns once BackupMode itself returns, typically on the next signal).
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deadline := time.Now().Add(s.MaxRunTime)
	for {
		loopCtx, cancel := context.WithDeadline(ctx, deadline)
		err := s.Manager.Run(loopCtx)
		cancel()

		if ctx.Err() != nil {
			if s.Directory != nil {
				s.Directory.Close()
			}
			s.Log.Infow("supervisor shutting down cleanly")
			return nil
		}
		if time.Now().After(deadline) {
			s.Log.Infow("max run time exceeded, requesting restart")
			time.Sleep(2 * time.Second) // safety sleep before the process supervisor relaunches us
			return ErrRestartRequested
		}
		if err == nil {
			continue
		}

		esc, ok := err.(*queue.Escalation)
		if !ok {
			s.Log.Critical("unexpected queue manager termination", "error", err.Error())
			return s.BackupMode(ctx)
		}
		switch esc.Kind {
		case queue.Credential:
			return s.BackupMode(ctx)
		case queue.Transient:
			s.transientWindow = append(s.transientWindow, time.Now())
			s.pruneTransientWindow()
			if len(s.transientWindow) >= 4 {
				return s.BackupMode(ctx)
			}
			s.Log.Warnw("transient escalation, continuing", "window_depth", len(s.transientWindow))
		}
	}
}

func (s *Supervisor) pruneTransientWindow() {
	cutoff := time.Now().Add(-time.Hour)
	kept := s.transientWindow[:0]
	for _, t := range s.transientWindow {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.transientWindow = kept
}

// BackupMode is a quiescent state: no work is performed and an hourly
// critical heartbeat is emitted. It cannot be cancelled in-process; only
// an external signal (process kill/restart) ends it.
func (s *Supervisor) BackupMode(ctx context.Context) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	s.Log.Critical("entering backup mode")
	for {
		select {
		case <-ctx.Done():
			if s.Directory != nil {
				s.Directory.Close()
			}
			return nil
		case <-ticker.C:
			s.Log.Critical("backup mode heartbeat")
		}
	}
}
