package queue

import (
	"context"
	"math"
	"time"

	"github.com/vzanotti/gappsd-go/internal/logging"
	"github.com/vzanotti/gappsd-go/internal/metrics"
)

// classes lists the three priority classes in dispatch order: immediate
// always wins over normal, which always wins over offline.
var classes = []Priority{PriorityImmediate, PriorityNormal, PriorityOffline}

const maxDrainHorizon = 24 * time.Hour

// Escalation is returned by Run when the sliding error window crosses a
// threshold, matching the supervisor's run() contract in spec.md §4.7:
// Credential and Transient terminations are distinguished so the
// supervisor can apply different backup-mode triggers.
type Escalation struct {
	Kind Kind
}

func (e *Escalation) Error() string { return "queue: escalation to backup mode: " + e.Kind.String() }

type errEvent struct {
	at   time.Time
	kind Kind
	desc string
}

// Delays groups the per-class nominal inter-dispatch delays and the
// global knobs from gappsd.* config.
type Delays struct {
	Immediate time.Duration
	Normal    time.Duration
	Offline   time.Duration
	MinDelay  time.Duration
}

func (d Delays) forClass(p Priority) time.Duration {
	switch p {
	case PriorityImmediate:
		return d.Immediate
	case PriorityNormal:
		return d.Normal
	default:
		return d.Offline
	}
}

// Manager is the poll/dispatch loop (C6), replacing the teacher's
// goroutine-pool WorkerImpl with the single-threaded cooperative model
// spec.md mandates: one poll loop, one in-flight job at a time.
type Manager struct {
	Store    Store
	Registry *Registry
	Log      *logging.Logger
	Delays   Delays
	ReadOnly      bool
	SoftfailDelay time.Duration
	SoftfailMax   int

	lastDispatch   map[Priority]time.Time
	overflowWarned map[Priority]time.Time
	errWindow      []errEvent
	dispatchCounts map[Priority]int
	lastTelemetry  time.Time
	now            func() time.Time
}

func NewManager(store Store, reg *Registry, log *logging.Logger, delays Delays, readOnly bool, softfailDelay time.Duration, softfailMax int) *Manager {
	return &Manager{
		Store:          store,
		Registry:       reg,
		Log:            log,
		Delays:         delays,
		ReadOnly:       readOnly,
		SoftfailDelay:  softfailDelay,
		SoftfailMax:    softfailMax,
		lastDispatch:   make(map[Priority]time.Time),
		overflowWarned: make(map[Priority]time.Time),
		dispatchCounts: make(map[Priority]int),
		lastTelemetry:  time.Now(),
		now:            time.Now,
	}
}

// Run loops RunOnce until ctx is cancelled or a sliding-window threshold
// is crossed, in which case it returns an *Escalation for the supervisor
// to act on.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := m.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(m.Delays.MinDelay):
		}
	}
}

// RunOnce executes exactly one poll cycle (§4.6.4).
func (m *Manager) RunOnce(ctx context.Context) error {
	now := m.now()

	for _, class := range classes {
		delay, err := m.effectiveDelay(ctx, class, now)
		if err != nil {
			return err
		}
		last, ok := m.lastDispatch[class]
		if ok && now.Sub(last) < delay {
			continue
		}
		dispatched, err := m.dispatchOne(ctx, class, now)
		if err != nil {
			return err
		}
		if dispatched {
			m.lastDispatch[class] = now
			m.dispatchCounts[class]++
			metrics.Dispatched.WithLabelValues(string(class)).Inc()
		}
	}

	if err := m.accountErrors(now); err != nil {
		return err
	}
	m.emitTelemetry(now)
	return nil
}

// effectiveDelay implements §4.6.3's adaptive throttling.
func (m *Manager) effectiveDelay(ctx context.Context, class Priority, now time.Time) (time.Duration, error) {
	nominal := m.Delays.forClass(class)
	count, err := m.Store.CountWaiting(ctx, class)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return nominal, nil
	}
	projected := time.Duration(count) * nominal
	if projected <= maxDrainHorizon {
		return nominal, nil
	}
	shrunk := time.Duration(math.Floor(float64(maxDrainHorizon) / float64(count)))
	if shrunk < m.Delays.MinDelay {
		shrunk = m.Delays.MinDelay
	}
	stillOverflowing := time.Duration(count)*shrunk > maxDrainHorizon
	if stillOverflowing {
		last, warned := m.overflowWarned[class]
		if !warned || now.Sub(last) >= time.Hour {
			m.Log.Warnw("queue class overflow", "class", class, "waiting", count, "delay", shrunk)
			m.overflowWarned[class] = now
			metrics.OverflowWarnings.WithLabelValues(string(class)).Inc()
		}
	}
	return shrunk, nil
}

// dispatchOne fetches and runs at most one eligible row in class.
func (m *Manager) dispatchOne(ctx context.Context, class Priority, now time.Time) (bool, error) {
	row, err := m.Store.FetchEligible(ctx, class, false, DefaultLeaseAge)
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, nil
	}

	job := NewJob(*row, m.SoftfailDelay, m.SoftfailMax)
	job.MarkActive(now)
	if err := m.Store.Save(ctx, job.row); err != nil {
		return false, err
	}

	handler, ok := m.Registry.Lookup(job.Type())
	if !ok {
		job.MarkFailed(now, Permanent, "no handler registered for job type "+job.Type())
		_ = m.Store.Save(ctx, job.row)
		return true, nil
	}

	if m.ReadOnly && handler.SideEffects() {
		job.MarkFailed(now, Permanent, "read-only mode")
		_ = m.Store.Save(ctx, job.row)
		return true, nil
	}

	runErr := handler.Run(ctx, job)
	m.applyOutcome(ctx, job, handler, runErr, now)
	if err := m.Store.Save(ctx, job.row); err != nil {
		return true, err
	}
	return true, nil
}

// applyOutcome implements §4.6.5.
func (m *Manager) applyOutcome(ctx context.Context, job *Job, handler Handler, runErr error, now time.Time) {
	if runErr == nil {
		if job.row.Status == string(StatusActive) {
			job.MarkSuccess(now, "")
		}
		return
	}
	kind := ClassifyErr(runErr)
	if kind == Transient || kind == Credential {
		m.errWindow = append(m.errWindow, errEvent{at: now, kind: kind, desc: handler.ShortDescription(job)})
	}
	job.MarkFailed(now, kind, runErr.Error())
}

const (
	credentialThreshold = 2
	transientThreshold  = 4
	errWindowSpan       = time.Hour
)

// accountErrors implements §4.6.6.
func (m *Manager) accountErrors(now time.Time) error {
	cutoff := now.Add(-errWindowSpan)
	kept := m.errWindow[:0]
	var credentialCount, transientCount int
	for _, e := range m.errWindow {
		if e.at.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
		if e.kind == Credential {
			credentialCount++
		} else {
			transientCount++
		}
	}
	m.errWindow = kept
	metrics.TransientWindowDepth.Set(float64(len(m.errWindow)))

	if credentialCount >= credentialThreshold {
		return &Escalation{Kind: Credential}
	}
	if transientCount >= transientThreshold {
		return &Escalation{Kind: Transient}
	}
	return nil
}

// emitTelemetry implements §4.6.7.
func (m *Manager) emitTelemetry(now time.Time) {
	if now.Sub(m.lastTelemetry) < 30*time.Minute {
		return
	}
	m.Log.Infow("queue telemetry",
		"immediate_dispatched", m.dispatchCounts[PriorityImmediate],
		"normal_dispatched", m.dispatchCounts[PriorityNormal],
		"offline_dispatched", m.dispatchCounts[PriorityOffline],
		"transient_window_depth", len(m.errWindow),
	)
	m.dispatchCounts = make(map[Priority]int)
	m.lastTelemetry = now
}
