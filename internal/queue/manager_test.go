package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vzanotti/gappsd-go/internal/config"
	"github.com/vzanotti/gappsd-go/internal/logging"
)

// fakeStore is an in-memory Store for exercising the manager's dispatch
// and throttling logic without a database, mirroring the teacher's
// testify-based unit test style.
type fakeStore struct {
	rows    []Row
	nextID  int64
	saved   []Row
	enqueued []string
}

func (f *fakeStore) FetchEligible(ctx context.Context, priority Priority, adminOnly bool, leaseAge time.Duration) (*Row, error) {
	now := time.Now()
	for i, r := range f.rows {
		if r.Priority != string(priority) || r.AdminRequest != adminOnly {
			continue
		}
		eligible := false
		switch Status(r.Status) {
		case StatusIdle, StatusSoftfail:
			eligible = !r.NotBeforeDate.Valid || !r.NotBeforeDate.Time.After(now)
		case StatusActive:
			eligible = r.StartDate.Valid && now.Sub(r.StartDate.Time) > leaseAge
		}
		if eligible {
			row := f.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CountWaiting(ctx context.Context, priority Priority) (int, error) {
	n := 0
	for _, r := range f.rows {
		if r.Priority == string(priority) && !r.AdminRequest && (r.Status == string(StatusIdle) || r.Status == string(StatusSoftfail)) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Save(ctx context.Context, row Row) error {
	for i, r := range f.rows {
		if r.ID == row.ID {
			f.rows[i] = row
		}
	}
	f.saved = append(f.saved, row)
	return nil
}

func (f *fakeStore) Enqueue(ctx context.Context, jobType string, priority Priority, parameters interface{}) error {
	f.enqueued = append(f.enqueued, jobType)
	return nil
}

type noopHandler struct{ err error }

func (h *noopHandler) Run(ctx context.Context, job *Job) error       { return h.err }
func (h *noopHandler) SideEffects() bool                            { return true }
func (h *noopHandler) ShortDescription(job *Job) string              { return "noop" }
func (h *noopHandler) LongDescription(job *Job) string                { return "noop handler" }

func testLogger() *logging.Logger {
	return logging.New(testDaemonConfig(), "example.com", false)
}

func newTestManager(t *testing.T, store *fakeStore, readOnly bool) *Manager {
	t.Helper()
	reg := NewRegistry()
	reg.Register("noop", func() Handler { return &noopHandler{} })
	return NewManager(store, reg, testLogger(), Delays{
		Immediate: time.Millisecond,
		Normal:    time.Millisecond,
		Offline:   time.Millisecond,
		MinDelay:  time.Millisecond,
	}, readOnly, time.Minute, 5)
}

func TestDispatchOne_SuccessTransitionsRow(t *testing.T) {
	store := &fakeStore{rows: []Row{{ID: 1, Type: "noop", Priority: string(PriorityImmediate), Status: string(StatusIdle)}}}
	m := newTestManager(t, store, false)

	dispatched, err := m.dispatchOne(context.Background(), PriorityImmediate, time.Now())
	require.NoError(t, err)
	assert.True(t, dispatched)
	require.Len(t, store.saved, 2) // one Save for MarkActive, one for the outcome
	assert.Equal(t, StatusSuccess, Status(store.saved[len(store.saved)-1].Status))
}

func TestDispatchOne_ReadOnlyModeHardfailsSideEffectingJob(t *testing.T) {
	store := &fakeStore{rows: []Row{{ID: 1, Type: "noop", Priority: string(PriorityImmediate), Status: string(StatusIdle)}}}
	m := newTestManager(t, store, true)

	dispatched, err := m.dispatchOne(context.Background(), PriorityImmediate, time.Now())
	require.NoError(t, err)
	assert.True(t, dispatched)
	last := store.saved[len(store.saved)-1]
	assert.Equal(t, StatusHardfail, Status(last.Status))
	assert.Contains(t, last.Result.String, "read-only")
}

func TestDispatchOne_UnregisteredTypeHardfails(t *testing.T) {
	store := &fakeStore{rows: []Row{{ID: 1, Type: "unknown", Priority: string(PriorityImmediate), Status: string(StatusIdle)}}}
	m := newTestManager(t, store, false)

	dispatched, err := m.dispatchOne(context.Background(), PriorityImmediate, time.Now())
	require.NoError(t, err)
	assert.True(t, dispatched)
	last := store.saved[len(store.saved)-1]
	assert.Equal(t, StatusHardfail, Status(last.Status))
}

func TestEffectiveDelay_ShrinksUnderOverflow(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(t, store, false)
	m.Delays.Normal = time.Hour // nominal delay huge enough to overflow with few rows
	for i := 0; i < 30; i++ {
		store.rows = append(store.rows, Row{ID: int64(i), Priority: string(PriorityNormal), Status: string(StatusIdle)})
	}
	delay, err := m.effectiveDelay(context.Background(), PriorityNormal, time.Now())
	require.NoError(t, err)
	assert.Less(t, delay, time.Hour)
}

func TestAccountErrors_CredentialThresholdEscalates(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(t, store, false)
	now := time.Now()
	m.errWindow = []errEvent{
		{at: now, kind: Credential, desc: "a"},
		{at: now, kind: Credential, desc: "b"},
	}
	err := m.accountErrors(now)
	require.Error(t, err)
	esc, ok := err.(*Escalation)
	require.True(t, ok)
	assert.Equal(t, Credential, esc.Kind)
}

func TestAccountErrors_PrunesOldEntries(t *testing.T) {
	store := &fakeStore{}
	m := newTestManager(t, store, false)
	now := time.Now()
	m.errWindow = []errEvent{
		{at: now.Add(-2 * time.Hour), kind: Transient, desc: "stale"},
	}
	err := m.accountErrors(now)
	require.NoError(t, err)
	assert.Empty(t, m.errWindow)
}

func testDaemonConfig() config.Daemon {
	return config.Daemon{
		LogfileName:  "/tmp/gappsd-test.log",
		LogmailDelay: time.Minute,
	}
}
