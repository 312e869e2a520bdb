// Package queue implements the daemon's central job-processing machinery:
// the error taxonomy, job record, handler registry and handler contract,
// and the queue manager's poll/dispatch loop. Generalized from the
// teacher's internal/queue package (Job/JobHandler/Queue/Worker/Manager),
// replacing its Redis-ZSET-backed concurrent worker pool with a
// single-threaded SQL-polling loop.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the row's lifecycle state, `p_status` in gapps_queue.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusActive   Status = "active"
	StatusSuccess  Status = "success"
	StatusSoftfail Status = "softfail"
	StatusHardfail Status = "hardfail"
)

// Priority is the class a row is dispatched under.
type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PriorityNormal    Priority = "normal"
	PriorityOffline   Priority = "offline"
)

// Row is the raw scan target for one gapps_queue record.
type Row struct {
	ID             int64          `db:"q_id"`
	Type           string         `db:"j_type"`
	Priority       string         `db:"p_priority"`
	AdminRequest   bool           `db:"p_admin_request"`
	Status         string         `db:"p_status"`
	EntryDate      time.Time      `db:"p_entry_date"`
	StartDate      sql.NullTime   `db:"p_start_date"`
	EndDate        sql.NullTime   `db:"p_end_date"`
	NotBeforeDate  sql.NullTime   `db:"p_notbefore_date"`
	SoftfailCount  int            `db:"r_softfail_count"`
	SoftfailDate   sql.NullTime   `db:"r_softfail_date"`
	Result         sql.NullString `db:"r_result"`
	ParametersJSON string         `db:"j_parameters"`
}

// Job wraps a Row with the mutation operations spec.md's job record
// contract names. Every mutation only sets in-memory state; Store.Save
// persists it. This mirrors the teacher's pattern of a plain struct plus
// free functions (Job in interfaces.go) but adds the explicit
// mark-*/update verbs the original daemon's gappsd/job.py exposes.
type Job struct {
	row           Row
	softfailDelay time.Duration
	softfailMax   int
	dirty         bool
}

func NewJob(row Row, softfailDelay time.Duration, softfailMax int) *Job {
	return &Job{row: row, softfailDelay: softfailDelay, softfailMax: softfailMax}
}

func (j *Job) ID() int64            { return j.row.ID }
func (j *Job) Type() string         { return j.row.Type }
func (j *Job) Priority() Priority   { return Priority(j.row.Priority) }
func (j *Job) IsAdminRequest() bool { return j.row.AdminRequest }
func (j *Job) Status() Status       { return Status(j.row.Status) }
func (j *Job) Dirty() bool          { return j.dirty }
func (j *Job) Row() Row             { return j.row }

// DecodeParameters unmarshals j_parameters into v. Malformed JSON is
// always Permanent: retrying a job whose payload cannot be parsed can
// never succeed.
func (j *Job) DecodeParameters(v interface{}) error {
	if err := json.Unmarshal([]byte(j.row.ParametersJSON), v); err != nil {
		return Permanentf("decode parameters: %w", err)
	}
	return nil
}

// MarkActive transitions idle/softfail -> active, stamping p_start_date.
// Called by the manager immediately before a handler is invoked.
func (j *Job) MarkActive(now time.Time) {
	j.row.Status = string(StatusActive)
	j.row.StartDate = sql.NullTime{Time: now, Valid: true}
	j.dirty = true
}

// MarkSuccess transitions to a terminal success state.
func (j *Job) MarkSuccess(now time.Time, result string) {
	j.row.Status = string(StatusSuccess)
	j.row.EndDate = sql.NullTime{Time: now, Valid: true}
	j.row.Result = sql.NullString{String: result, Valid: result != ""}
	j.dirty = true
}

// MarkFailed applies a Transient or Permanent outcome. A Permanent kind
// (or a Transient kind that has now reached the softfail threshold)
// terminates the row as hardfail; otherwise it softfails with
// p_notbefore_date pushed out by the configured softfail delay.
// Not idempotent: every non-Permanent call increments r_softfail_count,
// even when called again with the same now and kind.
func (j *Job) MarkFailed(now time.Time, kind Kind, message string) {
	if kind == Permanent {
		j.hardfail(now, message)
		return
	}
	j.row.SoftfailCount++
	j.row.SoftfailDate = sql.NullTime{Time: now, Valid: true}
	if j.row.SoftfailCount >= j.softfailMax {
		j.hardfail(now, message+" [softfail threshold reached]")
		return
	}
	j.row.Status = string(StatusSoftfail)
	j.row.NotBeforeDate = sql.NullTime{Time: now.Add(j.softfailDelay), Valid: true}
	j.row.Result = sql.NullString{String: message, Valid: true}
	j.dirty = true
}

func (j *Job) hardfail(now time.Time, message string) {
	j.row.Status = string(StatusHardfail)
	j.row.EndDate = sql.NullTime{Time: now, Valid: true}
	j.row.Result = sql.NullString{String: message, Valid: true}
	j.dirty = true
}

// MarkAdmin parks the row for human attention: reset to idle, flag
// p_admin_request, clear p_start_date. Idempotent — calling it on an
// already-parked row is a no-op beyond refreshing dirty state.
func (j *Job) MarkAdmin() {
	j.row.Status = string(StatusIdle)
	j.row.AdminRequest = true
	j.row.StartDate = sql.NullTime{}
	j.dirty = true
}

// HasSideEffects reports whether a successful Run would mutate remote
// state — read-only mode consults this before the manager invokes Run
// at all.
func (j *Job) HasSideEffects(h Handler) bool {
	return h.SideEffects()
}

// DefaultLeaseAge is the active-row lease duration used when claiming a
// row via FetchEligible: a row claimed by one drain (manager or admin
// console) stays ineligible to the other for this long.
const DefaultLeaseAge = 90 * time.Second

// Store persists Job mutations back to gapps_queue.
type Store interface {
	FetchEligible(ctx context.Context, priority Priority, adminOnly bool, leaseAge time.Duration) (*Row, error)
	CountWaiting(ctx context.Context, priority Priority) (int, error)
	Save(ctx context.Context, row Row) error
	// Enqueue inserts a new idle row, used by handlers that derive
	// follow-up work (account-report's noisy-field u_sync trigger).
	Enqueue(ctx context.Context, jobType string, priority Priority, parameters interface{}) error
}

var _ fmt.Stringer = Status("")

func (s Status) String() string { return string(s) }
