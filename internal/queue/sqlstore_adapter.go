package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vzanotti/gappsd-go/internal/sqlstore"
)

// wrapSQLErr classifies a raw database/sql or driver error via
// sqlstore.Classify and wraps it as the matching queue.Kind, so a
// constraint violation or bad-SQL error hardfails the row instead of
// being blanket-retried as Transient.
func wrapSQLErr(op string, err error) error {
	if sqlstore.Classify(err) {
		return Transientf("%s: %w", op, err)
	}
	return Permanentf("%s: %w", op, err)
}

// SQLStore implements Store over gapps_queue, grounded on the teacher's
// backend-go QueueManager's raw-SQL style (ORDER BY ... ASC selection,
// nullable-column scanning) generalized from its chat-queue schema to
// gappsd's single queue table, and from Postgres $N placeholders to
// MySQL's ?.
type SQLStore struct {
	sql *sqlstore.Store
}

func NewSQLStore(sql *sqlstore.Store) *SQLStore { return &SQLStore{sql: sql} }

// FetchEligible finds the oldest eligible row in priority class p,
// implementing §4.6.1's eligibility predicate and §4.6.4's "smallest
// q_id among eligible rows" ordering guarantee. It does not claim the
// row: callers mark the job active and Save it. The SELECT takes no row
// lock, so two processes polling concurrently can select the same row.
func (s *SQLStore) FetchEligible(ctx context.Context, priority Priority, adminOnly bool, leaseAge time.Duration) (*Row, error) {
	var row Row
	query := `
		SELECT * FROM gapps_queue
		WHERE p_priority = ?
		  AND p_admin_request = ?
		  AND (
			(p_status IN ('idle','softfail') AND (p_notbefore_date IS NULL OR p_notbefore_date <= ?))
			OR (p_status = 'active' AND p_start_date <= ?)
		  )
		ORDER BY q_id ASC
		LIMIT 1`
	now := time.Now().UTC()
	leaseExpiry := now.Add(-leaseAge)
	err := s.sql.DB.GetContext(ctx, &row, query, string(priority), adminOnly, now, leaseExpiry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapSQLErr("queue: fetch eligible "+string(priority), err)
	}
	return &row, nil
}

// CountWaiting returns the number of non-admin rows currently idle or
// softfailed in class p, feeding the adaptive-throttling calculation.
func (s *SQLStore) CountWaiting(ctx context.Context, priority Priority) (int, error) {
	var count int
	err := s.sql.DB.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM gapps_queue
		WHERE p_priority = ? AND p_admin_request = FALSE AND p_status IN ('idle','softfail')`,
		string(priority))
	if err != nil {
		return 0, wrapSQLErr("queue: count waiting "+string(priority), err)
	}
	return count, nil
}

// Save persists every mutable column of row, keyed by q_id.
func (s *SQLStore) Save(ctx context.Context, row Row) error {
	_, err := s.sql.DB.NamedExecContext(ctx, `
		UPDATE gapps_queue SET
			p_admin_request = :p_admin_request,
			p_status = :p_status,
			p_start_date = :p_start_date,
			p_end_date = :p_end_date,
			p_notbefore_date = :p_notbefore_date,
			r_softfail_count = :r_softfail_count,
			r_softfail_date = :r_softfail_date,
			r_result = :r_result
		WHERE q_id = :q_id`, row)
	if err != nil {
		return wrapSQLErr(fmt.Sprintf("queue: save row %d", row.ID), err)
	}
	return nil
}

// Enqueue inserts a new idle, non-admin row of the given type.
func (s *SQLStore) Enqueue(ctx context.Context, jobType string, priority Priority, parameters interface{}) error {
	payload, err := json.Marshal(parameters)
	if err != nil {
		return Permanentf("queue: marshal parameters for %s: %w", jobType, err)
	}
	_, err = s.sql.DB.ExecContext(ctx, `
		INSERT INTO gapps_queue (j_type, p_priority, p_admin_request, p_status, p_entry_date, j_parameters)
		VALUES (?, ?, FALSE, 'idle', ?, ?)`,
		jobType, string(priority), time.Now().UTC(), payload)
	if err != nil {
		return wrapSQLErr("queue: enqueue "+jobType, err)
	}
	return nil
}
