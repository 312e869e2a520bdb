// Package store provides CRUD gateways for the three mirrored entities
// (account, nickname, usage snapshot), generalizing the teacher's
// backend-go QueueManager's raw-SQL, struct-per-row style
// (AddToQueue/GetQueueItem/...) from its chat-queue domain to gappsd's
// directory-mirror domain.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vzanotti/gappsd-go/internal/sqlstore"
)

// Account mirrors one row of gapps_accounts.
type Account struct {
	Name         string       `db:"g_account_name"`
	FirstName    string       `db:"g_first_name"`
	LastName     string       `db:"g_last_name"`
	IsAdmin      bool         `db:"g_is_admin"`
	IsSuspended  bool         `db:"g_is_suspended"`
	Status       string       `db:"g_status"` // unprovisioned | disabled | active
	DiskUsage    int64        `db:"g_disk_usage"`
	CreationDate sql.NullTime `db:"g_creation_date"`
	LastLogin    sql.NullTime `db:"g_last_login"`
	LastWebmail  sql.NullTime `db:"g_last_webmail"`
	UpdateDate   time.Time    `db:"g_update_date"`
}

// Nickname mirrors one row of gapps_nicknames.
type Nickname struct {
	Nickname    string    `db:"g_nickname"`
	AccountName string    `db:"g_account_name"`
	UpdateDate  time.Time `db:"g_update_date"`
}

// UsageSnapshot mirrors one row of gapps_reporting.
type UsageSnapshot struct {
	Date        time.Time `db:"g_date"`
	NumAccounts int       `db:"g_num_accounts"`
	DiskUsage   int64     `db:"g_disk_usage"`
	NumLogins   int       `db:"g_num_logins"`
}

// Store gathers the three mirror gateways over one sqlstore.Store.
type Store struct {
	sql *sqlstore.Store
}

func New(sql *sqlstore.Store) *Store { return &Store{sql: sql} }

func (s *Store) GetAccount(ctx context.Context, name string) (*Account, error) {
	var a Account
	err := s.sql.DB.GetContext(ctx, &a, `SELECT * FROM gapps_accounts WHERE g_account_name = ?`, name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get account %s: %w", name, err)
	}
	return &a, nil
}

func (s *Store) UpsertAccount(ctx context.Context, a *Account) error {
	_, err := s.sql.DB.ExecContext(ctx, `
		INSERT INTO gapps_accounts
			(g_account_name, g_first_name, g_last_name, g_is_admin, g_is_suspended, g_status, g_disk_usage, g_creation_date, g_last_login, g_last_webmail, g_update_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			g_first_name = VALUES(g_first_name), g_last_name = VALUES(g_last_name),
			g_is_admin = VALUES(g_is_admin), g_is_suspended = VALUES(g_is_suspended),
			g_status = VALUES(g_status), g_disk_usage = VALUES(g_disk_usage),
			g_last_login = VALUES(g_last_login), g_last_webmail = VALUES(g_last_webmail),
			g_update_date = VALUES(g_update_date)`,
		a.Name, a.FirstName, a.LastName, a.IsAdmin, a.IsSuspended, a.Status, a.DiskUsage,
		a.CreationDate, a.LastLogin, a.LastWebmail, a.UpdateDate)
	if err != nil {
		return fmt.Errorf("store: upsert account %s: %w", a.Name, err)
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, name string) error {
	_, err := s.sql.DB.ExecContext(ctx, `DELETE FROM gapps_accounts WHERE g_account_name = ?`, name)
	if err != nil {
		return fmt.Errorf("store: delete account %s: %w", name, err)
	}
	return nil
}

func (s *Store) ListNicknames(ctx context.Context, account string) ([]Nickname, error) {
	var out []Nickname
	err := s.sql.DB.SelectContext(ctx, &out, `SELECT * FROM gapps_nicknames WHERE g_account_name = ?`, account)
	if err != nil {
		return nil, fmt.Errorf("store: list nicknames for %s: %w", account, err)
	}
	return out, nil
}

// ListAllNicknames returns every row of gapps_nicknames, used by
// alias-resync to compute the full local alias set.
func (s *Store) ListAllNicknames(ctx context.Context) ([]Nickname, error) {
	var out []Nickname
	err := s.sql.DB.SelectContext(ctx, &out, `SELECT * FROM gapps_nicknames`)
	if err != nil {
		return nil, fmt.Errorf("store: list all nicknames: %w", err)
	}
	return out, nil
}

func (s *Store) UpsertNickname(ctx context.Context, n *Nickname) error {
	_, err := s.sql.DB.ExecContext(ctx, `
		INSERT INTO gapps_nicknames (g_nickname, g_account_name, g_update_date)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE g_account_name = VALUES(g_account_name), g_update_date = VALUES(g_update_date)`,
		n.Nickname, n.AccountName, n.UpdateDate)
	if err != nil {
		return fmt.Errorf("store: upsert nickname %s: %w", n.Nickname, err)
	}
	return nil
}

func (s *Store) DeleteNickname(ctx context.Context, nickname string) error {
	_, err := s.sql.DB.ExecContext(ctx, `DELETE FROM gapps_nicknames WHERE g_nickname = ?`, nickname)
	if err != nil {
		return fmt.Errorf("store: delete nickname %s: %w", nickname, err)
	}
	return nil
}

// LatestReportDate returns the most recent date for which gapps_reporting
// already has a row, or the zero time if the table is empty.
func (s *Store) LatestReportDate(ctx context.Context) (time.Time, error) {
	var d sql.NullTime
	err := s.sql.DB.GetContext(ctx, &d, `SELECT MAX(g_date) FROM gapps_reporting`)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: latest report date: %w", err)
	}
	if !d.Valid {
		return time.Time{}, nil
	}
	return d.Time, nil
}

func (s *Store) InsertUsageSnapshot(ctx context.Context, u *UsageSnapshot) error {
	_, err := s.sql.DB.ExecContext(ctx, `
		INSERT IGNORE INTO gapps_reporting (g_date, g_num_accounts, g_disk_usage, g_num_logins)
		VALUES (?, ?, ?, ?)`,
		u.Date, u.NumAccounts, u.DiskUsage, u.NumLogins)
	if err != nil {
		return fmt.Errorf("store: insert usage snapshot %s: %w", u.Date.Format("2006-01-02"), err)
	}
	return nil
}
