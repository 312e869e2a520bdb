// Reporting wraps the Admin Reports API's usage endpoints, grounded on
// the original daemon's google/reporting.py module (customer- and
// account-level usage pulls for a single date at a time).
package directory

import (
	"context"
	"fmt"
	"time"

	reports "google.golang.org/api/admin/reports/v1"
)

// CustomerUsage is one day's aggregate usage snapshot for the domain.
type CustomerUsage struct {
	Date        time.Time
	NumAccounts int
	DiskUsage   int64
	NumLogins   int
}

// CustomerUsageReport fetches the aggregate customer usage report for
// date (which must already be no later than the latest date Google makes
// available — the caller computes that boundary).
func (c *Client) CustomerUsageReport(ctx context.Context, date time.Time) (*CustomerUsage, error) {
	dateStr := date.Format("2006-01-02")
	report, err := c.Reports.CustomerUsageReports.Get(dateStr).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("directory: customer usage report %s: %w", dateStr, err)
	}
	usage := &CustomerUsage{Date: date}
	for _, entry := range report.UsageReports {
		for _, p := range entry.Parameters {
			switch p.Name {
			case "accounts:num_users":
				usage.NumAccounts = int(p.IntValue)
			case "accounts:used_quota_in_mb":
				usage.DiskUsage = p.IntValue
			case "accounts:num_30day_logins":
				usage.NumLogins = int(p.IntValue)
			}
		}
	}
	return usage, nil
}

// AccountUsage is one day's per-account usage snapshot.
type AccountUsage struct {
	Username  string
	DiskUsage int64
	LastLogin time.Time
}

func (c *Client) AccountUsageReport(ctx context.Context, date time.Time) ([]AccountUsage, error) {
	dateStr := date.Format("2006-01-02")
	var out []AccountUsage
	call := c.Reports.UserUsageReport.Get("all", dateStr).Context(ctx)
	err := call.Pages(ctx, func(page *reports.UsageReports) error {
		for _, entry := range page.UsageReports {
			u := AccountUsage{}
			if entry.Entity != nil {
				u.Username = entry.Entity.UserEmail
			}
			for _, p := range entry.Parameters {
				if p.Name == "accounts:used_quota_in_mb" {
					u.DiskUsage = p.IntValue
				}
			}
			out = append(out, u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("directory: account usage report %s: %w", dateStr, err)
	}
	return out, nil
}

// LatestAvailableReportDate implements spec's timezone rule: the latest
// report date Google publishes is (today - 1 day) in Pacific time if the
// current Pacific time is past noon, else (today - 2 days).
func LatestAvailableReportDate(now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return time.Time{}, fmt.Errorf("directory: load Pacific location: %w", err)
	}
	pacific := now.In(loc)
	daysBack := 2
	if pacific.Hour() >= 12 {
		daysBack = 1
	}
	d := pacific.AddDate(0, 0, -daysBack)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}
