package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/queue"
	"github.com/vzanotti/gappsd-go/internal/store"
)

// UsageReport implements usage-report: no side effects, fetch and insert
// one row per unreported day since the last successful snapshot, bounded
// by the configured backlog.
type UsageReport struct{ deps Deps }

func (h *UsageReport) SideEffects() bool { return false }

func (h *UsageReport) Run(ctx context.Context, job *queue.Job) error {
	latestAvailable, err := directory.LatestAvailableReportDate(time.Now())
	if err != nil {
		return queue.Permanentf("compute latest available report date: %w", err)
	}

	lastReported, err := h.deps.Store.LatestReportDate(ctx)
	if err != nil {
		return classifyStoreErr("load latest report date", err)
	}

	start := lastReported.AddDate(0, 0, 1)
	if lastReported.IsZero() {
		start = latestAvailable.AddDate(0, 0, -h.deps.ReportBacklog)
	}

	count := 0
	for d := start; !d.After(latestAvailable); d = d.AddDate(0, 0, 1) {
		if count >= h.deps.ReportBacklog {
			break
		}
		usage, err := h.deps.Directory.CustomerUsageReport(ctx, d)
		if err != nil {
			return h.deps.classifyRemote(err)
		}
		if err := h.deps.Store.InsertUsageSnapshot(ctx, &store.UsageSnapshot{
			Date:        d,
			NumAccounts: usage.NumAccounts,
			DiskUsage:   usage.DiskUsage,
			NumLogins:   usage.NumLogins,
		}); err != nil {
			return classifyStoreErr(fmt.Sprintf("insert usage snapshot %s", d.Format("2006-01-02")), err)
		}
		count++
	}
	return nil
}

func (h *UsageReport) ShortDescription(job *queue.Job) string {
	return fmt.Sprintf("usage_report #%d", job.ID())
}

func (h *UsageReport) LongDescription(job *queue.Job) string {
	return fmt.Sprintf("Fetch and insert unreported daily usage snapshots for job #%d.", job.ID())
}
