package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/queue"
)

// AccountReport implements account-report: no side effects on the remote
// service, enumerate all remote users (paged) and fold them into the
// account mirror. "Silent" fields (disk usage, suspension, admin bit)
// are written in place; "noisy" fields (surname, given name) trigger a
// u_sync job instead of a direct write, since this report's snapshot of
// identity fields lags reality more than u_sync's live lookup does.
type AccountReport struct{ deps Deps }

func (h *AccountReport) SideEffects() bool { return false }

func (h *AccountReport) Run(ctx context.Context, job *queue.Job) error {
	users, err := h.deps.Directory.ListUsers(ctx)
	if err != nil {
		return h.deps.classifyRemote(err)
	}

	latestAvailable, err := directory.LatestAvailableReportDate(time.Now())
	if err != nil {
		return queue.Permanentf("compute latest available report date: %w", err)
	}
	usages, err := h.deps.Directory.AccountUsageReport(ctx, latestAvailable)
	if err != nil {
		return h.deps.classifyRemote(err)
	}
	diskUsageByUser := make(map[string]int64, len(usages))
	for _, u := range usages {
		diskUsageByUser[u.Username] = u.DiskUsage
	}

	for _, remote := range users {
		local, err := h.deps.Store.GetAccount(ctx, remote.Username)
		if err != nil {
			return classifyStoreErr(fmt.Sprintf("load account %s", remote.Username), err)
		}
		if local == nil {
			if err := h.deps.Queue.Enqueue(ctx, "u_sync", queue.PriorityOffline, map[string]string{"username": remote.Username}); err != nil {
				return err
			}
			continue
		}
		if local.FirstName != remote.FirstName || local.LastName != remote.LastName {
			if err := h.deps.Queue.Enqueue(ctx, "u_sync", queue.PriorityOffline, map[string]string{"username": remote.Username}); err != nil {
				return err
			}
			continue
		}
		local.IsAdmin = remote.IsAdmin
		local.IsSuspended = remote.IsSuspended
		if usage, ok := diskUsageByUser[remote.Username]; ok {
			local.DiskUsage = usage
		}
		local.UpdateDate = time.Now().UTC()
		if err := h.deps.Store.UpsertAccount(ctx, local); err != nil {
			return classifyStoreErr(fmt.Sprintf("persist account %s", remote.Username), err)
		}
	}
	return nil
}

func (h *AccountReport) ShortDescription(job *queue.Job) string {
	return fmt.Sprintf("account_report #%d", job.ID())
}

func (h *AccountReport) LongDescription(job *queue.Job) string {
	return fmt.Sprintf("Fold remote account snapshot into the local mirror for job #%d.", job.ID())
}
