package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/queue"
	"github.com/vzanotti/gappsd-go/internal/store"
)

type userSyncParams struct {
	Username string `json:"username"`
}

// UserSync implements u_sync: no side effects on the remote service,
// reconciling the local mirror with the remote snapshot across the four
// presence cases spec.md names.
type UserSync struct{ deps Deps }

func (h *UserSync) SideEffects() bool { return false }

func (h *UserSync) Run(ctx context.Context, job *queue.Job) error {
	var p userSyncParams
	if err := job.DecodeParameters(&p); err != nil {
		return err
	}
	if err := validateUsername(p.Username); err != nil {
		return err
	}
	username := normalizeUsername(p.Username, h.deps.Directory.Domain)

	remote, remoteErr := h.deps.Directory.GetUser(ctx, username)
	remoteAbsent := remoteErr != nil && directory.IsNotFound(remoteErr)
	if remoteErr != nil && !remoteAbsent {
		return h.deps.classifyRemote(remoteErr)
	}

	local, err := h.deps.Store.GetAccount(ctx, username)
	if err != nil {
		return classifyStoreErr(fmt.Sprintf("load local mirror for %s", username), err)
	}

	switch {
	case remoteAbsent && local == nil:
		// both absent: nop
		return nil
	case remoteAbsent && local != nil:
		local.Status = "unprovisioned"
		local.UpdateDate = time.Now().UTC()
		return persist(ctx, h.deps, local)
	case !remoteAbsent && local == nil:
		return persist(ctx, h.deps, &store.Account{
			Name:        remote.Username,
			FirstName:   remote.FirstName,
			LastName:    remote.LastName,
			IsAdmin:     remote.IsAdmin,
			IsSuspended: remote.IsSuspended,
			Status:      "active",
			UpdateDate:  time.Now().UTC(),
		})
	default:
		if remote.IsAdmin != local.IsAdmin {
			h.deps.Log.Critical("admin bit flipped", "username", username, "now_admin", remote.IsAdmin)
		}
		if remote.IsSuspended != local.IsSuspended {
			h.deps.Log.Critical("suspension flipped", "username", username, "now_suspended", remote.IsSuspended)
		}
		local.FirstName = remote.FirstName
		local.LastName = remote.LastName
		local.IsAdmin = remote.IsAdmin
		local.IsSuspended = remote.IsSuspended
		local.Status = "active"
		local.UpdateDate = time.Now().UTC()
		return persist(ctx, h.deps, local)
	}
}

func persist(ctx context.Context, deps Deps, a *store.Account) error {
	if err := deps.Store.UpsertAccount(ctx, a); err != nil {
		return classifyStoreErr(fmt.Sprintf("persist account %s", a.Name), err)
	}
	return nil
}

func (h *UserSync) ShortDescription(job *queue.Job) string {
	return fmt.Sprintf("u_sync #%d", job.ID())
}

func (h *UserSync) LongDescription(job *queue.Job) string {
	return fmt.Sprintf("Reconcile local mirror with remote snapshot for job #%d.", job.ID())
}
