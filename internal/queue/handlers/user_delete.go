package handlers

import (
	"context"
	"fmt"

	"github.com/vzanotti/gappsd-go/internal/queue"
)

type userDeleteParams struct {
	Username string `json:"username"`
}

// UserDelete implements u_delete: refused (parked for admin) unless the
// daemon runs in privileged mode; refuses permanently against an
// administrator account even when privileged.
type UserDelete struct{ deps Deps }

func (h *UserDelete) SideEffects() bool { return true }

func (h *UserDelete) Run(ctx context.Context, job *queue.Job) error {
	var p userDeleteParams
	if err := job.DecodeParameters(&p); err != nil {
		return err
	}
	if err := validateUsername(p.Username); err != nil {
		return err
	}

	if !h.deps.AdminOnlyJobs {
		h.deps.Log.Critical("job parked for admin", "type", "u_delete", "job_id", job.ID(), "username", p.Username)
		job.MarkAdmin()
		return nil
	}

	username := normalizeUsername(p.Username, h.deps.Directory.Domain)
	remote, err := h.deps.Directory.GetUser(ctx, username)
	if err != nil {
		return h.deps.classifyRemote(err)
	}
	if remote.IsAdmin {
		return queue.Permanentf("refusing to delete administrator account %s", username)
	}
	if err := h.deps.Directory.DeleteUser(ctx, username); err != nil {
		return h.deps.classifyRemote(err)
	}
	if err := h.deps.Store.DeleteAccount(ctx, username); err != nil {
		return classifyStoreErr(fmt.Sprintf("remove local mirror for %s", username), err)
	}
	return nil
}

func (h *UserDelete) ShortDescription(job *queue.Job) string {
	return fmt.Sprintf("u_delete #%d", job.ID())
}

func (h *UserDelete) LongDescription(job *queue.Job) string {
	return fmt.Sprintf("Delete remote user account #%d and its local mirror.", job.ID())
}
