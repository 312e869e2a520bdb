package handlers

import (
	"context"
	"fmt"

	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/queue"
	"github.com/vzanotti/gappsd-go/internal/store"
)

type userUpdateParams struct {
	Username  string  `json:"username"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Suspended *string `json:"suspended,omitempty"`
	Password  *string `json:"password,omitempty"`
	IsAdmin   *bool   `json:"is_admin,omitempty"`
}

// UserUpdate implements u_update. In non-privileged mode it parks any
// job asking for a change to the admin bit, or any password/suspension
// change targeting an existing administrator. is_admin only decides
// whether the job is parked: the admin bit itself is not changed
// remotely in either mode.
type UserUpdate struct{ deps Deps }

func (h *UserUpdate) SideEffects() bool { return true }

func (h *UserUpdate) Run(ctx context.Context, job *queue.Job) error {
	var p userUpdateParams
	if err := job.DecodeParameters(&p); err != nil {
		return err
	}
	if err := validateUsername(p.Username); err != nil {
		return err
	}
	if p.FirstName != nil {
		if err := validateName("first_name", *p.FirstName); err != nil {
			return err
		}
	}
	if p.LastName != nil {
		if err := validateName("last_name", *p.LastName); err != nil {
			return err
		}
	}
	if p.Suspended != nil {
		if err := validateSuspendedString(*p.Suspended); err != nil {
			return err
		}
	}
	if p.Password != nil {
		if err := validatePasswordSHA1(*p.Password); err != nil {
			return err
		}
	}

	username := normalizeUsername(p.Username, h.deps.Directory.Domain)
	remote, err := h.deps.Directory.GetUser(ctx, username)
	if err != nil {
		return h.deps.classifyRemote(err)
	}

	if !h.deps.AdminOnlyJobs {
		changesAdminBit := p.IsAdmin != nil && *p.IsAdmin != remote.IsAdmin
		targetsAdmin := remote.IsAdmin && (p.Password != nil || p.Suspended != nil)
		if changesAdminBit || targetsAdmin {
			h.deps.Log.Critical("job parked for admin", "type", "u_update", "job_id", job.ID(), "username", username)
			job.MarkAdmin()
			return nil
		}
	}

	patch := directory.UserPatch{FirstName: p.FirstName, LastName: p.LastName, PasswordSHA1: p.Password}
	if p.Suspended != nil {
		suspended := *p.Suspended == "true"
		patch.Suspended = &suspended
	}
	if err := h.deps.Directory.UpdateUser(ctx, username, patch); err != nil {
		return h.deps.classifyRemote(err)
	}

	updated, err := h.deps.Directory.GetUser(ctx, username)
	if err != nil {
		return h.deps.classifyRemote(err)
	}
	if err := h.deps.Store.UpsertAccount(ctx, &store.Account{
		Name:        updated.Username,
		FirstName:   updated.FirstName,
		LastName:    updated.LastName,
		IsAdmin:     updated.IsAdmin,
		IsSuspended: updated.IsSuspended,
		Status:      "active",
	}); err != nil {
		return classifyStoreErr(fmt.Sprintf("mirror account %s", username), err)
	}
	return nil
}

func (h *UserUpdate) ShortDescription(job *queue.Job) string {
	return fmt.Sprintf("u_update #%d", job.ID())
}

func (h *UserUpdate) LongDescription(job *queue.Job) string {
	return fmt.Sprintf("Update remote user account #%d.", job.ID())
}
