package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/queue"
	"github.com/vzanotti/gappsd-go/internal/store"
)

type userCreateParams struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// UserCreate implements the u_create job: create remote, then mirror
// locally. Fails permanently if the remote user already exists.
type UserCreate struct{ deps Deps }

func (h *UserCreate) SideEffects() bool { return true }

func (h *UserCreate) Run(ctx context.Context, job *queue.Job) error {
	var p userCreateParams
	if err := job.DecodeParameters(&p); err != nil {
		return err
	}
	if err := validateUsername(p.Username); err != nil {
		return err
	}
	if err := validateName("first_name", p.FirstName); err != nil {
		return err
	}
	if err := validateName("last_name", p.LastName); err != nil {
		return err
	}
	if err := validatePasswordSHA1(p.Password); err != nil {
		return err
	}

	username := normalizeUsername(p.Username, h.deps.Directory.Domain)
	if _, err := h.deps.Directory.GetUser(ctx, username); err == nil {
		return queue.Permanentf("user %s already exists remotely", username)
	} else if !directory.IsNotFound(err) {
		return h.deps.classifyRemote(err)
	}

	if err := h.deps.Directory.CreateUser(ctx, username, p.FirstName, p.LastName, p.Password); err != nil {
		return h.deps.classifyRemote(err)
	}

	remote, err := h.deps.Directory.GetUser(ctx, username)
	if err != nil {
		return h.deps.classifyRemote(err)
	}
	if err := h.deps.Store.UpsertAccount(ctx, &store.Account{
		Name:        remote.Username,
		FirstName:   remote.FirstName,
		LastName:    remote.LastName,
		IsAdmin:     remote.IsAdmin,
		IsSuspended: remote.IsSuspended,
		Status:      "active",
		UpdateDate:  time.Now().UTC(),
	}); err != nil {
		return classifyStoreErr(fmt.Sprintf("mirror account %s", username), err)
	}
	return nil
}

func (h *UserCreate) ShortDescription(job *queue.Job) string {
	return fmt.Sprintf("u_create #%d", job.ID())
}

func (h *UserCreate) LongDescription(job *queue.Job) string {
	return fmt.Sprintf("Create remote user account #%d and mirror it locally.", job.ID())
}

