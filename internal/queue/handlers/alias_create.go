package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/vzanotti/gappsd-go/internal/queue"
	"github.com/vzanotti/gappsd-go/internal/store"
)

type aliasParams struct {
	Owner string `json:"owner"`
	Alias string `json:"alias"`
}

// AliasCreate implements a_create: idempotent on pre-existence, since
// the alias's creation is driven by producers that may retry.
type AliasCreate struct{ deps Deps }

func (h *AliasCreate) SideEffects() bool { return true }

func (h *AliasCreate) Run(ctx context.Context, job *queue.Job) error {
	var p aliasParams
	if err := job.DecodeParameters(&p); err != nil {
		return err
	}
	if err := validateUsername(p.Owner); err != nil {
		return err
	}
	if err := validateUsername(p.Alias); err != nil {
		return err
	}
	owner := normalizeUsername(p.Owner, h.deps.Directory.Domain)
	alias := normalizeUsername(p.Alias, h.deps.Directory.Domain)

	existing, err := h.deps.Store.ListNicknames(ctx, owner)
	if err != nil {
		return classifyStoreErr(fmt.Sprintf("load local aliases for %s", owner), err)
	}
	alreadyOwned := false
	for _, n := range existing {
		if n.Nickname == alias {
			alreadyOwned = true
		}
	}
	if !alreadyOwned {
		if err := h.deps.Directory.CreateAlias(ctx, owner, alias); err != nil {
			return h.deps.classifyRemote(err)
		}
	}
	if err := h.deps.Store.UpsertNickname(ctx, &store.Nickname{
		Nickname:    alias,
		AccountName: owner,
		UpdateDate:  time.Now().UTC(),
	}); err != nil {
		return classifyStoreErr(fmt.Sprintf("mirror alias %s", alias), err)
	}
	return nil
}

func (h *AliasCreate) ShortDescription(job *queue.Job) string {
	return fmt.Sprintf("a_create #%d", job.ID())
}

func (h *AliasCreate) LongDescription(job *queue.Job) string {
	return fmt.Sprintf("Create remote alias and mirror it locally for job #%d.", job.ID())
}
