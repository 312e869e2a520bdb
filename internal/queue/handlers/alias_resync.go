package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/vzanotti/gappsd-go/internal/queue"
	"github.com/vzanotti/gappsd-go/internal/store"
)

// AliasResync implements a_resync: no side effects on the remote
// service, converging the local alias set onto the authoritative remote
// one (add missing, drop stale, correct mismatched owners).
type AliasResync struct{ deps Deps }

func (h *AliasResync) SideEffects() bool { return false }

func (h *AliasResync) Run(ctx context.Context, job *queue.Job) error {
	remote, err := h.deps.Directory.ListAliases(ctx)
	if err != nil {
		return h.deps.classifyRemote(err)
	}
	remoteByAlias := make(map[string]string, len(remote))
	for _, a := range remote {
		remoteByAlias[a.Alias] = a.Owner
	}

	local, err := h.deps.Store.ListAllNicknames(ctx)
	if err != nil {
		return classifyStoreErr("list local aliases", err)
	}
	localByAlias := make(map[string]store.Nickname, len(local))
	for _, n := range local {
		localByAlias[n.Nickname] = n
	}

	now := time.Now().UTC()
	for alias, owner := range remoteByAlias {
		n, ok := localByAlias[alias]
		if !ok || n.AccountName != owner {
			if err := h.deps.Store.UpsertNickname(ctx, &store.Nickname{Nickname: alias, AccountName: owner, UpdateDate: now}); err != nil {
				return classifyStoreErr(fmt.Sprintf("upsert alias %s", alias), err)
			}
		}
	}
	for alias := range localByAlias {
		if _, ok := remoteByAlias[alias]; !ok {
			if err := h.deps.Store.DeleteNickname(ctx, alias); err != nil {
				return classifyStoreErr(fmt.Sprintf("drop stale alias %s", alias), err)
			}
		}
	}
	return nil
}

func (h *AliasResync) ShortDescription(job *queue.Job) string {
	return fmt.Sprintf("a_resync #%d", job.ID())
}

func (h *AliasResync) LongDescription(job *queue.Job) string {
	return fmt.Sprintf("Converge local alias mirror onto the remote alias set for job #%d.", job.ID())
}
