package handlers

import (
	"context"
	"fmt"

	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/queue"
)

// AliasDelete implements a_delete: idempotent on absence. Resolves the
// "alias-deletion remote-lookup key defect" open question: owner is used
// only to find which account currently carries the alias before issuing
// the delete (directory.Client.DeleteAlias takes owner purely as the
// lookup key Google's API requires, not as the thing being removed —
// the alias itself is always the delete target).
type AliasDelete struct{ deps Deps }

func (h *AliasDelete) SideEffects() bool { return true }

func (h *AliasDelete) Run(ctx context.Context, job *queue.Job) error {
	var p aliasParams
	if err := job.DecodeParameters(&p); err != nil {
		return err
	}
	if err := validateUsername(p.Alias); err != nil {
		return err
	}

	owner := normalizeUsername(p.Owner, h.deps.Directory.Domain)
	alias := normalizeUsername(p.Alias, h.deps.Directory.Domain)

	if err := h.deps.Directory.DeleteAlias(ctx, owner, alias); err != nil && !directory.IsNotFound(err) {
		return h.deps.classifyRemote(err)
	}
	if err := h.deps.Store.DeleteNickname(ctx, alias); err != nil {
		return classifyStoreErr(fmt.Sprintf("remove local alias %s", alias), err)
	}
	return nil
}

func (h *AliasDelete) ShortDescription(job *queue.Job) string {
	return fmt.Sprintf("a_delete #%d", job.ID())
}

func (h *AliasDelete) LongDescription(job *queue.Job) string {
	return fmt.Sprintf("Delete remote alias and its local mirror for job #%d.", job.ID())
}
