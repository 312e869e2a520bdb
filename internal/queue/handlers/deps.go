// Package handlers implements the concrete C5 job handlers, one file per
// job type, mirroring the teacher's internal/queue/handlers.go structure
// (one Handler-implementing struct per job kind, JSON-decode-from-payload
// idiom) generalized to real Directory/Reports API calls.
package handlers

import (
	"fmt"

	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/logging"
	"github.com/vzanotti/gappsd-go/internal/queue"
	"github.com/vzanotti/gappsd-go/internal/sqlstore"
	"github.com/vzanotti/gappsd-go/internal/store"
)

// Deps gathers everything a handler needs beyond its own job parameters:
// the remote client, the local mirror store, the logger for critical
// events, and the privileged-mode flag user-delete/user-update consult.
type Deps struct {
	Directory     *directory.Client
	Store         *store.Store
	Queue         queue.Store
	Log           *logging.Logger
	AdminOnlyJobs bool
	ReportBacklog int
}

// Register installs every concrete handler's constructor into reg,
// generalizing the teacher's createJobHandlers map literal into explicit
// per-type registration calls.
func Register(reg *queue.Registry, deps Deps) {
	reg.Register("u_create", func() queue.Handler { return &UserCreate{deps: deps} })
	reg.Register("u_delete", func() queue.Handler { return &UserDelete{deps: deps} })
	reg.Register("u_update", func() queue.Handler { return &UserUpdate{deps: deps} })
	reg.Register("u_sync", func() queue.Handler { return &UserSync{deps: deps} })
	reg.Register("a_create", func() queue.Handler { return &AliasCreate{deps: deps} })
	reg.Register("a_delete", func() queue.Handler { return &AliasDelete{deps: deps} })
	reg.Register("a_resync", func() queue.Handler { return &AliasResync{deps: deps} })
	reg.Register("usage_report", func() queue.Handler { return &UsageReport{deps: deps} })
	reg.Register("account_report", func() queue.Handler { return &AccountReport{deps: deps} })
}

// classifyStoreErr wraps a local-mirror error (with context msg) with the
// queue taxonomy's Kind, using sqlstore.Classify to tell a deadlock or
// lost-connection (retry later) apart from a constraint violation or
// malformed query (never going to succeed on retry) instead of treating
// every mirror failure as Transient.
func classifyStoreErr(msg string, err error) error {
	wrapped := fmt.Errorf("%s: %w", msg, err)
	if sqlstore.Classify(err) {
		return queue.NewError(queue.Transient, wrapped)
	}
	return queue.NewError(queue.Permanent, wrapped)
}

// classifyRemote wraps a directory-layer error with the queue taxonomy's
// Kind, translating directory.ErrorKind into queue.Kind. Goes through
// Directory.ClassifyAndReset rather than the bare directory.Classify so a
// 401 also discards the cached OAuth2 token before the job retries.
func (d Deps) classifyRemote(err error) error {
	switch d.Directory.ClassifyAndReset(err) {
	case directory.KindCredential:
		return queue.NewError(queue.Credential, err)
	case directory.KindTransient:
		return queue.NewError(queue.Transient, err)
	default:
		return queue.NewError(queue.Permanent, err)
	}
}

func normalizeUsername(username, domain string) string {
	for i := 0; i < len(username); i++ {
		if username[i] == '@' {
			return username
		}
	}
	return username + "@" + domain
}

