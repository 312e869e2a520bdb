package queue

import "context"

// Handler is the four-method contract every concrete job handler
// implements, generalizing the teacher's JobHandler interface
// (Handle/GetType/GetTimeout) to the richer shape spec.md names: run,
// side-effects (which also decides whether it may run in read-only
// mode), and the two human-readable string forms the admin console
// renders.
type Handler interface {
	// Run executes the job. It must return a *queue.Error (Permanent,
	// Transient, or Credential) to get mechanical row consequences; a
	// plain error is treated as Transient.
	Run(ctx context.Context, job *Job) error

	// SideEffects reports whether Run mutates remote state. Read-only
	// mode refuses to invoke any handler for which this is true.
	SideEffects() bool

	// ShortDescription is a one-line human form for log lines and list views.
	ShortDescription(job *Job) string

	// LongDescription is a multi-line human form the admin console shows
	// before asking for confirmation.
	LongDescription(job *Job) string
}

// Constructor builds a Handler for one job type. Registered constructors
// are looked up by j_type at dispatch time.
type Constructor func() Handler

// Registry maps job type names to handler constructors, generalizing the
// teacher's createJobHandlers fixed map literal into a registration API.
// Callers build one explicitly (NewRegistry) and populate it via
// handlers.Register, rather than relying on package-level init() wiring.
type Registry struct {
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor for jobType. Panics on duplicate
// registration: that is always a programming error, never a runtime one.
func (r *Registry) Register(jobType string, ctor Constructor) {
	if _, exists := r.constructors[jobType]; exists {
		panic("queue: duplicate handler registration for job type " + jobType)
	}
	r.constructors[jobType] = ctor
}

// Lookup returns a fresh Handler for jobType, or false if no handler is
// registered — a row with an unrecognized j_type can never be dispatched
// and the manager hardfails it permanently.
func (r *Registry) Lookup(jobType string) (Handler, bool) {
	ctor, ok := r.constructors[jobType]
	if !ok {
		return nil, false
	}
	return ctor(), true
}
