package task

import "context"

// Repository is the durable task store. Mutating operations are
// serialized against each other; readers may see a slightly stale
// snapshot but never a partially written record.
type Repository interface {
	// Put upserts a task keyed by ID.
	Put(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// List returns all tasks. An unreadable backing store yields an
	// empty slice rather than an error; individual corrupt records are
	// skipped.
	List(ctx context.Context) ([]*Task, error)
	ListByStatus(ctx context.Context, status Status) ([]*Task, error)
	// UpdateStatus transitions status and optionally appends planAppend
	// to the plan, as a single atomic read-modify-write. Transitions not
	// allowed by CanTransition are rejected with failed_precondition.
	UpdateStatus(ctx context.Context, id string, status Status, planAppend string) error
	// UpdateStatusCAS transitions from -> to only when the stored status
	// still equals from. Returns false without error when another writer
	// got there first.
	UpdateStatusCAS(ctx context.Context, id string, from, to Status) (bool, error)
}
