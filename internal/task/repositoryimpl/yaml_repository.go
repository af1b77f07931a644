package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valethq/valet/internal/task"
	"github.com/valethq/valet/pkg/cerr"
	"github.com/valethq/valet/pkg/storage"
)

const tasksPrefix = "tasks"

// YAMLRepository persists one YAML file per task under tasksPrefix.
// A repository-level mutex serializes read-modify-write sequences so a
// retry and a fresh execution never interleave on the same record.
type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", tasksPrefix, id)
}

func (r *YAMLRepository) Put(ctx context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(ctx, t)
}

func (r *YAMLRepository) write(ctx context.Context, t *task.Task) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, path(t.ID), data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal task: %w", err))
	}
	return &t, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, tasksPrefix)
	if err != nil {
		// Durability is best-effort: an unreadable store degrades to an
		// empty listing instead of taking the whole process down.
		return nil, nil
	}

	sort.Strings(paths)

	var all []*task.Task
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var t task.Task
		if err := yaml.Unmarshal(data, &t); err != nil {
			continue
		}
		all = append(all, &t)
	}
	return all, nil
}

func (r *YAMLRepository) ListByStatus(ctx context.Context, status task.Status) ([]*task.Task, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var matched []*task.Task
	for _, t := range all {
		if t.Status == status {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func (r *YAMLRepository) UpdateStatus(ctx context.Context, id string, status task.Status, planAppend string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !task.CanTransition(t.Status, status) {
		return cerr.NewError(cerr.FailedPrecondition, "illegal status transition",
			fmt.Errorf("task %s cannot move %s -> %s", id, t.Status, status))
	}
	t.Status = status
	if planAppend != "" {
		t.Plan += planAppend
	}
	t.UpdatedAt = time.Now()
	return r.write(ctx, t)
}

func (r *YAMLRepository) UpdateStatusCAS(ctx context.Context, id string, from, to task.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if t.Status != from {
		return false, nil
	}
	if !task.CanTransition(from, to) {
		return false, cerr.NewError(cerr.FailedPrecondition, "illegal status transition",
			fmt.Errorf("task %s cannot move %s -> %s", id, from, to))
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	if err := r.write(ctx, t); err != nil {
		return false, err
	}
	return true, nil
}
