// Package recovery resumes tasks parked on lost connectivity. A single
// monitor loop probes the network on a fixed interval and re-dispatches
// every waiting task once the probe succeeds.
package recovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/valethq/valet/internal/agent"
	"github.com/valethq/valet/internal/netprobe"
	"github.com/valethq/valet/internal/task"
	"github.com/valethq/valet/pkg/panicerr"
)

// Executor runs a single task to a settled state. It must be safe to
// call for tasks that are already settled or claimed elsewhere.
type Executor interface {
	Execute(ctx context.Context, id string, reqCtx agent.RequestContext) error
}

type Monitor struct {
	repo     task.Repository
	prober   netprobe.Prober
	executor Executor
	interval time.Duration
	wg       conc.WaitGroup
}

func New(repo task.Repository, prober netprobe.Prober, executor Executor, interval time.Duration) *Monitor {
	return &Monitor{
		repo:     repo,
		prober:   prober,
		executor: executor,
		interval: interval,
	}
}

// Run loops until ctx is canceled. A failing sweep is logged and the
// loop continues on the next tick. On shutdown Run drains the
// executions it has dispatched before returning.
func (m *Monitor) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "recovery monitor started", "interval", m.interval)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "recovery monitor stopped")
			m.wg.Wait()
			return ctx.Err()
		case <-time.After(m.interval):
			m.sweep(ctx)
		}
	}
}

// sweep re-dispatches all parked tasks when connectivity is back. Each
// task runs in its own goroutine and sweep does not join on them, so a
// slow resumption never delays the next tick; the executor's own
// claiming makes duplicate dispatch harmless.
func (m *Monitor) sweep(ctx context.Context) {
	if !m.prober.IsOnline(ctx) {
		return
	}
	waiting, err := m.repo.ListByStatus(ctx, task.StatusWaitingForInternet)
	if err != nil {
		slog.ErrorContext(ctx, "could not list parked tasks", "error", err)
		return
	}
	if len(waiting) == 0 {
		return
	}
	slog.InfoContext(ctx, "connectivity restored, resuming parked tasks", "count", len(waiting))

	for _, t := range waiting {
		id := t.ID
		m.wg.Go(func() {
			err := panicerr.SafeContext(func(ctx context.Context) error {
				return m.executor.Execute(ctx, id, agent.RequestContext{})
			})(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "parked task resumption failed", "task_id", id, "error", err)
			}
		})
	}
}
