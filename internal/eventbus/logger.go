package eventbus

import (
	"context"
	"log/slog"
)

// RunLogger subscribes to the bus and logs every event until ctx is
// canceled. It uses a generous buffer; under sustained overload events
// are dropped rather than backpressuring publishers.
func RunLogger(ctx context.Context, bus *Bus) error {
	id, ch := bus.Subscribe(64)
	defer bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			slog.InfoContext(ctx, "task event",
				"event_id", ev.ID,
				"type", string(ev.Type),
				"task_id", ev.TaskID,
				"payload", truncate(ev.Payload, 120),
			)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
