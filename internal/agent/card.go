// Package agent implements the capability-handler registry and the
// fan-out router that dispatches request text to every matching handler.
package agent

import "context"

// RequestContext carries per-request routing hints supplied by the caller.
type RequestContext struct {
	// ClientTime is the caller's local time string, used as the
	// reference point for relative date extraction.
	ClientTime string
	// ExtractedTime is a time already extracted upstream; when set it
	// overrides model-based date extraction.
	ExtractedTime string
	// DismissedIntents lists intent IDs excluded from routing for this
	// request.
	DismissedIntents []string
}

// ExecuteFunc runs a capability handler. An empty result with a nil
// error means the handler matched but had nothing to do (for example,
// connectivity was lost mid-dispatch); it contributes no output and is
// not an error.
type ExecuteFunc func(ctx context.Context, taskID, text string, reqCtx RequestContext) (string, error)

// Card is a registered capability handler. Cards are built once at
// process start and are read-only afterwards.
type Card struct {
	Name        string
	Description string
	Triggers    []string
	// IntentID suppresses the card when present in the request's
	// dismissed intents. Empty means the card cannot be dismissed.
	IntentID string
	Execute  ExecuteFunc
}
