// Package panicerr converts panics in supervised goroutines into
// ordinary errors so a crashing handler fails its task instead of the
// process.
package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Safe wraps fn so that a panic inside it is returned as an error. The
// function's own error wins when both occur.
func Safe(fn func() error) func() error {
	return func() error {
		var err error
		recovered := panics.Try(func() { err = fn() })
		if err != nil {
			return err
		}
		return recovered.AsError()
	}
}

// SafeContext is Safe for context-taking functions.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var err error
		recovered := panics.Try(func() { err = fn(ctx) })
		if err != nil {
			return err
		}
		return recovered.AsError()
	}
}
