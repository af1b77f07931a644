package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/valethq/valet/internal/capability"
)

// NoMatchMessage is returned when no registered card fires for a request.
const NoMatchMessage = "\n\nℹ️ This request doesn't seem to trigger any specialized tools. I've noted it down."

// Registry is an immutable ordered set of cards. Routing fans out to
// every matching card in registration order; it is not exclusive.
type Registry struct {
	cards    []*Card
	patterns [][]*regexp.Regexp
}

func NewRegistry(cards ...*Card) *Registry {
	r := &Registry{cards: cards}
	r.patterns = make([][]*regexp.Regexp, len(cards))
	for i, card := range cards {
		compiled := make([]*regexp.Regexp, 0, len(card.Triggers))
		for _, trigger := range card.Triggers {
			// Whole-word match so "meet" does not fire inside "meeting".
			compiled = append(compiled, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(trigger)+`\b`))
		}
		r.patterns[i] = compiled
	}
	return r
}

// Cards returns the registered cards in registration order.
func (r *Registry) Cards() []*Card {
	return r.cards
}

// Matches reports whether any of the card's trigger phrases appears in
// text as a whole word, case-insensitively.
func (r *Registry) Matches(cardIndex int, text string) bool {
	for _, pattern := range r.patterns[cardIndex] {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// Route invokes every matching, non-dismissed card in registration order
// and concatenates their non-empty results. A failing card contributes
// inline failure text and never prevents later cards from running.
func (r *Registry) Route(ctx context.Context, taskID, text string, reqCtx RequestContext) string {
	var b strings.Builder
	for i, card := range r.cards {
		if card.IntentID != "" && slices.Contains(reqCtx.DismissedIntents, card.IntentID) {
			slog.InfoContext(ctx, "skipping dismissed agent", "task_id", taskID, "agent", card.Name)
			continue
		}
		if !r.Matches(i, text) {
			continue
		}
		slog.InfoContext(ctx, "routing to agent", "task_id", taskID, "agent", card.Name)
		result, err := card.Execute(ctx, taskID, text, reqCtx)
		if err != nil {
			if errors.Is(err, capability.ErrNotAuthenticated) {
				b.WriteString(fmt.Sprintf("\n\n❌ %s needs a connected Google account.", card.Name))
			} else {
				slog.ErrorContext(ctx, "agent execution failed", "task_id", taskID, "agent", card.Name, "error", err)
				b.WriteString(fmt.Sprintf("\n\n❌ %s failed: %v", card.Name, err))
			}
			continue
		}
		b.WriteString(result)
	}
	if b.Len() == 0 {
		return NoMatchMessage
	}
	return b.String()
}
