// Package classify implements the two-tier sub-intent classifier: cheap
// deterministic keyword rules are always tried first, and an external
// language model is consulted only when no rule applies. Both tiers
// produce a label from the same closed set.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valethq/valet/internal/capability"
)

// Label is one of a small closed set of category tags.
type Label string

// KeywordRule maps trigger keywords to a label. Rules are evaluated in
// order; the first keyword hit wins.
type KeywordRule struct {
	Label    Label
	Keywords []string
}

type variant interface {
	classify(ctx context.Context, text string) (Label, bool)
}

type keywordVariant struct {
	rules []KeywordRule
}

func (v keywordVariant) classify(_ context.Context, text string) (Label, bool) {
	lowered := strings.ToLower(text)
	for _, rule := range v.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				return rule.Label, true
			}
		}
	}
	return "", false
}

type llmVariant struct {
	llm      capability.LLM
	model    string
	template string
	labels   []Label
}

func (v llmVariant) classify(ctx context.Context, text string) (Label, bool) {
	response, err := v.llm.Generate(ctx, fmt.Sprintf(v.template, text), v.model)
	if err != nil {
		slog.WarnContext(ctx, "classifier model call failed", "error", err)
		return "", false
	}
	// The model may answer with surrounding prose; accept the expected
	// label anywhere in the response, case-insensitively.
	upper := strings.ToUpper(response)
	for _, label := range v.labels {
		if strings.Contains(upper, strings.ToUpper(string(label))) {
			return label, true
		}
	}
	return "", false
}

// Classifier resolves text to a label, keyword rules before model calls.
type Classifier struct {
	variants []variant
	fallback Label
}

// New builds a classifier. template must contain one string verb for
// the request text; fallback is the label used when neither tier
// answers.
func New(rules []KeywordRule, llm capability.LLM, model, template string, labels []Label, fallback Label) *Classifier {
	return &Classifier{
		variants: []variant{
			keywordVariant{rules: rules},
			llmVariant{llm: llm, model: model, template: template, labels: labels},
		},
		fallback: fallback,
	}
}

func (c *Classifier) Classify(ctx context.Context, text string) Label {
	for _, v := range c.variants {
		if label, ok := v.classify(ctx, text); ok {
			return label
		}
	}
	return c.fallback
}
