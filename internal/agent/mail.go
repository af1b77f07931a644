package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valethq/valet/internal/capability"
	"github.com/valethq/valet/internal/classify"
	"github.com/valethq/valet/internal/netprobe"
)

const (
	mailIntentSpecific classify.Label = "SPECIFIC"
	mailIntentGeneral  classify.Label = "GENERAL"
)

type mailAgent struct {
	mail       capability.Mail
	llm        capability.LLM
	prober     netprobe.Prober
	classifier *classify.Classifier
	fastModel  string
	smartModel string
}

// NewMailCard builds the card that searches and summarizes the inbox.
func NewMailCard(mail capability.Mail, llm capability.LLM, prober netprobe.Prober, fastModel, smartModel string) *Card {
	a := &mailAgent{
		mail:       mail,
		llm:        llm,
		prober:     prober,
		fastModel:  fastModel,
		smartModel: smartModel,
	}
	a.classifier = classify.New(
		[]classify.KeywordRule{
			{Label: mailIntentGeneral, Keywords: []string{"unread", "inbox", "any new email"}},
			{Label: mailIntentSpecific, Keywords: []string{"read the", "find the", "tell me more"}},
		},
		llm,
		fastModel,
		`Classify this user request: %q

Is the user asking for:
1. SPECIFIC: Finding a particular email about a topic, person, or keyword.
2. GENERAL: A broad summary of recent/unread emails (inbox summary).

Answer with ONLY the word 'SPECIFIC' or 'GENERAL'.`,
		[]classify.Label{mailIntentSpecific, mailIntentGeneral},
		mailIntentGeneral,
	)
	return &Card{
		Name:        "Gmail Agent",
		Description: "Summarizes emails and searches for specific information in the inbox.",
		Triggers:    []string{"email", "gmail", "inbox", "unread", "from", "about", "summarize"},
		IntentID:    "email",
		Execute:     a.execute,
	}
}

func (a *mailAgent) execute(ctx context.Context, taskID, text string, _ RequestContext) (string, error) {
	if !a.prober.IsOnline(ctx) {
		return "", nil
	}

	intent := a.classifier.Classify(ctx, text)
	slog.InfoContext(ctx, "mail intent classified", "task_id", taskID, "intent", intent)

	var result string
	if intent == mailIntentSpecific {
		specific, err := a.searchSpecific(ctx, text)
		if err != nil {
			return "", err
		}
		result = specific
	}

	// Fall through to a general summary when the specific search came up
	// empty-handed, matching what a user asking "summary of X" expects.
	if result == "" {
		general, err := a.summarizeUnread(ctx)
		if err != nil {
			return "", err
		}
		result += general
	}
	return result, nil
}

func (a *mailAgent) searchSpecific(ctx context.Context, text string) (string, error) {
	queryPrompt := fmt.Sprintf(`Task: Generate a simple Gmail search query for: %q

Rules:
1. Response must be ONLY the query string.
2. Use simple keywords.
3. Use operators like 'from:' or 'subject:' ONLY if certain.
4. If searching for a topic, just return the topic keywords.

Query:`, text)
	raw, err := a.llm.Generate(ctx, queryPrompt, a.fastModel)
	if err != nil {
		slog.WarnContext(ctx, "search query generation failed", "error", err)
		return "", nil
	}
	query := cleanSearchQuery(raw)
	if query == "" {
		return "", nil
	}

	messages, err := a.mail.SearchMessages(ctx, query, 3)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Email search failed: %v", err), nil
	}
	if len(messages) == 0 {
		return fmt.Sprintf("\n\n🔍 No emails found for: `%s`", query), nil
	}

	content, err := a.mail.GetMessageContent(ctx, messages[0].ID)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return "\n\n❌ Could not retrieve email content.", nil
	}

	body := cleanEmailBody(content.Body)
	if len(body) > 3500 {
		body = body[:3500]
	}
	readPrompt := fmt.Sprintf(`The user asked: %q
Email Content:
From: %s
Subject: %s
Body: %s

Summarize the core details (especially timing/links) as requested.`, text, content.Sender, content.Subject, body)
	summary, err := a.llm.Generate(ctx, readPrompt, a.smartModel)
	if err != nil {
		summary = content.Body
	}
	link := "https://mail.google.com/mail/u/0/#inbox/" + messages[0].ID
	return fmt.Sprintf("\n\n📧 **Email Found**\n**From:** %s\n**Subject:** %s\n\n%s\n\n[Open in Gmail](%s)",
		content.Sender, content.Subject, summary, link), nil
}

func (a *mailAgent) summarizeUnread(ctx context.Context) (string, error) {
	messages, err := a.mail.FetchUnread(ctx, 5)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n⚠️ Could not access the inbox: %v", err), nil
	}
	if len(messages) == 0 {
		return "\n\n✅ You have no new unread emails.", nil
	}

	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "- From: %s Subject: %s Snippet: %s\n", m.Sender, m.Subject, m.Snippet)
	}
	summary, err := a.llm.Generate(ctx, "Summarize these unread emails briefly:\n"+b.String(), a.smartModel)
	if err != nil {
		summary = b.String()
	}
	return "\n\n📧 **Inbox Summary**\n" + summary, nil
}

// cleanSearchQuery normalizes a model-generated query and rejects ones
// too generic to be useful.
func cleanSearchQuery(raw string) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	query := strings.NewReplacer(`"`, "", `'`, "", ",", " ").Replace(lines[len(lines)-1])
	query = strings.TrimSpace(query)
	switch strings.ToLower(query) {
	case "", "summary", "email", "gmail", "inbox", "emails", "my email", "my emails":
		return ""
	}
	return query
}
