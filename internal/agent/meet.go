package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/valethq/valet/internal/capability"
	"github.com/valethq/valet/internal/classify"
	"github.com/valethq/valet/internal/meet"
	"github.com/valethq/valet/internal/netprobe"
)

const (
	meetIntentCreate       classify.Label = "CREATE"
	meetIntentGet          classify.Label = "GET"
	meetIntentParticipants classify.Label = "PARTICIPANTS"
	meetIntentTranscript   classify.Label = "TRANSCRIPT"
	meetIntentHelp         classify.Label = "HELP"
)

type meetAgent struct {
	meetings   capability.Meetings
	resolver   *meet.Resolver
	llm        capability.LLM
	prober     netprobe.Prober
	classifier *classify.Classifier
	fastModel  string
}

// NewMeetCard builds the card that manages Google Meet spaces,
// participants and transcripts.
func NewMeetCard(meetings capability.Meetings, llm capability.LLM, prober netprobe.Prober, fastModel string) *Card {
	a := &meetAgent{
		meetings:  meetings,
		resolver:  meet.NewResolver(meetings),
		llm:       llm,
		prober:    prober,
		fastModel: fastModel,
	}
	a.classifier = classify.New(
		[]classify.KeywordRule{
			{Label: meetIntentTranscript, Keywords: []string{"transcript", "what was said", "notes from"}},
			{Label: meetIntentParticipants, Keywords: []string{"participant", "who joined", "who attended", "attendees"}},
			{Label: meetIntentCreate, Keywords: []string{"create", "new meeting", "start a meet", "set up a"}},
			{Label: meetIntentGet, Keywords: []string{"get meeting", "meeting info", "details of", "link for"}},
		},
		llm,
		fastModel,
		`Classify this Google Meet request: %q

Pick one:
CREATE: create a new meeting space.
GET: get info or the link for an existing meeting.
PARTICIPANTS: who joined a past meeting.
TRANSCRIPT: the transcript of a past meeting.
HELP: none of the above.

Answer with ONLY one word.`,
		[]classify.Label{meetIntentCreate, meetIntentGet, meetIntentParticipants, meetIntentTranscript, meetIntentHelp},
		meetIntentHelp,
	)
	return &Card{
		Name:        "Meet Agent",
		Description: "Creates Google Meet spaces and reads participants and transcripts of past calls.",
		Triggers:    []string{"meet", "meeting link", "video call", "conference", "join meeting", "create meet", "participants", "transcript", "google meet"},
		IntentID:    "meet",
		Execute:     a.execute,
	}
}

func (a *meetAgent) execute(ctx context.Context, taskID, text string, _ RequestContext) (string, error) {
	if !a.prober.IsOnline(ctx) {
		return "", nil
	}

	switch a.classifier.Classify(ctx, text) {
	case meetIntentCreate:
		return a.createSpace(ctx)
	case meetIntentGet:
		return a.getSpace(ctx, text)
	case meetIntentParticipants:
		return a.listParticipants(ctx, text)
	case meetIntentTranscript:
		return a.fetchTranscript(ctx, text)
	default:
		return "\n\nℹ️ I can create a Meet space, fetch a meeting link, list participants, or pull a transcript. Try: 'create a meet for standup'.", nil
	}
}

func (a *meetAgent) createSpace(ctx context.Context) (string, error) {
	space, err := a.meetings.CreateSpace(ctx)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Could not create a Meet space: %v", err), nil
	}
	return fmt.Sprintf("\n\n📹 **Meeting Created**\nCode: `%s`\n[Join the meeting](%s)", space.MeetingCode, space.MeetingURI), nil
}

func (a *meetAgent) getSpace(ctx context.Context, text string) (string, error) {
	code, err := a.extractIdentifier(ctx, text)
	if err != nil || code == "" {
		return "\n\nℹ️ Tell me the meeting code (like abc-defg-hij) and I'll fetch the details.", nil
	}
	space, err := a.meetings.GetSpace(ctx, code)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Could not find a meeting for `%s`.", code), nil
	}
	return fmt.Sprintf("\n\n📹 **Meeting Details**\nCode: `%s`\n[Join the meeting](%s)", space.MeetingCode, space.MeetingURI), nil
}

func (a *meetAgent) listParticipants(ctx context.Context, text string) (string, error) {
	record, msg, err := a.resolveRecord(ctx, text)
	if record == "" {
		return msg, err
	}
	participants, err := a.meetings.ListParticipants(ctx, record)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Could not list participants: %v", err), nil
	}
	if len(participants) == 0 {
		return "\n\n👥 No participants were recorded for that meeting.", nil
	}
	var b strings.Builder
	b.WriteString("\n\n👥 **Participants**\n")
	for _, p := range participants {
		fmt.Fprintf(&b, "- %s\n", p.DisplayName)
	}
	return b.String(), nil
}

func (a *meetAgent) fetchTranscript(ctx context.Context, text string) (string, error) {
	record, msg, err := a.resolveRecord(ctx, text)
	if record == "" {
		return msg, err
	}
	transcripts, err := a.meetings.ListTranscripts(ctx, record)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Could not list transcripts: %v", err), nil
	}
	if len(transcripts) == 0 {
		return "\n\n📄 No transcript is available for that meeting yet.", nil
	}
	entries, err := a.meetings.ListTranscriptEntries(ctx, transcripts[0].Name)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Could not read the transcript: %v", err), nil
	}
	var b strings.Builder
	b.WriteString("\n\n📄 **Transcript**\n")
	for i, e := range entries {
		if i >= 50 {
			b.WriteString("> …\n")
			break
		}
		fmt.Fprintf(&b, "> %s\n", e.Text)
	}
	return b.String(), nil
}

// resolveRecord turns free-form text into a conference record name. When it
// returns an empty record, msg carries the user-facing explanation.
func (a *meetAgent) resolveRecord(ctx context.Context, text string) (record, msg string, err error) {
	code, exErr := a.extractIdentifier(ctx, text)
	if exErr != nil || code == "" {
		return "", "\n\nℹ️ Tell me which meeting (code like abc-defg-hij) you mean.", nil
	}
	record, rErr := a.resolver.Resolve(ctx, code)
	if rErr != nil {
		if errors.Is(rErr, capability.ErrNotAuthenticated) {
			return "", "", rErr
		}
		if errors.Is(rErr, meet.ErrNotFound) {
			return "", fmt.Sprintf("\n\n🔍 No past meeting found for `%s`.", code), nil
		}
		return "", fmt.Sprintf("\n\n❌ Could not look up the meeting: %v", rErr), nil
	}
	return record, "", nil
}

// extractIdentifier pulls a meeting code or record name out of the request.
func (a *meetAgent) extractIdentifier(ctx context.Context, text string) (string, error) {
	if m := meet.MeetingCodePattern().FindString(strings.ToLower(text)); m != "" {
		return m, nil
	}
	prompt := fmt.Sprintf(`Extract the Google Meet identifier from this request: %q

It is either a meeting code like abc-defg-hij or a resource name like
conferenceRecords/xxxx or spaces/xxxx. Respond with ONLY the identifier,
or NONE if there is none.`, text)
	raw, err := a.llm.Generate(ctx, prompt, a.fastModel)
	if err != nil {
		return "", err
	}
	id := strings.Trim(strings.TrimSpace(raw), "`'\"")
	if id == "" || strings.EqualFold(id, "NONE") {
		return "", nil
	}
	return id, nil
}
