package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/valethq/valet/internal/capability"
	"github.com/valethq/valet/internal/netprobe"
)

type calendarAgent struct {
	calendar  capability.Calendar
	llm       capability.LLM
	prober    netprobe.Prober
	fastModel string
}

// NewCalendarCard builds the card that creates calendar events from
// free-text requests.
func NewCalendarCard(calendar capability.Calendar, llm capability.LLM, prober netprobe.Prober, fastModel string) *Card {
	a := &calendarAgent{
		calendar:  calendar,
		llm:       llm,
		prober:    prober,
		fastModel: fastModel,
	}
	return &Card{
		Name:        "Calendar Agent",
		Description: "Manages events, meetings, and appointments.",
		Triggers:    []string{"calendar", "calender", "meeting", "appointment", "event", "remind", "mark"},
		IntentID:    "calendar",
		Execute:     a.execute,
	}
}

type eventDetails struct {
	Summary         string `json:"summary"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (a *calendarAgent) execute(ctx context.Context, taskID, text string, reqCtx RequestContext) (string, error) {
	if !a.prober.IsOnline(ctx) {
		return "", nil
	}

	details := a.extractEventDetails(ctx, text, reqCtx)
	if details == nil {
		return "\n\n❌ Could not understand event details.", nil
	}

	result, err := a.calendar.CreateEvent(ctx, details.Summary, details.StartTime, details.DurationMinutes)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return fmt.Sprintf("\n\n❌ Event Creation Failed: %v", err), nil
	}
	return fmt.Sprintf("\n\n✅ Event Created: **%s**\n[View on Google Calendar](%s)", details.Summary, result.Link), nil
}

var jsonObjectRE = regexp.MustCompile(`(?s)\{.*\}`)

// extractEventDetails asks the model for structured event data. When the
// caller already extracted a time, the model only has to produce a title.
func (a *calendarAgent) extractEventDetails(ctx context.Context, text string, reqCtx RequestContext) *eventDetails {
	var prompt string
	if reqCtx.ExtractedTime != "" {
		prompt = fmt.Sprintf(`You are a JSON extractor.

Task: Extract the "summary" (Event Title) from the text.

Input: %q
Locked Start Time: %q

Output JSON:
{
    "summary": "Short event title",
    "start_time": %q,
    "duration_minutes": 30
}

Response (JSON ONLY):`, text, reqCtx.ExtractedTime, reqCtx.ExtractedTime)
	} else {
		timeContext := reqCtx.ClientTime
		if timeContext == "" {
			timeContext = time.Now().Format("Monday, 2006-01-02 15:04:05 MST")
		}
		prompt = fmt.Sprintf(`You are a smart JSON extractor.

Task: Extract event details from the user text into JSON format.
Current Time: %s

Rules:
1. "start_time": Must be ISO 8601 (YYYY-MM-DDTHH:MM:SS format).
- If user says "tomorrow at 2pm", calculate the date based on Current Time.
- If user says "today", use Current Date.
2. "summary": Short event title.
3. "duration_minutes": Default 30.
4. OUTPUT JSON ONLY. NO MARKDOWN. NO EXPLANATION.

User Request: %q

Response:`, timeContext, text)
	}

	response, err := a.llm.GenerateJSON(ctx, prompt, a.fastModel)
	if err != nil {
		slog.WarnContext(ctx, "event extraction failed", "error", err)
		return nil
	}

	// Models wrap JSON in code fences or prose more often than not.
	cleaned := strings.NewReplacer("```json", "", "```", "").Replace(response)
	match := jsonObjectRE.FindString(cleaned)
	if match == "" {
		slog.WarnContext(ctx, "no JSON object in extraction response")
		return nil
	}
	var details eventDetails
	if err := json.Unmarshal([]byte(match), &details); err != nil {
		slog.WarnContext(ctx, "failed to parse extracted event details", "error", err)
		return nil
	}
	if details.DurationMinutes <= 0 {
		details.DurationMinutes = 30
	}
	if details.Summary == "" {
		details.Summary = "New Event"
	}
	return &details
}
