package capability

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// GoogleCalendar implements Calendar against the Calendar v3 REST API.
type GoogleCalendar struct {
	g *googleClient
}

func NewGoogleCalendar(baseURL, token string) *GoogleCalendar {
	return &GoogleCalendar{g: newGoogleClient(baseURL, token)}
}

type calendarEventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type calendarEvent struct {
	Summary     string            `json:"summary"`
	Description string            `json:"description,omitempty"`
	Start       calendarEventTime `json:"start"`
	End         calendarEventTime `json:"end"`
	HTMLLink    string            `json:"htmlLink,omitempty"`
}

func (c *GoogleCalendar) CreateEvent(ctx context.Context, summary, startTimeISO string, durationMinutes int) (*EventResult, error) {
	start, err := parseISOTime(startTimeISO)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", startTimeISO, err)
	}
	if durationMinutes <= 0 {
		durationMinutes = 30
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	event := calendarEvent{
		Summary:     summary,
		Description: "Created by assistant.",
		Start:       calendarEventTime{DateTime: start.Format(time.RFC3339)},
		End:         calendarEventTime{DateTime: end.Format(time.RFC3339)},
	}
	var created calendarEvent
	if err := c.g.do(ctx, http.MethodPost, "/calendar/v3/calendars/primary/events", nil, event, &created); err != nil {
		return nil, err
	}
	return &EventResult{Link: created.HTMLLink}, nil
}

// parseISOTime accepts RFC 3339 plus the offset-less shape the extractor
// tends to produce (2023-10-10T13:00:00).
func parseISOTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.Local)
}
