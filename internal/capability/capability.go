// Package capability defines the narrow interfaces the core dispatches
// against: calendar, mail, meetings, coursework, and text classification.
// Implementations either succeed with a structured result or fail with an
// explicit error value; nothing raises past this boundary silently.
package capability

import (
	"context"
	"errors"
)

// ErrNotAuthenticated is returned by every capability call when no valid
// external credentials are configured. Callers short-circuit immediately
// instead of attempting a doomed network call.
var ErrNotAuthenticated = errors.New("not authenticated")

type EventResult struct {
	Link string
}

type Message struct {
	ID      string
	Subject string
	Sender  string
	Snippet string
}

type MessageContent struct {
	Subject string
	Sender  string
	Body    string
}

type Space struct {
	Name        string
	MeetingCode string
	MeetingURI  string
}

type ConferenceRecord struct {
	Name string
}

type Participant struct {
	DisplayName string
}

type Transcript struct {
	Name string
}

type TranscriptEntry struct {
	Participant string
	Text        string
}

type Course struct {
	ID            string
	Name          string
	Section       string
	AlternateLink string
}

type CourseWork struct {
	Title         string
	DueDate       string
	AlternateLink string
}

type Announcement struct {
	Text          string
	AlternateLink string
}

type Calendar interface {
	CreateEvent(ctx context.Context, summary, startTimeISO string, durationMinutes int) (*EventResult, error)
}

type Mail interface {
	SearchMessages(ctx context.Context, query string, limit int) ([]Message, error)
	FetchUnread(ctx context.Context, limit int) ([]Message, error)
	GetMessageContent(ctx context.Context, id string) (*MessageContent, error)
}

type Meetings interface {
	CreateSpace(ctx context.Context) (*Space, error)
	GetSpace(ctx context.Context, name string) (*Space, error)
	ListConferenceRecords(ctx context.Context, spaceNameFilter string) ([]ConferenceRecord, error)
	ListParticipants(ctx context.Context, conferenceRecordName string) ([]Participant, error)
	ListTranscripts(ctx context.Context, conferenceRecordName string) ([]Transcript, error)
	ListTranscriptEntries(ctx context.Context, transcriptName string) ([]TranscriptEntry, error)
}

type Coursework interface {
	ListCourses(ctx context.Context) ([]Course, error)
	ListCourseWork(ctx context.Context, courseID string) ([]CourseWork, error)
	ListAnnouncements(ctx context.Context, courseID string) ([]Announcement, error)
}

// LLM is the classification/generation capability. Responses are
// best-effort free text; callers must parse tolerantly.
type LLM interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
	GenerateJSON(ctx context.Context, prompt, model string) (string, error)
}
