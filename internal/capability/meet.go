package capability

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GoogleMeet implements Meetings against the Meet v2 REST API.
type GoogleMeet struct {
	g *googleClient
}

func NewGoogleMeet(baseURL, token string) *GoogleMeet {
	return &GoogleMeet{g: newGoogleClient(baseURL, token)}
}

type meetSpace struct {
	Name        string `json:"name"`
	MeetingCode string `json:"meetingCode"`
	MeetingURI  string `json:"meetingUri"`
}

func (m *GoogleMeet) CreateSpace(ctx context.Context) (*Space, error) {
	var space meetSpace
	if err := m.g.do(ctx, http.MethodPost, "/spaces", nil, map[string]any{}, &space); err != nil {
		return nil, err
	}
	return &Space{Name: space.Name, MeetingCode: space.MeetingCode, MeetingURI: space.MeetingURI}, nil
}

func (m *GoogleMeet) GetSpace(ctx context.Context, name string) (*Space, error) {
	var space meetSpace
	if err := m.g.do(ctx, http.MethodGet, "/"+name, nil, nil, &space); err != nil {
		return nil, err
	}
	return &Space{Name: space.Name, MeetingCode: space.MeetingCode, MeetingURI: space.MeetingURI}, nil
}

func (m *GoogleMeet) ListConferenceRecords(ctx context.Context, spaceNameFilter string) ([]ConferenceRecord, error) {
	q := url.Values{}
	if spaceNameFilter != "" {
		q.Set("filter", fmt.Sprintf("space.name = %q", spaceNameFilter))
	}
	var out struct {
		ConferenceRecords []struct {
			Name string `json:"name"`
		} `json:"conferenceRecords"`
	}
	if err := m.g.do(ctx, http.MethodGet, "/conferenceRecords", q, nil, &out); err != nil {
		return nil, err
	}
	records := make([]ConferenceRecord, 0, len(out.ConferenceRecords))
	for _, r := range out.ConferenceRecords {
		records = append(records, ConferenceRecord{Name: r.Name})
	}
	return records, nil
}

func (m *GoogleMeet) ListParticipants(ctx context.Context, conferenceRecordName string) ([]Participant, error) {
	var out struct {
		Participants []struct {
			SignedinUser struct {
				DisplayName string `json:"displayName"`
			} `json:"signedinUser"`
			AnonymousUser struct {
				DisplayName string `json:"displayName"`
			} `json:"anonymousUser"`
		} `json:"participants"`
	}
	if err := m.g.do(ctx, http.MethodGet, "/"+conferenceRecordName+"/participants", nil, nil, &out); err != nil {
		return nil, err
	}
	participants := make([]Participant, 0, len(out.Participants))
	for _, p := range out.Participants {
		name := p.SignedinUser.DisplayName
		if name == "" {
			name = p.AnonymousUser.DisplayName
		}
		if name == "" {
			name = "Unknown"
		}
		participants = append(participants, Participant{DisplayName: name})
	}
	return participants, nil
}

func (m *GoogleMeet) ListTranscripts(ctx context.Context, conferenceRecordName string) ([]Transcript, error) {
	var out struct {
		Transcripts []struct {
			Name string `json:"name"`
		} `json:"transcripts"`
	}
	if err := m.g.do(ctx, http.MethodGet, "/"+conferenceRecordName+"/transcripts", nil, nil, &out); err != nil {
		return nil, err
	}
	transcripts := make([]Transcript, 0, len(out.Transcripts))
	for _, t := range out.Transcripts {
		transcripts = append(transcripts, Transcript{Name: t.Name})
	}
	return transcripts, nil
}

func (m *GoogleMeet) ListTranscriptEntries(ctx context.Context, transcriptName string) ([]TranscriptEntry, error) {
	var out struct {
		TranscriptEntries []struct {
			Participant string `json:"participant"`
			Text        string `json:"text"`
		} `json:"transcriptEntries"`
	}
	if err := m.g.do(ctx, http.MethodGet, "/"+transcriptName+"/entries", nil, nil, &out); err != nil {
		return nil, err
	}
	entries := make([]TranscriptEntry, 0, len(out.TranscriptEntries))
	for _, e := range out.TranscriptEntries {
		entries = append(entries, TranscriptEntry{Participant: e.Participant, Text: e.Text})
	}
	return entries, nil
}
