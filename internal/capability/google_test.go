package capability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleClientNoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be made without a token")
	}))
	defer srv.Close()

	g := newGoogleClient(srv.URL, "")
	err := g.do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestGoogleClientUnauthorizedStatus(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		g := newGoogleClient(srv.URL, "expired-token")
		err := g.do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
		assert.ErrorIs(t, err, ErrNotAuthenticated, "status %d", status)
		srv.Close()
	}
}

func TestGoogleClientSendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	g := newGoogleClient(srv.URL, "tok123")
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, g.do(context.Background(), http.MethodGet, "/x", nil, nil, &out))
	assert.Equal(t, "Bearer tok123", auth)
	assert.True(t, out.OK)
}

func TestGoogleClientErrorIncludesBodyExcerpt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rateLimitExceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := newGoogleClient(srv.URL, "tok")
	err := g.do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "rateLimitExceeded")
}

func TestGoogleMailSearchMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gmail/v1/users/me/messages":
			assert.Equal(t, "budget report", r.URL.Query().Get("q"))
			assert.Equal(t, "3", r.URL.Query().Get("maxResults"))
			w.Write([]byte(`{"messages": [{"id": "m1"}]}`))
		case "/gmail/v1/users/me/messages/m1":
			w.Write([]byte(`{
				"id": "m1",
				"snippet": "the numbers look fine",
				"payload": {"headers": [
					{"name": "Subject", "value": "Q1 Budget"},
					{"name": "From", "value": "alex@example.com"}
				]}
			}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	m := NewGoogleMail(srv.URL, "tok")
	messages, err := m.SearchMessages(context.Background(), "budget report", 3)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "Q1 Budget", messages[0].Subject)
	assert.Equal(t, "alex@example.com", messages[0].Sender)
	assert.Equal(t, "the numbers look fine", messages[0].Snippet)
}

func TestGoogleMeetListConferenceRecordsFilter(t *testing.T) {
	var filter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter = r.URL.Query().Get("filter")
		w.Write([]byte(`{"conferenceRecords": [{"name": "conferenceRecords/r1"}]}`))
	}))
	defer srv.Close()

	m := NewGoogleMeet(srv.URL, "tok")
	records, err := m.ListConferenceRecords(context.Background(), "spaces/abc")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "conferenceRecords/r1", records[0].Name)
	assert.Equal(t, `space.name = "spaces/abc"`, filter)
}
