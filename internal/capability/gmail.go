package capability

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
)

// GoogleMail implements Mail against the Gmail v1 REST API.
type GoogleMail struct {
	g *googleClient
}

func NewGoogleMail(baseURL, token string) *GoogleMail {
	return &GoogleMail{g: newGoogleClient(baseURL, token)}
}

type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gmailPart struct {
	MimeType string `json:"mimeType"`
	Body     struct {
		Data string `json:"data"`
	} `json:"body"`
	Headers []gmailHeader `json:"headers"`
	Parts   []gmailPart   `json:"parts"`
}

type gmailMessage struct {
	ID      string    `json:"id"`
	Snippet string    `json:"snippet"`
	Payload gmailPart `json:"payload"`
}

type gmailListResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (m *GoogleMail) SearchMessages(ctx context.Context, query string, limit int) ([]Message, error) {
	return m.list(ctx, query, limit)
}

func (m *GoogleMail) FetchUnread(ctx context.Context, limit int) ([]Message, error) {
	return m.list(ctx, "is:unread", limit)
}

func (m *GoogleMail) list(ctx context.Context, query string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("maxResults", strconv.Itoa(limit))

	var listed gmailListResponse
	if err := m.g.do(ctx, http.MethodGet, "/gmail/v1/users/me/messages", q, nil, &listed); err != nil {
		return nil, err
	}

	var out []Message
	for _, ref := range listed.Messages {
		mq := url.Values{}
		mq.Set("format", "metadata")
		mq.Add("metadataHeaders", "Subject")
		mq.Add("metadataHeaders", "From")
		var msg gmailMessage
		if err := m.g.do(ctx, http.MethodGet, "/gmail/v1/users/me/messages/"+ref.ID, mq, nil, &msg); err != nil {
			return nil, err
		}
		out = append(out, Message{
			ID:      ref.ID,
			Subject: headerValue(msg.Payload.Headers, "Subject", "(No Subject)"),
			Sender:  headerValue(msg.Payload.Headers, "From", "(Unknown Sender)"),
			Snippet: msg.Snippet,
		})
	}
	return out, nil
}

func (m *GoogleMail) GetMessageContent(ctx context.Context, id string) (*MessageContent, error) {
	q := url.Values{}
	q.Set("format", "full")
	var msg gmailMessage
	if err := m.g.do(ctx, http.MethodGet, "/gmail/v1/users/me/messages/"+id, q, nil, &msg); err != nil {
		return nil, err
	}

	body := extractPlainText(msg.Payload)
	if body == "" {
		body = msg.Snippet
	}
	return &MessageContent{
		Subject: headerValue(msg.Payload.Headers, "Subject", "(No Subject)"),
		Sender:  headerValue(msg.Payload.Headers, "From", "(Unknown Sender)"),
		Body:    body,
	}, nil
}

func headerValue(headers []gmailHeader, name, fallback string) string {
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}
	return fallback
}

// extractPlainText walks the MIME tree breadth-first and concatenates
// every text/plain part.
func extractPlainText(root gmailPart) string {
	parts := []gmailPart{root}
	var body string
	for len(parts) > 0 {
		part := parts[0]
		parts = append(parts[1:], part.Parts...)
		if part.MimeType == "text/plain" && part.Body.Data != "" {
			decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data)
			if err != nil {
				continue
			}
			body += string(decoded)
		}
	}
	return body
}
