// Package meet resolves loosely specified meeting identifiers into
// canonical conference-record references.
package meet

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/valethq/valet/internal/capability"
)

// ErrNotFound means no completed conference record could be resolved for
// the given identifier.
var ErrNotFound = errors.New("conference record not found")

// meetingCodeRE matches human-shareable meeting codes: three lowercase
// letter groups of length 3, 4, 3 separated by dashes (abc-defg-hij).
// Real conference-record IDs are long opaque strings.
var meetingCodeRE = regexp.MustCompile(`^[a-z]{3}-[a-z]{4}-[a-z]{3}$`)

// meetingCodeScanRE is the unanchored form for scanning codes inside
// free-form text.
var meetingCodeScanRE = regexp.MustCompile(`\b[a-z]{3}-[a-z]{4}-[a-z]{3}\b`)

// MeetingCodePattern returns the regexp that finds shareable meeting
// codes inside free-form text.
func MeetingCodePattern() *regexp.Regexp {
	return meetingCodeScanRE
}

// Resolver maps a raw user-extracted string to a conferenceRecords/<id>
// reference. It handles three raw shapes: an existing record name, a
// bare meeting code, and a spaces/<id> name.
type Resolver struct {
	meetings capability.Meetings
}

func NewResolver(meetings capability.Meetings) *Resolver {
	return &Resolver{meetings: meetings}
}

func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "/"))

	if id, ok := strings.CutPrefix(raw, "conferenceRecords/"); ok {
		if !meetingCodeRE.MatchString(id) {
			// Already a canonical reference.
			return raw, nil
		}
		// An upstream extractor wrapped a meeting code in a
		// conferenceRecords/ prefix speculatively. Resolve the code.
		raw = id
	}

	spaceName := raw
	if !strings.HasPrefix(raw, "spaces/") {
		spaceName = "spaces/" + raw
	}

	space, err := r.meetings.GetSpace(ctx, spaceName)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		slog.WarnContext(ctx, "could not resolve meeting space", "space", spaceName, "error", err)
		return "", ErrNotFound
	}
	if space.Name != "" {
		spaceName = space.Name
	}

	records, err := r.meetings.ListConferenceRecords(ctx, spaceName)
	if err != nil {
		if errors.Is(err, capability.ErrNotAuthenticated) {
			return "", err
		}
		return "", ErrNotFound
	}
	if len(records) == 0 {
		return "", ErrNotFound
	}
	// The capability is expected to order by recency; take the first
	// record as-is rather than re-sorting.
	return records[0].Name, nil
}
