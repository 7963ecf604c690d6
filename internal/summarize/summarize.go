// Package summarize turns recent stored events into a short free-text answer.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

const (
	// FallbackLimit caps the deterministic listing.
	FallbackLimit = 10
	// DefaultMaxEvents is how many events a summarizer prompt includes by default.
	DefaultMaxEvents = 12

	// NoEvents is the answer for an empty store.
	NoEvents = "No events available."

	absent = "None"
)

// Summarizer produces a free-text summary of events, most recent first.
type Summarizer interface {
	Summarize(ctx context.Context, events []domain.StoredEvent, maxEvents int) (string, error)
}

// Fallback lists up to FallbackLimit events, one per line, as
// "- <event_type>: <title> (<start_time>)". Absent values render as None.
func Fallback(events []domain.StoredEvent) string {
	if len(events) == 0 {
		return NoEvents
	}
	if len(events) > FallbackLimit {
		events = events[:FallbackLimit]
	}
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = fmt.Sprintf("- %s: %s (%s)", orAbsent(e.EventType), orAbsentPtr(e.Title), orAbsentPtr(e.StartTime))
	}
	return strings.Join(lines, "\n")
}

// Lines renders the first maxEvents events as prompt lines of the form
// "<event_type>: <title> in <country> at <start_time>." Absent values are
// left blank, except event_type which defaults to "disaster". A non-positive
// maxEvents means DefaultMaxEvents.
func Lines(events []domain.StoredEvent, maxEvents int) []string {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	if len(events) > maxEvents {
		events = events[:maxEvents]
	}
	out := make([]string, len(events))
	for i, e := range events {
		eventType := e.EventType
		if eventType == "" {
			eventType = "disaster"
		}
		out[i] = fmt.Sprintf("%s: %s in %s at %s.",
			eventType, domain.Deref(e.Title), domain.Deref(e.Country), domain.Deref(e.StartTime))
	}
	return out
}

func orAbsent(s string) string {
	if s == "" {
		return absent
	}
	return s
}

func orAbsentPtr(s *string) string {
	if s == nil {
		return absent
	}
	return orAbsent(*s)
}
