package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Known source identifiers.
const (
	SourceUSGS      = "usgs"
	SourceGDACS     = "gdacs"
	SourceReliefWeb = "reliefweb"
)

// Known reports whether name is one of the adapter identifiers.
func Known(name string) bool {
	switch name {
	case SourceUSGS, SourceGDACS, SourceReliefWeb:
		return true
	default:
		return false
	}
}

// Event is the canonical disaster record every source adapter emits.
type Event struct {
	Source      string          `json:"source"`
	EventType   string          `json:"event_type"`
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Latitude    *float64        `json:"latitude"`
	Longitude   *float64        `json:"longitude"`
	Country     *string         `json:"country"`
	Magnitude   *float64        `json:"magnitude"`
	StartTime   *string         `json:"start_time"`
	URL         *string         `json:"url"`
	RawJSON     json.RawMessage `json:"raw_json,omitempty"`
}

// StoredEvent is an Event plus the identity assigned by the event store.
type StoredEvent struct {
	ID string `json:"id"`
	Event
	CreatedAt time.Time `json:"created_at"`
}

// Filter is an optional conjunction of constraints on stored events.
// Empty fields do not constrain.
type Filter struct {
	EventType string
	Country   string
	Source    string
	// Since is an inclusive lower bound on StartTime, compared as strings.
	Since string
}

// Matches reports whether e satisfies every set field of f. String fields
// are compared case-insensitively.
func (f Filter) Matches(e Event) bool {
	if f.EventType != "" && !strings.EqualFold(f.EventType, e.EventType) {
		return false
	}
	if f.Country != "" && (e.Country == nil || !strings.EqualFold(f.Country, *e.Country)) {
		return false
	}
	if f.Source != "" && !strings.EqualFold(f.Source, e.Source) {
		return false
	}
	if f.Since != "" && (e.StartTime == nil || *e.StartTime < f.Since) {
		return false
	}
	return true
}

// String returns a pointer to the trimmed s, or nil when s is blank.
func String(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Deref returns the pointed-to string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
