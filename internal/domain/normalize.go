package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrUnknownSource is returned by Normalize for records whose Source is not
// a known adapter identifier.
var ErrUnknownSource = errors.New("unknown event source")

// startTimeLayouts are tried in order by ParseStartTime. Values without a
// zone are read as UTC.
var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Normalize enforces the canonical record invariants at the adapter boundary:
// strings are trimmed (blank becomes nil), a coordinate pair is kept only when
// both halves are present and in range, and NaN magnitudes are dropped.
func Normalize(e Event) (Event, error) {
	e.Source = strings.ToLower(strings.TrimSpace(e.Source))
	if !Known(e.Source) {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownSource, e.Source)
	}
	e.EventType = strings.TrimSpace(e.EventType)
	e.Title = trimPtr(e.Title)
	e.Description = trimPtr(e.Description)
	e.Country = trimPtr(e.Country)
	e.StartTime = trimPtr(e.StartTime)
	e.URL = trimPtr(e.URL)

	if !validCoordinates(e.Latitude, e.Longitude) {
		e.Latitude, e.Longitude = nil, nil
	}
	if e.Magnitude != nil && (math.IsNaN(*e.Magnitude) || math.IsInf(*e.Magnitude, 0)) {
		e.Magnitude = nil
	}
	return e, nil
}

// Check reports every canonical invariant e violates. An empty result means
// the record is well-formed.
func Check(e Event) []string {
	var problems []string
	if e.Source == "" {
		problems = append(problems, "source is empty")
	} else if !Known(e.Source) {
		problems = append(problems, fmt.Sprintf("source %q is not a known adapter", e.Source))
	}
	if (e.Latitude == nil) != (e.Longitude == nil) {
		problems = append(problems, "only one of latitude/longitude is set")
	} else if e.Latitude != nil && !validCoordinates(e.Latitude, e.Longitude) {
		problems = append(problems, fmt.Sprintf("coordinates (%g, %g) out of range", *e.Latitude, *e.Longitude))
	}
	if e.Country != nil && strings.TrimSpace(*e.Country) != *e.Country {
		problems = append(problems, fmt.Sprintf("country %q is not trimmed", *e.Country))
	}
	if e.StartTime != nil {
		if _, ok := ParseStartTime(*e.StartTime); !ok {
			problems = append(problems, fmt.Sprintf("start_time %q is not parseable", *e.StartTime))
		}
	}
	return problems
}

// ParseStartTime interprets a record start time. It accepts ISO-8601 with or
// without a zone (a trailing "Z" included), RFC 1123 feed dates, and bare
// dates. The boolean is false when s matches none of them.
func ParseStartTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatEpochMillis renders a Unix millisecond timestamp as a UTC ISO-8601
// string with a trailing "Z".
func FormatEpochMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return String(*s)
}

func validCoordinates(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lon >= -180 && *lon <= 180
}
