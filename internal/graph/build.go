package graph

import (
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

// DefaultSequenceBy is the bucket field used when Options.SequenceBy is empty.
const DefaultSequenceBy = "country"

// Options controls which nodes and edges Build derives.
type Options struct {
	// ConnectSequence adds next_in_<SequenceBy> edges between consecutive
	// events of each bucket.
	ConnectSequence bool
	// SequenceBy names the record field used as bucket key: country,
	// event_type, source, title, description, url or start_time. Unknown
	// names put every event in a single bucket.
	SequenceBy       string
	IncludeTypes     bool
	IncludeCountries bool
}

// DefaultOptions enables every node and edge kind, chaining by country.
func DefaultOptions() Options {
	return Options{
		ConnectSequence:  true,
		SequenceBy:       DefaultSequenceBy,
		IncludeTypes:     true,
		IncludeCountries: true,
	}
}

// EventNodeID derives the node id for a record: its store ID when set,
// otherwise a "source|start_time" fingerprint so the same feed item at the
// same timestamp maps to the same node.
func EventNodeID(e domain.StoredEvent) string {
	if e.ID != "" {
		return "event:" + e.ID
	}
	source := e.Source
	if source == "" {
		source = "src"
	}
	return "event:" + source + "|" + domain.Deref(e.StartTime)
}

// CountryNodeID returns the node id for a country name.
func CountryNodeID(country string) string {
	return "country:" + normalizeKey(country)
}

// TypeNodeID returns the node id for an event type.
func TypeNodeID(eventType string) string {
	return "type:" + normalizeKey(eventType)
}

// Build derives the knowledge graph for events. Records missing optional
// fields simply produce fewer nodes and edges.
func Build(events []domain.StoredEvent, opts Options) *Graph {
	g := New()

	for _, e := range events {
		eid := EventNodeID(e)
		g.AddNode(eid, KindEvent, eventAttrs(e))

		if country := strings.TrimSpace(domain.Deref(e.Country)); opts.IncludeCountries && country != "" {
			cid := CountryNodeID(country)
			if !g.HasNode(cid) {
				g.AddNode(cid, KindCountry, map[string]any{"name": country})
			}
			g.AddEdge(eid, cid, RelOccurredIn)
		}

		if eventType := strings.TrimSpace(e.EventType); opts.IncludeTypes && eventType != "" {
			tid := TypeNodeID(eventType)
			if !g.HasNode(tid) {
				g.AddNode(tid, KindType, map[string]any{"name": eventType})
			}
			g.AddEdge(eid, tid, RelIsA)
		}
	}

	if opts.ConnectSequence {
		connectSequences(g, events, opts.SequenceBy)
	}
	return g
}

// connectSequences links time-adjacent events within each bucket. Buckets are
// visited in order of first appearance; ties in start time keep input order.
func connectSequences(g *Graph, events []domain.StoredEvent, field string) {
	if field == "" {
		field = DefaultSequenceBy
	}
	relation := SequencePrefix + field

	type member struct {
		id string
		ts time.Time
	}

	var order []string
	buckets := make(map[string][]member)
	for _, e := range events {
		key := normalizeKey(fieldValue(e, field))
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		// Unparsable timestamps sort first as the zero time.
		ts, _ := domain.ParseStartTime(domain.Deref(e.StartTime))
		buckets[key] = append(buckets[key], member{id: EventNodeID(e), ts: ts})
	}

	for _, key := range order {
		rows := buckets[key]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].ts.Before(rows[j].ts)
		})
		for i := 0; i+1 < len(rows); i++ {
			a, b := rows[i].id, rows[i+1].id
			if a == b {
				continue
			}
			g.AddEdge(a, b, relation)
		}
	}
}

func eventAttrs(e domain.StoredEvent) map[string]any {
	title := domain.Deref(e.Title)
	if title == "" {
		title = domain.Deref(e.Description)
	}
	if title == "" {
		title = "event"
	}
	attrs := map[string]any{
		"title":      title,
		"event_type": e.EventType,
		"source":     e.Source,
	}
	setOptional(attrs, "start_time", e.StartTime)
	setOptional(attrs, "url", e.URL)
	setOptional(attrs, "country", domain.String(domain.Deref(e.Country)))
	if e.Latitude != nil && e.Longitude != nil {
		attrs["latitude"] = *e.Latitude
		attrs["longitude"] = *e.Longitude
	}
	if e.Magnitude != nil {
		attrs["magnitude"] = *e.Magnitude
	}
	return attrs
}

func setOptional(attrs map[string]any, key string, v *string) {
	if v != nil {
		attrs[key] = *v
	}
}

func fieldValue(e domain.StoredEvent, field string) string {
	switch field {
	case "country":
		return domain.Deref(e.Country)
	case "event_type":
		return e.EventType
	case "source":
		return e.Source
	case "title":
		return domain.Deref(e.Title)
	case "description":
		return domain.Deref(e.Description)
	case "url":
		return domain.Deref(e.URL)
	case "start_time":
		return domain.Deref(e.StartTime)
	default:
		return ""
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
