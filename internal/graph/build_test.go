package graph

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

func stored(id, source, eventType, country, start string) domain.StoredEvent {
	return domain.StoredEvent{
		ID: id,
		Event: domain.Event{
			Source:    source,
			EventType: eventType,
			Title:     domain.String(eventType + " " + id),
			Country:   domain.String(country),
			StartTime: domain.String(start),
		},
	}
}

func relations(g *Graph, relation string) []Edge {
	var out []Edge
	for _, e := range g.Edges() {
		if e.Relation == relation {
			out = append(out, e)
		}
	}
	return out
}

func nodesOfKind(g *Graph, kind Kind) []Node {
	var out []Node
	for _, n := range g.Nodes() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestBuild_JapanChileScenario(t *testing.T) {
	events := []domain.StoredEvent{
		stored("2", domain.SourceUSGS, "earthquake", "Japan", "2024-04-26T12:00:00Z"),
		stored("1", domain.SourceUSGS, "earthquake", "Japan", "2024-04-26T08:00:00Z"),
		stored("3", domain.SourceReliefWeb, "disaster", "Chile", "2024-04-25T00:00:00Z"),
	}

	g := Build(events, DefaultOptions())

	assert.Len(t, nodesOfKind(g, KindEvent), 3)
	assert.Len(t, nodesOfKind(g, KindCountry), 2)
	assert.Len(t, nodesOfKind(g, KindType), 2)
	assert.Len(t, relations(g, RelOccurredIn), 3)
	assert.Len(t, relations(g, RelIsA), 3)

	seq := relations(g, "next_in_country")
	require.Len(t, seq, 1)
	assert.Equal(t, Edge{From: "event:1", To: "event:2", Relation: "next_in_country"}, seq[0])
}

func TestBuild_EmptyInput(t *testing.T) {
	g := Build(nil, DefaultOptions())

	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuild_MissingCountry(t *testing.T) {
	e := domain.StoredEvent{Event: domain.Event{Source: domain.SourceReliefWeb, EventType: "flood"}}

	g := Build([]domain.StoredEvent{e}, DefaultOptions())

	assert.Len(t, nodesOfKind(g, KindEvent), 1)
	assert.Empty(t, relations(g, RelOccurredIn))
	assert.Len(t, relations(g, RelIsA), 1)
	assert.True(t, g.HasNode("type:flood"))
}

func TestBuild_NormalizesCountryAndType(t *testing.T) {
	events := []domain.StoredEvent{
		stored("1", domain.SourceReliefWeb, "Flood", "Japan", ""),
		stored("2", domain.SourceReliefWeb, " flood ", "JAPAN", ""),
	}
	events[1].Country = ptr("  JAPAN ")

	g := Build(events, DefaultOptions())

	require.True(t, g.HasNode("country:japan"))
	require.True(t, g.HasNode("type:flood"))
	assert.Len(t, nodesOfKind(g, KindCountry), 1)
	assert.Len(t, nodesOfKind(g, KindType), 1)

	country, _ := g.Node("country:japan")
	assert.Equal(t, "Japan", country.Attrs["name"], "first spelling wins")
}

func TestBuild_FallbackNodeID(t *testing.T) {
	e := domain.StoredEvent{Event: domain.Event{
		Source:    domain.SourceGDACS,
		StartTime: domain.String("Fri, 26 Apr 2024 15:10:00 GMT"),
	}}
	assert.Equal(t, "event:gdacs|Fri, 26 Apr 2024 15:10:00 GMT", EventNodeID(e))
	assert.Equal(t, "event:src|", EventNodeID(domain.StoredEvent{}))
	assert.Equal(t, "event:42", EventNodeID(domain.StoredEvent{ID: "42", Event: e.Event}))
}

func TestBuild_SameFingerprintCollapses(t *testing.T) {
	a := domain.StoredEvent{Event: domain.Event{Source: domain.SourceGDACS, Title: domain.String("first"), StartTime: domain.String("2024-01-01T00:00:00Z")}}
	b := a
	b.Title = domain.String("second")

	g := Build([]domain.StoredEvent{a, b}, DefaultOptions())

	require.Equal(t, 1, g.NodeCount())
	n, _ := g.Node(EventNodeID(a))
	assert.Equal(t, "second", n.Attrs["title"], "last write wins")
	assert.Equal(t, 0, g.EdgeCount(), "no self-loop sequence edge")
}

func TestBuild_Deterministic(t *testing.T) {
	events := []domain.StoredEvent{
		stored("1", domain.SourceUSGS, "earthquake", "Japan", "2024-04-26T08:00:00Z"),
		stored("2", domain.SourceGDACS, "disaster", "", "garbage"),
		stored("3", domain.SourceReliefWeb, "Flood", "Chile", "2024-04-25T00:00:00Z"),
		stored("4", domain.SourceReliefWeb, "Flood", "Japan", ""),
	}

	first := Build(events, DefaultOptions())
	second := Build(events, DefaultOptions())

	if diff := cmp.Diff(first.Nodes(), second.Nodes()); diff != "" {
		t.Fatalf("nodes differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Edges(), second.Edges()); diff != "" {
		t.Fatalf("edges differ (-first +second):\n%s", diff)
	}
}

func TestBuild_SequenceChainIsLinear(t *testing.T) {
	// Out-of-order input, distinct timestamps, single bucket.
	var events []domain.StoredEvent
	for _, hour := range []int{5, 1, 4, 2, 3} {
		events = append(events, stored(fmt.Sprint(hour), domain.SourceUSGS, "earthquake", "Japan",
			fmt.Sprintf("2024-04-26T%02d:00:00Z", hour)))
	}

	g := Build(events, DefaultOptions())

	seq := relations(g, "next_in_country")
	require.Len(t, seq, len(events)-1)
	for i, e := range seq {
		assert.Equal(t, fmt.Sprintf("event:%d", i+1), e.From)
		assert.Equal(t, fmt.Sprintf("event:%d", i+2), e.To)
	}
}

func TestBuild_UnparsableTimestampsSortFirst(t *testing.T) {
	events := []domain.StoredEvent{
		stored("a", domain.SourceUSGS, "earthquake", "Japan", "2024-04-26T01:00:00Z"),
		stored("b", domain.SourceUSGS, "earthquake", "Japan", "not a time"),
		stored("c", domain.SourceUSGS, "earthquake", "Japan", ""),
	}

	g := Build(events, DefaultOptions())

	assert.Equal(t, []Edge{
		{From: "event:b", To: "event:c", Relation: "next_in_country"},
		{From: "event:c", To: "event:a", Relation: "next_in_country"},
	}, relations(g, "next_in_country"), "ties keep input order")
}

func TestBuild_MissingBucketFieldSharesEmptyBucket(t *testing.T) {
	events := []domain.StoredEvent{
		stored("1", domain.SourceGDACS, "disaster", "", "2024-04-26T01:00:00Z"),
		stored("2", domain.SourceGDACS, "disaster", "", "2024-04-26T02:00:00Z"),
	}

	g := Build(events, DefaultOptions())

	assert.True(t, g.HasEdge("event:1", "event:2"))
}

func TestBuild_SequenceByEventType(t *testing.T) {
	events := []domain.StoredEvent{
		stored("1", domain.SourceUSGS, "earthquake", "Japan", "2024-04-26T01:00:00Z"),
		stored("2", domain.SourceUSGS, "Earthquake", "Chile", "2024-04-26T02:00:00Z"),
		stored("3", domain.SourceGDACS, "disaster", "Japan", "2024-04-26T03:00:00Z"),
	}
	opts := DefaultOptions()
	opts.SequenceBy = "event_type"

	g := Build(events, opts)

	assert.Equal(t, []Edge{{From: "event:1", To: "event:2", Relation: "next_in_event_type"}},
		relations(g, "next_in_event_type"))
	assert.Empty(t, relations(g, "next_in_country"))
}

func TestBuild_OptionsDisableKinds(t *testing.T) {
	events := []domain.StoredEvent{
		stored("1", domain.SourceUSGS, "earthquake", "Japan", "2024-04-26T01:00:00Z"),
		stored("2", domain.SourceUSGS, "earthquake", "Japan", "2024-04-26T02:00:00Z"),
	}

	g := Build(events, Options{})

	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuild_EventAttributes(t *testing.T) {
	e := domain.StoredEvent{ID: "7", Event: domain.Event{
		Source:      domain.SourceUSGS,
		EventType:   "earthquake",
		Description: domain.String("20 km S of Town"),
		Latitude:    domain.Float(35.5),
		Longitude:   domain.Float(139.1),
		Magnitude:   domain.Float(5.1),
		Country:     ptr(" Japan "),
		StartTime:   domain.String("2024-04-26T01:00:00Z"),
		URL:         domain.String("https://example.test/7"),
	}}

	n, ok := Build([]domain.StoredEvent{e}, DefaultOptions()).Node("event:7")
	require.True(t, ok)

	want := map[string]any{
		"title":      "20 km S of Town",
		"event_type": "earthquake",
		"source":     "usgs",
		"start_time": "2024-04-26T01:00:00Z",
		"url":        "https://example.test/7",
		"country":    "Japan",
		"latitude":   35.5,
		"longitude":  139.1,
		"magnitude":  5.1,
	}
	if diff := cmp.Diff(want, n.Attrs); diff != "" {
		t.Fatalf("attrs mismatch (-want +got):\n%s", diff)
	}
}

func TestGraph_AddEdgeRequiresEndpoints(t *testing.T) {
	g := New()
	g.AddNode("a", KindEvent, nil)

	assert.False(t, g.AddEdge("a", "b", RelIsA))
	assert.Equal(t, 0, g.EdgeCount())

	g.AddNode("b", KindType, nil)
	assert.True(t, g.AddEdge("a", "b", RelIsA))
	assert.True(t, g.AddEdge("a", "b", RelOccurredIn))
	assert.Equal(t, []Edge{{From: "a", To: "b", Relation: RelOccurredIn}}, g.Edges())
	assert.False(t, g.HasEdge("b", "a"))
}

func ptr(s string) *string { return &s }
