package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	event := domain.Event{
		Source:    domain.SourceUSGS,
		EventType: "earthquake",
		Title:     domain.String("M 4.4 - 20 km SE of Ofunato, Japan"),
		Latitude:  domain.Float(38.9),
		Longitude: domain.Float(141.8),
		Magnitude: domain.Float(4.4),
		StartTime: domain.String("2024-04-26T15:10:00.250Z"),
		RawJSON:   json.RawMessage(`{"id":"us7000m1ab"}`),
	}

	msg, err := serializeToMessage(event, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("usgs|2024-04-26T15:10:00.250Z"), msg.Key)
	assert.Contains(t, string(msg.Value), `"event_type":"earthquake"`)
	assert.Contains(t, string(msg.Value), `"raw_json":{"id":"us7000m1ab"}`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("earthquake"), msg.Headers[0].Value)
	assert.Equal(t, "source", msg.Headers[1].Key)
	assert.Equal(t, []byte("usgs"), msg.Headers[1].Value)
	assert.Equal(t, "published_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.Title, decoded.Title)
	assert.Nil(t, decoded.Country)
}

func TestMessageKey_MissingStartTime(t *testing.T) {
	assert.Equal(t, "gdacs|", MessageKey(domain.Event{Source: domain.SourceGDACS}))
}

func TestPublish_EmptyIsNoop(t *testing.T) {
	p := NewPublisher([]string{"127.0.0.1:1"}, "unused", slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer p.Close()

	require.NoError(t, p.Publish(context.Background(), nil))
}
