//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/disaster-event-graph/internal/adapter/badger"
	"github.com/couchcryptid/disaster-event-graph/internal/adapter/kafka"
	"github.com/couchcryptid/disaster-event-graph/internal/adapter/usgs"
	"github.com/couchcryptid/disaster-event-graph/internal/domain"
	"github.com/couchcryptid/disaster-event-graph/internal/observability"
	"github.com/couchcryptid/disaster-event-graph/internal/router"
)

const testTopic = "test-disaster-events"

const usgsFeed = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"mag": 5.1, "place": "Off the coast of Honshu, Japan", "time": 1714144200250, "title": "M 5.1 - Honshu"},
      "geometry": {"type": "Point", "coordinates": [142.1, 38.2, 10.0]}
    },
    {
      "type": "Feature",
      "properties": {"mag": 3.0, "place": "Central Alaska", "time": 1714140000000, "title": "M 3.0 - Central Alaska"},
      "geometry": {"type": "Point", "coordinates": [-149.9, 63.1, 8.0]}
    }
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("disaster-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedMessage struct {
	Event   domain.Event
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, r *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := r.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	return publishedMessage{Event: event, Key: string(msg.Key), Headers: headers}
}

// TestIngestPublishesStoredEvents drives one ingest cycle from a fake USGS
// feed through the badger store and out to a real broker.
func TestIngestPublishesStoredEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(usgsFeed))
	}))
	t.Cleanup(feed.Close)

	store, err := badger.Open(badger.Options{InMemory: true, Logger: discardLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	publisher := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	metrics := observability.NewMetricsForTesting()
	r := router.New(store,
		[]router.Source{usgs.NewClient(feed.URL, 5*time.Second, discardLogger())},
		router.Options{Publisher: publisher},
		discardLogger(), metrics)

	res, err := r.Invoke(ctx, router.ActionIngest)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)

	stored, err := store.Query(ctx, domain.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		Partition:   0,
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = reader.Close() })

	first := readPublished(ctx, t, reader)
	assert.Equal(t, "usgs|2024-04-26T15:10:00.250Z", first.Key)
	assert.Equal(t, "earthquake", first.Headers["event_type"])
	assert.Equal(t, "usgs", first.Headers["source"])
	_, err = time.Parse(time.RFC3339, first.Headers["published_at"])
	require.NoError(t, err)
	assert.Equal(t, "M 5.1 - Honshu", domain.Deref(first.Event.Title))
	require.NotNil(t, first.Event.Magnitude)
	assert.InDelta(t, 5.1, *first.Event.Magnitude, 1e-9)

	second := readPublished(ctx, t, reader)
	assert.Equal(t, "usgs|2024-04-26T14:00:00.000Z", second.Key)
	assert.Equal(t, "M 3.0 - Central Alaska", domain.Deref(second.Event.Title))
}

// TestPublisherRoundTrip checks the adapter alone against a real broker.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	publisher := kafka.NewPublisher([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	event := domain.Event{
		Source:    domain.SourceGDACS,
		EventType: "flood",
		Title:     domain.String("Flood in Kenya"),
		Country:   domain.String("Kenya"),
		StartTime: domain.String("2024-05-01T00:00:00Z"),
	}
	require.NoError(t, publisher.Publish(ctx, []domain.Event{event}))

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		Partition:   0,
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = reader.Close() })

	got := readPublished(ctx, t, reader)
	assert.Equal(t, kafka.MessageKey(event), got.Key)
	assert.Equal(t, "flood", got.Headers["event_type"])
	assert.Equal(t, "Kenya", domain.Deref(got.Event.Country))
}
