// Package usgs fetches the USGS "all earthquakes, past day" GeoJSON feed.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

// DefaultURL is the USGS summary feed for all earthquakes in the past day.
const DefaultURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"

const defaultTimeout = 20 * time.Second

// Client fetches and normalizes USGS earthquake features.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a USGS client. An empty url uses DefaultURL; a
// non-positive timeout uses 20s.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Name implements router.Source.
func (c *Client) Name() string { return domain.SourceUSGS }

// Fetch returns one canonical earthquake record per feed feature.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usgs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("usgs feed error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode usgs feed: %w", err)
	}

	events := make([]domain.Event, 0, len(fc.Features))
	for i, raw := range fc.Features {
		e, err := mapFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("usgs feature %d: %w", i, err)
		}
		events = append(events, e)
	}
	c.logger.Debug("usgs feed fetched", "count", len(events))
	return events, nil
}

// mapFeature maps one GeoJSON feature. The whole feature becomes RawJSON.
func mapFeature(raw json.RawMessage) (domain.Event, error) {
	var f feature
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.Event{}, fmt.Errorf("decode feature: %w", err)
	}

	e := domain.Event{
		Source:      domain.SourceUSGS,
		EventType:   "earthquake",
		Title:       f.Properties.Title,
		Description: f.Properties.Place,
		Magnitude:   f.Properties.Mag,
		URL:         f.Properties.URL,
		RawJSON:     raw,
	}
	if f.Properties.Time != nil {
		e.StartTime = domain.String(domain.FormatEpochMillis(*f.Properties.Time))
	}
	if f.Geometry != nil && len(f.Geometry.Coordinates) >= 2 {
		e.Longitude = domain.Float(f.Geometry.Coordinates[0])
		e.Latitude = domain.Float(f.Geometry.Coordinates[1])
	}
	return domain.Normalize(e)
}

// USGS GeoJSON types.

type featureCollection struct {
	Features []json.RawMessage `json:"features"`
}

type feature struct {
	Properties properties `json:"properties"`
	Geometry   *geometry  `json:"geometry"`
}

type properties struct {
	Title *string  `json:"title"`
	Place *string  `json:"place"`
	Mag   *float64 `json:"mag"`
	Time  *int64   `json:"time"` // epoch milliseconds
	URL   *string  `json:"url"`
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}
