// Package gdacs fetches the GDACS global alert RSS feed.
package gdacs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

// DefaultURL is the GDACS alert feed.
const DefaultURL = "https://www.gdacs.org/xml/rss.xml"

const defaultTimeout = 20 * time.Second

// Client fetches and normalizes GDACS RSS items.
type Client struct {
	url        string
	httpClient *http.Client
	parser     *gofeed.Parser
	logger     *slog.Logger
}

// NewClient creates a GDACS client. An empty url uses DefaultURL; a
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
		parser:     gofeed.NewParser(),
		logger:     logger,
	}
}

// Name implements router.Source.
func (c *Client) Name() string { return domain.SourceGDACS }

// Fetch returns one canonical record per feed item.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gdacs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gdacs feed error: status %d: %s", resp.StatusCode, body)
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse gdacs feed: %w", err)
	}

	events := make([]domain.Event, 0, len(feed.Items))
	for i, item := range feed.Items {
		e, err := mapItem(item)
		if err != nil {
			return nil, fmt.Errorf("gdacs item %d: %w", i, err)
		}
		events = append(events, e)
	}
	c.logger.Debug("gdacs feed fetched", "count", len(events))
	return events, nil
}

// mapItem maps one RSS item. The whole parsed item becomes RawJSON.
func mapItem(item *gofeed.Item) (domain.Event, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return domain.Event{}, fmt.Errorf("encode item: %w", err)
	}

	e := domain.Event{
		Source:      domain.SourceGDACS,
		EventType:   "disaster",
		Title:       domain.String(item.Title),
		Description: domain.String(item.Description),
		StartTime:   publishedTime(item),
		URL:         domain.String(item.Link),
		Country:     domain.String(extValue(item.Extensions, "gdacs", "country")),
		RawJSON:     raw,
	}
	if lat, lon, ok := itemPoint(item.Extensions); ok {
		e.Latitude, e.Longitude = domain.Float(lat), domain.Float(lon)
	}
	return domain.Normalize(e)
}

// publishedTime renders a parsed pubDate as RFC 3339 UTC so stored start
// times sort and compare like the other feeds. Unparsed dates pass through.
func publishedTime(item *gofeed.Item) *string {
	if item.PublishedParsed != nil {
		return domain.String(item.PublishedParsed.UTC().Format(time.RFC3339))
	}
	return domain.String(item.Published)
}

// itemPoint reads geo:lat/geo:long, either directly on the item or nested in
// a geo:Point element.
func itemPoint(exts ext.Extensions) (lat, lon float64, ok bool) {
	latStr := extValue(exts, "geo", "lat")
	lonStr := extValue(exts, "geo", "long")
	if latStr == "" || lonStr == "" {
		if points := exts["geo"]["Point"]; len(points) > 0 {
			latStr = firstValue(points[0].Children["lat"])
			lonStr = firstValue(points[0].Children["long"])
		}
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func extValue(exts ext.Extensions, prefix, name string) string {
	if exts == nil {
		return ""
	}
	return firstValue(exts[prefix][name])
}

func firstValue(vals []ext.Extension) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0].Value
}
