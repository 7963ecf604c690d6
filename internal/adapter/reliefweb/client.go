// Package reliefweb queries the ReliefWeb disasters API.
package reliefweb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

// DefaultURL is the ReliefWeb disasters endpoint.
const DefaultURL = "https://api.reliefweb.int/v1/disasters"

const (
	defaultTimeout = 20 * time.Second
	// DefaultLimit is the number of disasters requested per fetch.
	DefaultLimit = 10
)

// Options configures the client. Zero values select defaults.
type Options struct {
	URL     string
	Timeout time.Duration
	Limit   int
	// AppName is sent as the appname query parameter when set.
	AppName string
}

// Client fetches and normalizes ReliefWeb disaster records.
type Client struct {
	url        string
	limit      int
	appName    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a ReliefWeb client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	return &Client{
		url:        opts.URL,
		limit:      opts.Limit,
		appName:    opts.AppName,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

// Name implements router.Source.
func (c *Client) Name() string { return domain.SourceReliefWeb }

// Fetch returns one canonical record per disaster in the first result page.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	body, err := json.Marshal(query{
		Limit:   c.limit,
		Profile: "list",
		Fields:  queryFields{Include: []string{"name", "date", "url", "type", "country"}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	endpoint := c.url
	if c.appName != "" {
		u, err := url.Parse(c.url)
		if err != nil {
			return nil, fmt.Errorf("parse reliefweb url: %w", err)
		}
		q := u.Query()
		q.Set("appname", c.appName)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reliefweb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reliefweb API error: status %d: %s", resp.StatusCode, msg)
	}

	var page response
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode reliefweb response: %w", err)
	}

	events := make([]domain.Event, 0, len(page.Data))
	for i, raw := range page.Data {
		e, err := mapItem(raw)
		if err != nil {
			return nil, fmt.Errorf("reliefweb item %d: %w", i, err)
		}
		events = append(events, e)
	}
	c.logger.Debug("reliefweb disasters fetched", "count", len(events), "total", page.TotalCount)
	return events, nil
}

// mapItem maps one result item. The whole item becomes RawJSON.
func mapItem(raw json.RawMessage) (domain.Event, error) {
	var it item
	if err := json.Unmarshal(raw, &it); err != nil {
		return domain.Event{}, fmt.Errorf("decode item: %w", err)
	}
	f := it.Fields

	eventType := "disaster"
	if len(f.Type) > 0 && f.Type[0].Name != "" {
		eventType = f.Type[0].Name
	}
	var country *string
	if len(f.Country) > 0 {
		country = domain.String(f.Country[0].Name)
	}
	var created *string
	if f.Date != nil {
		created = domain.String(f.Date.Created)
	}

	return domain.Normalize(domain.Event{
		Source:      domain.SourceReliefWeb,
		EventType:   eventType,
		Title:       domain.String(f.Name),
		Description: domain.String(f.Name),
		Country:     country,
		StartTime:   created,
		URL:         domain.String(f.URL),
		RawJSON:     raw,
	})
}

// ReliefWeb API types.

type query struct {
	Limit   int         `json:"limit"`
	Profile string      `json:"profile"`
	Fields  queryFields `json:"fields"`
}

type queryFields struct {
	Include []string `json:"include"`
}

type response struct {
	TotalCount int               `json:"totalCount"`
	Data       []json.RawMessage `json:"data"`
}

type item struct {
	ID     string `json:"id"`
	Fields fields `json:"fields"`
}

type fields struct {
	Name    string  `json:"name"`
	URL     string  `json:"url"`
	Date    *dates  `json:"date"`
	Type    []named `json:"type"`
	Country []named `json:"country"`
}

type dates struct {
	Created string `json:"created"`
}

type named struct {
	Name string `json:"name"`
}
