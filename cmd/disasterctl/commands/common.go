package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/disaster-event-graph/internal/app"
	"github.com/couchcryptid/disaster-event-graph/internal/domain"
	"github.com/couchcryptid/disaster-event-graph/internal/router"
)

// filterFlags are the event query flags shared by events, graph, and validate.
type filterFlags struct {
	eventType string
	country   string
	source    string
	since     string
	limit     int
}

func (f *filterFlags) register(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().StringVar(&f.eventType, "type", "", "event type (case-insensitive)")
	cmd.Flags().StringVar(&f.country, "country", "", "country (case-insensitive)")
	cmd.Flags().StringVar(&f.source, "source", "", "source adapter: usgs, gdacs, reliefweb")
	cmd.Flags().StringVar(&f.since, "since", "", "inclusive lower bound on start_time, e.g. 2024-04-01")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", defaultLimit, "maximum number of events")
}

func (f *filterFlags) filter() domain.Filter {
	return domain.Filter{
		EventType: f.eventType,
		Country:   f.country,
		Source:    f.source,
		Since:     f.since,
	}
}

// withApp opens the store and router for the duration of fn.
func (e *env) withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := e.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			e.logger.Warn("close failed", "error", err)
		}
	}()
	return fn(a)
}

// fetchLive runs every enabled source without storing anything. Fetched
// records have no store identity, so they carry an empty ID.
func (e *env) fetchLive(ctx context.Context, flt domain.Filter) ([]domain.StoredEvent, error) {
	var out []domain.StoredEvent
	var failed int
	sources := app.Sources(e.cfg, e.logger)
	for _, src := range sources {
		events, err := src.Fetch(ctx)
		if err != nil {
			failed++
			e.logger.Warn("source fetch failed", "source", src.Name(), "error", err)
			continue
		}
		for _, ev := range events {
			if flt.Matches(ev) {
				out = append(out, domain.StoredEvent{Event: ev})
			}
		}
	}
	if len(sources) > 0 && failed == len(sources) {
		return nil, router.ErrAllSourcesFailed
	}
	return out, nil
}

// openOutput returns the writer for --out, or the command's stdout when empty.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
