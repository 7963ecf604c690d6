// Package app wires configuration into the store, sources, and router shared
// by the service and the CLI.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/disaster-event-graph/internal/adapter/badger"
	"github.com/couchcryptid/disaster-event-graph/internal/adapter/gdacs"
	kafkaadapter "github.com/couchcryptid/disaster-event-graph/internal/adapter/kafka"
	"github.com/couchcryptid/disaster-event-graph/internal/adapter/mapbox"
	"github.com/couchcryptid/disaster-event-graph/internal/adapter/openai"
	"github.com/couchcryptid/disaster-event-graph/internal/adapter/reliefweb"
	"github.com/couchcryptid/disaster-event-graph/internal/adapter/usgs"
	"github.com/couchcryptid/disaster-event-graph/internal/config"
	"github.com/couchcryptid/disaster-event-graph/internal/domain"
	"github.com/couchcryptid/disaster-event-graph/internal/observability"
	"github.com/couchcryptid/disaster-event-graph/internal/router"
)

const openAIMaxRetries = 2

// App holds the long-lived components built from a Config.
type App struct {
	Store     *badger.Store
	Router    *router.Router
	publisher *kafkaadapter.Publisher
	logger    *slog.Logger
}

// New opens the event store and builds the router with every enabled source
// and optional collaborator.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	store, err := badger.Open(badger.Options{
		Dir:      cfg.DataDir,
		InMemory: cfg.StoreInMemory,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}

	a := &App{Store: store, logger: logger}
	opts := router.Options{AnswerWindow: cfg.AnswerWindow}

	if cfg.OpenAIAPIKey != "" {
		s, err := openai.New(openai.Options{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			Timeout:    cfg.OpenAITimeout,
			MaxRetries: openAIMaxRetries,
		}, logger)
		if err != nil {
			store.Close() //nolint:errcheck // already failing
			return nil, err
		}
		opts.Summarizer = s
		logger.Info("openai summarizer enabled", "model", cfg.OpenAIModel)
	} else {
		logger.Info("openai summarizer disabled, answers use the recent-events listing")
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		opts.Geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	if cfg.KafkaEnabled {
		a.publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		opts.Publisher = a.publisher
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	a.Router = router.New(store, Sources(cfg, logger), opts, logger, metrics)
	return a, nil
}

// Sources builds the enabled adapters in fetch order: USGS, GDACS, ReliefWeb.
func Sources(cfg *config.Config, logger *slog.Logger) []router.Source {
	var sources []router.Source
	if cfg.USGS.Enabled {
		sources = append(sources, usgs.NewClient(cfg.USGS.URL, cfg.USGS.Timeout, logger))
	}
	if cfg.GDACS.Enabled {
		sources = append(sources, gdacs.NewClient(cfg.GDACS.URL, cfg.GDACS.Timeout, logger))
	}
	if cfg.ReliefWeb.Enabled {
		sources = append(sources, reliefweb.NewClient(reliefweb.Options{
			URL:     cfg.ReliefWeb.URL,
			Timeout: cfg.ReliefWeb.Timeout,
			Limit:   cfg.ReliefWeb.Limit,
			AppName: cfg.ReliefWeb.AppName,
		}, logger))
	}
	return sources
}

// SourceByName returns the enabled adapter with the given name.
func SourceByName(cfg *config.Config, logger *slog.Logger, name string) (router.Source, error) {
	if !domain.Known(name) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSource, name)
	}
	for _, s := range Sources(cfg, logger) {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("source %q is disabled", name)
}

// Close flushes the publisher and closes the store.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka publisher: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event store: %w", err))
	}
	return errors.Join(errs...)
}
