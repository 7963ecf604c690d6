package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables
// and an optional sources file.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Event store.
	DataDir       string
	StoreInMemory bool

	// IngestInterval is the scheduler period; zero disables scheduled ingests.
	IngestInterval time.Duration
	// AnswerWindow is how many recent events the answer path reads.
	AnswerWindow int

	USGS      Source
	GDACS     Source
	ReliefWeb Source

	// OpenAI summarization; disabled when OpenAIAPIKey is empty.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAITimeout time.Duration

	// Kafka event publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Source configures one upstream adapter.
type Source struct {
	Enabled bool
	URL     string
	Timeout time.Duration
	// Limit caps the result count where the upstream supports it.
	Limit int
	// AppName identifies the caller to upstreams that ask for it (ReliefWeb).
	AppName string
}

// sourcesFile is the YAML layout of SOURCES_FILE. Absent keys keep the
// environment value.
type sourcesFile struct {
	Sources map[string]sourceOverride `yaml:"sources"`
}

type sourceOverride struct {
	Enabled *bool          `yaml:"enabled"`
	URL     string         `yaml:"url"`
	Timeout *time.Duration `yaml:"timeout"`
	Limit   *int           `yaml:"limit"`
	AppName string         `yaml:"appname"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	ingestInterval, err := parseDuration("INGEST_INTERVAL", "15m", true)
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parseDuration("SOURCE_TIMEOUT", "20s", false)
	if err != nil {
		return nil, err
	}
	openAITimeout, err := parseDuration("OPENAI_TIMEOUT", "30s", false)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}
	answerWindow, err := parsePositiveInt("ANSWER_WINDOW", 40)
	if err != nil {
		return nil, err
	}
	reliefWebLimit, err := parsePositiveInt("RELIEFWEB_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:       sharedcfg.EnvOrDefault("DATA_DIR", "data/events"),
		StoreInMemory: os.Getenv("STORE_IN_MEMORY") == "true",

		IngestInterval: ingestInterval,
		AnswerWindow:   answerWindow,

		USGS: Source{
			Enabled: true,
			URL:     os.Getenv("USGS_URL"),
			Timeout: sourceTimeout,
		},
		GDACS: Source{
			Enabled: true,
			URL:     os.Getenv("GDACS_URL"),
			Timeout: sourceTimeout,
		},
		ReliefWeb: Source{
			Enabled: true,
			URL:     os.Getenv("RELIEFWEB_URL"),
			Timeout: sourceTimeout,
			Limit:   reliefWebLimit,
			AppName: os.Getenv("RELIEFWEB_APPNAME"),
		},

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   sharedcfg.EnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: openAITimeout,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "disaster-events"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if path := os.Getenv("SOURCES_FILE"); path != "" {
		if err := cfg.applySourcesFile(path); err != nil {
			return nil, err
		}
	}

	if !cfg.StoreInMemory && cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required unless STORE_IN_MEMORY is true")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func (c *Config) applySourcesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse sources file: %w", err)
	}
	for name, o := range f.Sources {
		var dst *Source
		switch name {
		case "usgs":
			dst = &c.USGS
		case "gdacs":
			dst = &c.GDACS
		case "reliefweb":
			dst = &c.ReliefWeb
		default:
			return fmt.Errorf("sources file: unknown source %q", name)
		}
		if o.Enabled != nil {
			dst.Enabled = *o.Enabled
		}
		if o.URL != "" {
			dst.URL = o.URL
		}
		if o.Timeout != nil {
			if *o.Timeout <= 0 {
				return fmt.Errorf("sources file: invalid timeout for %s", name)
			}
			dst.Timeout = *o.Timeout
		}
		if o.Limit != nil {
			if *o.Limit <= 0 {
				return fmt.Errorf("sources file: invalid limit for %s", name)
			}
			dst.Limit = *o.Limit
		}
		if o.AppName != "" {
			dst.AppName = o.AppName
		}
	}
	return nil
}

// parseDuration reads key as a duration. Zero is accepted only when allowZero.
func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
