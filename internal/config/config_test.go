package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapboxToken = "pk.test-token"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "data/events", cfg.DataDir)
	assert.False(t, cfg.StoreInMemory)
	assert.Equal(t, 15*time.Minute, cfg.IngestInterval)
	assert.Equal(t, 40, cfg.AnswerWindow)

	assert.Equal(t, Source{Enabled: true, Timeout: 20 * time.Second}, cfg.USGS)
	assert.Equal(t, Source{Enabled: true, Timeout: 20 * time.Second}, cfg.GDACS)
	assert.Equal(t, Source{Enabled: true, Timeout: 20 * time.Second, Limit: 10}, cfg.ReliefWeb)

	assert.Empty(t, cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 30*time.Second, cfg.OpenAITimeout)

	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "disaster-events", cfg.KafkaTopic)

	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATA_DIR", "/var/lib/disaster")
	t.Setenv("INGEST_INTERVAL", "0")
	t.Setenv("ANSWER_WINDOW", "25")
	t.Setenv("USGS_URL", "http://usgs.test/feed")
	t.Setenv("RELIEFWEB_APPNAME", "disaster-graph")
	t.Setenv("RELIEFWEB_LIMIT", "50")
	t.Setenv("SOURCE_TIMEOUT", "3s")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-events")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/disaster", cfg.DataDir)
	assert.Zero(t, cfg.IngestInterval)
	assert.Equal(t, 25, cfg.AnswerWindow)
	assert.Equal(t, "http://usgs.test/feed", cfg.USGS.URL)
	assert.Equal(t, 3*time.Second, cfg.GDACS.Timeout)
	assert.Equal(t, "disaster-graph", cfg.ReliefWeb.AppName)
	assert.Equal(t, 50, cfg.ReliefWeb.Limit)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-events", cfg.KafkaTopic)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"INGEST_INTERVAL", "-1m"},
		{"SOURCE_TIMEOUT", "0s"},
		{"OPENAI_TIMEOUT", "soon"},
		{"MAPBOX_TIMEOUT", "bad"},
		{"ANSWER_WINDOW", "0"},
		{"RELIEFWEB_LIMIT", "ten"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_StoreInMemory(t *testing.T) {
	t.Setenv("STORE_IN_MEMORY", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.StoreInMemory)
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func writeSourcesFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_SourcesFileOverrides(t *testing.T) {
	t.Setenv("SOURCE_TIMEOUT", "7s")
	t.Setenv("SOURCES_FILE", writeSourcesFile(t, `
sources:
  gdacs:
    enabled: false
  reliefweb:
    url: http://reliefweb.test/v1/disasters
    timeout: 45s
    limit: 25
    appname: graph-test
`))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Source{Enabled: true, Timeout: 7 * time.Second}, cfg.USGS)
	assert.False(t, cfg.GDACS.Enabled)
	assert.Equal(t, Source{
		Enabled: true,
		URL:     "http://reliefweb.test/v1/disasters",
		Timeout: 45 * time.Second,
		Limit:   25,
		AppName: "graph-test",
	}, cfg.ReliefWeb)
}

func TestLoad_SourcesFileErrors(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{name: "unknown source", body: "sources:\n  noaa:\n    enabled: true\n", want: "noaa"},
		{name: "bad limit", body: "sources:\n  reliefweb:\n    limit: 0\n", want: "limit"},
		{name: "malformed", body: "sources: [", want: "parse sources file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SOURCES_FILE", writeSourcesFile(t, tt.body))
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_SourcesFileMissing(t *testing.T) {
	t.Setenv("SOURCES_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read sources file")
}
