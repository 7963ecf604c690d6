// Package commands implements the disasterctl subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/disaster-event-graph/internal/app"
	"github.com/couchcryptid/disaster-event-graph/internal/config"
	"github.com/couchcryptid/disaster-event-graph/internal/observability"
)

// env carries the shared settings resolved before a subcommand runs.
type env struct {
	dataDir  string
	verbose  bool
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	out      io.Writer
	errOut   io.Writer
	openApp  func(context.Context) (*app.App, error)
	loadConf func() (*config.Config, error)
}

// Execute runs the root command against the process environment.
func Execute() error {
	return NewRootCmd(os.Stdout, os.Stderr).Execute()
}

// NewRootCmd builds the command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	return newRootCmd(&env{out: out, errOut: errOut, loadConf: config.Load})
}

func newRootCmd(e *env) *cobra.Command {
	if e.openApp == nil {
		e.openApp = func(context.Context) (*app.App, error) {
			return app.New(e.cfg, e.logger, e.metrics)
		}
	}

	root := &cobra.Command{
		Use:   "disasterctl",
		Short: "Ingest, query, and graph disaster events",
		Long: `disasterctl - one-shot operations against the disaster event store.

Configuration comes from the same environment variables as disasterd
(DATA_DIR, USGS_URL, OPENAI_API_KEY, SOURCES_FILE, ...). Flags override them.

Examples:
  # Pull every feed once
  disasterctl ingest

  # Recent earthquakes in Japan
  disasterctl events --type earthquake --country Japan --limit 20

  # Export the graph of the last 200 events
  disasterctl graph --out graph.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.loadConf()
			if err != nil {
				return err
			}
			if e.dataDir != "" {
				cfg.DataDir = e.dataDir
			}
			level := cfg.LogLevel
			if e.verbose {
				level = "debug"
			}
			e.cfg = cfg
			e.logger = slog.New(slog.NewTextHandler(e.errOut, &slog.HandlerOptions{Level: parseLevel(level)}))
			e.metrics = observability.NewMetricsWith(prometheus.NewRegistry())
			return nil
		},
	}
	root.SetOut(e.out)
	root.SetErr(e.errOut)

	root.PersistentFlags().StringVar(&e.dataDir, "data-dir", "", "event store directory (overrides DATA_DIR)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newIngestCmd(e),
		newAnswerCmd(e),
		newEventsCmd(e),
		newGraphCmd(e),
		newFetchCmd(e),
		newValidateCmd(e),
	)
	return root
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
