package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/disaster-event-graph/internal/app"
	"github.com/couchcryptid/disaster-event-graph/internal/domain"
	"github.com/couchcryptid/disaster-event-graph/internal/graph"
)

type graphFlags struct {
	sequenceBy  string
	noSequence  bool
	noTypes     bool
	noCountries bool
	nodeLimit   int
	fromSources bool
	out         string
}

func (g graphFlags) options() graph.Options {
	opts := graph.DefaultOptions()
	if g.sequenceBy != "" {
		opts.SequenceBy = g.sequenceBy
	}
	opts.ConnectSequence = !g.noSequence
	opts.IncludeTypes = !g.noTypes
	opts.IncludeCountries = !g.noCountries
	return opts
}

func newGraphCmd(e *env) *cobra.Command {
	var (
		flags filterFlags
		gf    graphFlags
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the knowledge graph projection as JSON",
		Long: `Build the event/country/type graph from stored events (or a live fetch
with --from-sources) and print the {"nodes": [...], "edges": [...]} projection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if gf.nodeLimit < 1 {
				return fmt.Errorf("--node-limit must be positive")
			}
			events, err := e.loadEvents(cmd, flags, gf.fromSources)
			if err != nil {
				return err
			}

			payload := graph.ToVis(graph.Build(events, gf.options()), gf.nodeLimit)

			w, closeOut, err := openOutput(cmd, gf.out)
			if err != nil {
				return err
			}
			if err := writeJSON(w, payload); err != nil {
				closeOut() //nolint:errcheck // already failing
				return err
			}
			e.logger.Debug("graph exported", "nodes", len(payload.Nodes), "edges", len(payload.Edges))
			return closeOut()
		},
	}
	flags.register(cmd, 200)
	cmd.Flags().StringVar(&gf.sequenceBy, "sequence-by", graph.DefaultSequenceBy, "field whose values bucket the next_in_ chains")
	cmd.Flags().BoolVar(&gf.noSequence, "no-sequence", false, "omit next_in_ edges")
	cmd.Flags().BoolVar(&gf.noTypes, "no-types", false, "omit type nodes and is_a edges")
	cmd.Flags().BoolVar(&gf.noCountries, "no-countries", false, "omit country nodes and occurred_in edges")
	cmd.Flags().IntVar(&gf.nodeLimit, "node-limit", graph.DefaultVisLimit, "maximum nodes in the projection")
	cmd.Flags().BoolVar(&gf.fromSources, "from-sources", false, "fetch live instead of reading the store")
	cmd.Flags().StringVarP(&gf.out, "out", "o", "", "write to a file instead of stdout")
	return cmd
}

// loadEvents reads matching events from the store or a live fetch.
func (e *env) loadEvents(cmd *cobra.Command, flags filterFlags, fromSources bool) ([]domain.StoredEvent, error) {
	if flags.limit < 1 {
		return nil, fmt.Errorf("--limit must be positive")
	}
	if fromSources {
		events, err := e.fetchLive(cmd.Context(), flags.filter())
		if err != nil {
			return nil, err
		}
		if len(events) > flags.limit {
			events = events[:flags.limit]
		}
		return events, nil
	}

	var events []domain.StoredEvent
	err := e.withApp(cmd.Context(), func(a *app.App) error {
		var err error
		events, err = a.Store.Query(cmd.Context(), flags.filter(), flags.limit)
		return err
	})
	return events, err
}
