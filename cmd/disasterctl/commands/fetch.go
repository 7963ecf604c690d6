package commands

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/disaster-event-graph/internal/app"
	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

func newFetchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "fetch <source>",
		Short:     "Fetch one source and print its canonical records without storing them",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{domain.SourceUSGS, domain.SourceGDACS, domain.SourceReliefWeb},
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := app.SourceByName(e.cfg, e.logger, args[0])
			if err != nil {
				return err
			}
			events, err := src.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			if events == nil {
				events = []domain.Event{}
			}
			return writeJSON(cmd.OutOrStdout(), events)
		},
	}
}
