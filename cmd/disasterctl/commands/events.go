package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/disaster-event-graph/internal/app"
	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

func newEventsCmd(e *env) *cobra.Command {
	var (
		flags  filterFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query stored events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.limit < 1 {
				return fmt.Errorf("--limit must be positive")
			}
			return e.withApp(cmd.Context(), func(a *app.App) error {
				events, err := a.Store.Query(cmd.Context(), flags.filter(), flags.limit)
				if err != nil {
					return err
				}
				if asJSON {
					if events == nil {
						events = []domain.StoredEvent{}
					}
					return writeJSON(cmd.OutOrStdout(), events)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSOURCE\tTYPE\tSTART\tCOUNTRY\tTITLE")
				for _, ev := range events {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						ev.ID, ev.Source, ev.EventType,
						domain.Deref(ev.StartTime), domain.Deref(ev.Country), domain.Deref(ev.Title))
				}
				return tw.Flush()
			})
		},
	}
	flags.register(cmd, 200)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as a JSON array")
	return cmd
}
