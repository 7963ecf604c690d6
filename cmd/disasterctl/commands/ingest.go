package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/disaster-event-graph/internal/app"
	"github.com/couchcryptid/disaster-event-graph/internal/router"
)

func newIngestCmd(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch every enabled source once and store the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Router.Invoke(cmd.Context(), router.ActionIngest)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, map[string]any{
						"run_id":        res.RunID,
						"stored":        res.Stored,
						"source_errors": res.SourceErrors,
					})
				}
				fmt.Fprintf(out, "stored %d events (run %s)\n", res.Stored, res.RunID)
				for _, se := range res.SourceErrors {
					fmt.Fprintf(out, "  %s: %s\n", se.Source, se.Err)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newAnswerCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "answer",
		Short: "Summarize the most recent stored events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Router.Invoke(cmd.Context(), router.ActionAnswer)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
				return nil
			})
		},
	}
}
