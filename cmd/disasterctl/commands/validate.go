package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
	"github.com/couchcryptid/disaster-event-graph/internal/graph"
)

// errValidationFailed is returned after the report when any phase failed.
var errValidationFailed = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd(e *env) *cobra.Command {
	var (
		flags       filterFlags
		fromSources bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check canonical record invariants and graph projection integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			events, err := e.loadEvents(cmd, flags, fromSources)
			if err != nil {
				return err
			}

			phases := []*phase{validateRecords(events)}
			if !fromSources {
				phases = append(phases, validateOrdering(events))
			}
			phases = append(phases, validateProjection(events))

			origin := "stored"
			if fromSources {
				origin = "fetched"
			}
			if !report(cmd.OutOrStdout(), phases, len(events), origin) {
				return errValidationFailed
			}
			return nil
		},
	}
	flags.register(cmd, 1000)
	cmd.Flags().BoolVar(&fromSources, "from-sources", false, "validate a live fetch instead of the store")
	return cmd
}

func validateRecords(events []domain.StoredEvent) *phase {
	p := &phase{name: "Canonical record invariants"}
	for i, ev := range events {
		for _, problem := range domain.Check(ev.Event) {
			p.errorf("record %d (%s): %s", i, recordRef(ev), problem)
		}
	}
	return p
}

// validateOrdering checks query order: start_time descending, absent last.
func validateOrdering(events []domain.StoredEvent) *phase {
	p := &phase{name: "Store ordering"}
	seenNil := false
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1].StartTime, events[i].StartTime
		if prev == nil {
			seenNil = true
		}
		switch {
		case seenNil && cur != nil:
			p.errorf("record %d (%s) has start_time after a record without one", i, recordRef(events[i]))
		case prev != nil && cur != nil && *cur > *prev:
			p.errorf("record %d (%s) start_time %q is newer than %q", i, recordRef(events[i]), *cur, *prev)
		}
	}
	return p
}

func validateProjection(events []domain.StoredEvent) *phase {
	p := &phase{name: "Graph projection integrity"}
	g := graph.Build(events, graph.DefaultOptions())
	payload := graph.ToVis(g, graph.DefaultVisLimit)

	ids := make(map[string]struct{}, len(payload.Nodes))
	for _, n := range payload.Nodes {
		if _, dup := ids[n.ID]; dup {
			p.errorf("duplicate node id %q", n.ID)
		}
		ids[n.ID] = struct{}{}
		if n.Label == "" {
			p.errorf("node %q has empty label", n.ID)
		}
	}
	for _, edge := range payload.Edges {
		if _, ok := ids[edge.Source]; !ok {
			p.errorf("edge %s -> %s: source node missing", edge.Source, edge.Target)
		}
		if _, ok := ids[edge.Target]; !ok {
			p.errorf("edge %s -> %s: target node missing", edge.Source, edge.Target)
		}
		if edge.Source == edge.Target {
			p.errorf("edge %s: self-loop (%s)", edge.Source, edge.Relation)
		}
		if edge.Relation == "" {
			p.errorf("edge %s -> %s: empty relation", edge.Source, edge.Target)
		}
	}
	if len(payload.Nodes) > graph.DefaultVisLimit {
		p.errorf("projection has %d nodes, limit is %d", len(payload.Nodes), graph.DefaultVisLimit)
	}
	return p
}

func recordRef(ev domain.StoredEvent) string {
	if ev.ID != "" {
		return ev.ID
	}
	return ev.Source + "|" + domain.Deref(ev.StartTime)
}

// report prints the phase summary and details. It returns true when every
// phase passed.
func report(w io.Writer, phases []*phase, records int, origin string) bool {
	fmt.Fprintln(w, "=== Disaster Event Validation ===")
	fmt.Fprintln(w)

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d %s\n", records, origin)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, msg := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, msg)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}
