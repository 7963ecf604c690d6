// Package main is the entry point for the disasterctl CLI.
//
// Usage:
//
//	disasterctl [flags] <command> [args]
//
// Commands:
//
//	ingest    - Fetch every enabled source once and store the results
//	answer    - Summarize the most recent stored events
//	events    - Query stored events
//	graph     - Export the knowledge graph projection as JSON
//	fetch     - Fetch one source and print its canonical records
//	validate  - Check stored records and the graph projection for invariant violations
package main

import (
	"fmt"
	"os"

	"github.com/couchcryptid/disaster-event-graph/cmd/disasterctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
