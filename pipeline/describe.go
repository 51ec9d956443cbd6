package pipeline

import (
	"github.com/sluicedata/sluice/graph"
)

// Describe renders a composition report for any visualizable piece of the
// pipeline: one line per stage with its parameters, resolved output schema
// and grouping keys, indented by nesting. Deterministic, diffable in tests,
// not a machine-readable format.
func Describe(v graph.Visualizer) string {
	return graph.Text(v.Visualize())
}
