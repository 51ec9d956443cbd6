package pipeline

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/sluicedata/sluice/plan"
)

// Graph is the finished, validated composition handed to the external
// engine: every stage resolved, every sink bound, stamped with a build id.
type Graph struct {
	BuildID string
	Flow    string
	Sources []SourceBinding
	Sinks   []SinkBinding
}

// Tails returns the sink stages, the roots the engine walks the plan from.
func (g *Graph) Tails() []*plan.Stage {
	out := make([]*plan.Stage, len(g.Sinks))
	for i, sink := range g.Sinks {
		out[i] = sink.Stage
	}
	return out
}

// Finish validates the composition and freezes the flow. Every assembly must
// feed a sink, directly or through the branches forked off it.
func (f *Flow) Finish() (*Graph, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	if f.sinks.Len() == 0 {
		return nil, errors.Errorf("flow %q has no sinks", f.node.QualifiedName())
	}

	tails := make([]*plan.Stage, 0, f.sinks.Len())
	f.sinks.Scan(func(_ string, binding SinkBinding) bool {
		tails = append(tails, binding.Stage)
		return true
	})
	reachable := make(map[*plan.Stage]bool)
	_ = plan.Walk(tails, func(stage *plan.Stage) error {
		reachable[stage] = true
		return nil
	})
	var dangling []string
	for _, assembly := range f.assemblies {
		if !reachable[assembly.tail] {
			dangling = append(dangling, assembly.node.QualifiedName())
		}
	}
	if len(dangling) > 0 {
		return nil, errors.Errorf("flow %q has dangling assemblies: %s", f.node.QualifiedName(), strings.Join(dangling, ", "))
	}

	f.finished = true
	return &Graph{
		BuildID: ulid.MustNew(ulid.Now(), rand.Reader).String(),
		Flow:    f.node.Name(),
		Sources: f.Sources(),
		Sinks:   f.SinkBindings(),
	}, nil
}
