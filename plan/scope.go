package plan

import (
	"github.com/sluicedata/sluice/sluice"
)

// StageKind is the coarse schema-evolution category a resolved stage falls
// into. Grouping stages carry keys, aggregation stages replace the value
// schema, everything else passes rows through.
type StageKind int

const (
	StageKindSource StageKind = iota
	StageKindTransform
	StageKindGroup
	StageKindAggregate
)

func (k StageKind) String() string {
	switch k {
	case StageKindSource:
		return "source"
	case StageKindTransform:
		return "transform"
	case StageKindGroup:
		return "group"
	case StageKindAggregate:
		return "aggregate"
	}
	return "unknown"
}

// Scope is the schema snapshot recorded for one stage: what it consumed,
// what it emits, and the grouping keys when the stage groups. Scopes are
// retained for the lifetime of the pipeline definition so that any ancestor
// schema stays inspectable.
type Scope struct {
	Kind   StageKind
	Inputs []sluice.Schema
	Output sluice.Schema
	Keys   *sluice.Schema
}

// Copy returns an independent scope. Branches take a copy so that later
// operations on the branch never touch the parent's recorded scope.
func (s Scope) Copy() Scope {
	out := Scope{
		Kind:   s.Kind,
		Output: s.Output,
	}
	if s.Inputs != nil {
		out.Inputs = make([]sluice.Schema, len(s.Inputs))
		copy(out.Inputs, s.Inputs)
	}
	if s.Keys != nil {
		keys := *s.Keys
		out.Keys = &keys
	}
	return out
}

// SourceScope wraps a schema obtained from an external source descriptor.
func SourceScope(schema sluice.Schema) Scope {
	return Scope{
		Kind:   StageKindSource,
		Output: schema,
	}
}
