package plan

import (
	"fmt"
	"strings"

	"github.com/sluicedata/sluice/sluice"
)

// Stage is one operation in the composed dataflow graph. Stages are built by
// the pipeline package and handed to the external planner through the
// Resolver seam; this package only describes them.
type Stage struct {
	Name string

	// Scope is the resolved schema snapshot for this stage. It is set once,
	// right after construction, and read by every downstream operation.
	Scope *Scope

	StageType StageType
	// Only one of the below may be non-null.
	Source    *Source
	Each      *Each
	Project   *Project
	Discard   *Discard
	Rename    *Rename
	Copy      *Copy
	GroupBy   *GroupBy
	Every     *Every
	Aggregate *Aggregate
	SchemaFix *SchemaFix
	Join      *Join
	HashJoin  *HashJoin
	Sink      *Sink
}

type StageType int

const (
	StageTypeSource StageType = iota
	StageTypeEach
	StageTypeProject
	StageTypeDiscard
	StageTypeRename
	StageTypeCopy
	StageTypeGroupBy
	StageTypeEvery
	StageTypeAggregate
	StageTypeSchemaFix
	StageTypeJoin
	StageTypeHashJoin
	StageTypeSink
)

func (t StageType) String() string {
	switch t {
	case StageTypeSource:
		return "source"
	case StageTypeEach:
		return "each"
	case StageTypeProject:
		return "project"
	case StageTypeDiscard:
		return "discard"
	case StageTypeRename:
		return "rename"
	case StageTypeCopy:
		return "copy"
	case StageTypeGroupBy:
		return "group_by"
	case StageTypeEvery:
		return "every"
	case StageTypeAggregate:
		return "aggregate"
	case StageTypeSchemaFix:
		return "schema_fix"
	case StageTypeJoin:
		return "join"
	case StageTypeHashJoin:
		return "hash_join"
	case StageTypeSink:
		return "sink"
	}
	return "unknown"
}

// Source reads records from an external source. Declared is the schema the
// source descriptor promises; no data flows at composition time.
type Source struct {
	SourceName string
	Declared   sluice.Schema
}

// Each applies a row-wise operation. Exactly one of Filter and Function is
// set.
type Each struct {
	Input     *Stage
	Arguments []string
	Filter    *FilterOperation
	Function  *FunctionOperation
}

// FilterOperation drops rows; the schema passes through unchanged.
type FilterOperation struct {
	Op string
}

// FunctionOperation computes new fields from the argument fields. With
// Replace set the declared fields stand alone as the stage output, otherwise
// they are appended to the input schema.
type FunctionOperation struct {
	Op       string
	Declared sluice.Schema
	Replace  bool
}

// Project restricts and reorders the schema to exactly the kept fields.
type Project struct {
	Input *Stage
	Kept  []string
}

// Discard removes the dropped fields, keeping the order of the rest.
type Discard struct {
	Input   *Stage
	Dropped []string
}

// Rename substitutes field names in place.
type Rename struct {
	Input *Stage
	// Pairs are sorted by From so that two stages renaming the same fields
	// describe and fingerprint identically.
	Pairs []RenamePair
}

type RenamePair struct {
	From, To string
}

// Copy appends duplicates of existing fields under new names. Pairs follow
// the same ordering rule as Rename.
type Copy struct {
	Input *Stage
	Pairs []RenamePair
}

// GroupBy groups one or more inputs by the key fields. More than one input
// makes this a merging union of the branches.
type GroupBy struct {
	Inputs  []*Stage
	Keys    []string
	SortBy  []string
	Reverse bool
}

// Every applies one aggregator or buffer to a grouping. It may only follow a
// GroupBy, Join or another Every stage.
type Every struct {
	Input     *Stage
	Op        string
	Arguments []string
	Declared  sluice.Schema
	IsBuffer  bool
}

// Aggregate is the composite form of a grouping followed by aggregators:
// grouping and partial aggregation fused into a single stage over the
// pre-grouping inputs.
type Aggregate struct {
	Inputs   []*Stage
	Keys     []string
	Partials []Partial
}

// Partial is one aggregator folded into a composite Aggregate stage.
type Partial struct {
	Op        string
	Arguments []string
	Declared  sluice.Schema
}

// SchemaFix pins the schema after a chain of aggregation stages, where
// downstream tracking would otherwise diverge from the planner.
type SchemaFix struct {
	Input    *Stage
	Declared sluice.Schema
}

// Join groups branches by their key fields and emits the deduplicated
// declared schema.
type Join struct {
	Inputs     []*Stage
	BranchKeys [][]string
	Joiner     Joiner
	Declared   sluice.Schema
	ResultKeys sluice.Schema
}

// HashJoin keeps every branch but the first fully materialized against the
// streamed first branch. Unlike Join it produces no grouping, so no
// aggregation block may follow it.
type HashJoin struct {
	Inputs     []*Stage
	BranchKeys [][]string
	Joiner     Joiner
	Declared   sluice.Schema
}

type JoinerKind int

const (
	JoinerInner JoinerKind = iota
	JoinerLeft
	JoinerRight
	JoinerOuter
	JoinerMixed
)

func (k JoinerKind) String() string {
	switch k {
	case JoinerInner:
		return "inner"
	case JoinerLeft:
		return "left"
	case JoinerRight:
		return "right"
	case JoinerOuter:
		return "outer"
	case JoinerMixed:
		return "mixed"
	}
	return "unknown"
}

// Joiner selects how branches combine. Required is set for mixed joiners
// only, one flag per branch, true meaning the branch must match.
type Joiner struct {
	Kind     JoinerKind
	Required []bool
}

func (j Joiner) String() string {
	if j.Kind != JoinerMixed {
		return j.Kind.String()
	}
	parts := make([]string, len(j.Required))
	for i, required := range j.Required {
		if required {
			parts[i] = "required"
		} else {
			parts[i] = "optional"
		}
	}
	return fmt.Sprintf("mixed(%s)", strings.Join(parts, ", "))
}

// Sink registers the stage output under an external sink name.
type Sink struct {
	SinkName string
	Input    *Stage
}

// Inputs returns the upstream stages this stage consumes, in branch order.
func (s *Stage) Inputs() []*Stage {
	switch s.StageType {
	case StageTypeSource:
		return nil
	case StageTypeEach:
		return []*Stage{s.Each.Input}
	case StageTypeProject:
		return []*Stage{s.Project.Input}
	case StageTypeDiscard:
		return []*Stage{s.Discard.Input}
	case StageTypeRename:
		return []*Stage{s.Rename.Input}
	case StageTypeCopy:
		return []*Stage{s.Copy.Input}
	case StageTypeGroupBy:
		return s.GroupBy.Inputs
	case StageTypeEvery:
		return []*Stage{s.Every.Input}
	case StageTypeAggregate:
		return s.Aggregate.Inputs
	case StageTypeSchemaFix:
		return []*Stage{s.SchemaFix.Input}
	case StageTypeJoin:
		return s.Join.Inputs
	case StageTypeHashJoin:
		return s.HashJoin.Inputs
	case StageTypeSink:
		return []*Stage{s.Sink.Input}
	}
	panic("impossible, stage type switch bug")
}

// Walk visits every stage reachable from the given tails exactly once,
// inputs before consumers. Stages shared between branches are visited once.
func Walk(tails []*Stage, f func(*Stage) error) error {
	visited := make(map[*Stage]bool)
	var walk func(stage *Stage) error
	walk = func(stage *Stage) error {
		if visited[stage] {
			return nil
		}
		visited[stage] = true
		for _, input := range stage.Inputs() {
			if err := walk(input); err != nil {
				return err
			}
		}
		return f(stage)
	}
	for _, tail := range tails {
		if err := walk(tail); err != nil {
			return err
		}
	}
	return nil
}
