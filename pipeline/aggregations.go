package pipeline

import (
	"github.com/sluicedata/sluice/aggregates"
	"github.com/sluicedata/sluice/plan"
	"github.com/sluicedata/sluice/sluice"
)

// GroupBySpec configures a grouping stage. SortBy and Reverse order rows
// within each group; requesting either disqualifies the composite rewrite.
type GroupBySpec struct {
	// Name is optional; unnamed stages get group_by_<ordinal>.
	Name    string
	Keys    []string
	SortBy  []string
	Reverse bool
}

// AggregatorSpec configures one per-group fold inside a grouping block.
type AggregatorSpec struct {
	Name      string
	Op        string
	Arguments []string
	// As overrides the output field names; defaults to the op name.
	As []string
}

// BufferSpec configures one whole-group buffer inside a grouping block.
type BufferSpec struct {
	Name      string
	Op        string
	Arguments []string
	As        []string
}

// GroupBy groups the assembly by the key fields and runs the aggregation
// block over it. A nil body leaves the bare grouping in place.
func (a *Assembly) GroupBy(spec GroupBySpec, body func(*Aggregations) error) error {
	if err := a.usable(); err != nil {
		return err
	}
	if len(spec.Keys) == 0 {
		return a.fail(sluice.Errorf(sluice.ErrorKindMissingJoinKey, "no grouping key given"))
	}
	if _, err := a.scope.Output.Project(spec.Keys...); err != nil {
		return a.fail(err)
	}
	for _, field := range spec.SortBy {
		if !a.scope.Output.Has(field) {
			return a.fail(sluice.Errorf(sluice.ErrorKindUnknownField, "unknown sort field %q in schema %s", field, a.scope.Output))
		}
	}

	name := spec.Name
	if name == "" {
		name = a.nextName("group_by")
	}
	preTail, preScope := a.tail, a.scope
	stage := &plan.Stage{
		Name:      name,
		StageType: plan.StageTypeGroupBy,
		GroupBy: &plan.GroupBy{
			Inputs:  []*plan.Stage{a.tail},
			Keys:    spec.Keys,
			SortBy:  spec.SortBy,
			Reverse: spec.Reverse,
		},
	}
	if err := a.apply(stage, []plan.Scope{a.scope}); err != nil {
		return err
	}

	block := newAggregations(a, stage, spec.Keys, []*plan.Stage{preTail}, []plan.Scope{preScope}, len(spec.SortBy) > 0 || spec.Reverse)
	if body != nil {
		if err := body(block); err != nil {
			return err
		}
	}
	return block.close()
}

// Aggregations is the scoped sub-builder active between a grouping stage and
// the end of its block. It accepts either one buffer or any number of
// aggregators, tracks composite-rewrite eligibility, and on close either
// collapses the whole block into one composite aggregate stage or pins the
// final schema with an identity stage.
type Aggregations struct {
	owner    *Assembly
	grouping *plan.Stage
	keys     []string

	preTails  []*plan.Stage
	preScopes []plan.Scope

	tail  *plan.Stage
	scope plan.Scope

	closed          bool
	hasBuffer       bool
	aggregatorCount int
	// composites collects partial-aggregation equivalents while every
	// aggregator so far has one; nil once the rewrite is disqualified.
	composites   []plan.Partial
	disqualified bool
}

func newAggregations(owner *Assembly, grouping *plan.Stage, keys []string, preTails []*plan.Stage, preScopes []plan.Scope, disqualified bool) *Aggregations {
	return &Aggregations{
		owner:        owner,
		grouping:     grouping,
		keys:         keys,
		preTails:     preTails,
		preScopes:    preScopes,
		tail:         owner.tail,
		scope:        owner.scope,
		disqualified: disqualified,
	}
}

// Schema is the output schema at the current tail of the block.
func (g *Aggregations) Schema() sluice.Schema { return g.scope.Output }

func (g *Aggregations) usable() error {
	if g.closed {
		return g.owner.fail(sluice.Errorf(sluice.ErrorKindUnsupportedAggregation, "aggregation block of %q is already closed", g.grouping.Name))
	}
	return g.owner.flow.usable()
}

func (g *Aggregations) apply(stage *plan.Stage, inputs []plan.Scope) error {
	scope, err := plan.Resolve(g.owner.flow.resolver, stage, inputs)
	if err != nil {
		return g.owner.fail(err)
	}
	stage.Scope = &scope
	g.tail = stage
	g.scope = scope
	return nil
}

// values is the schema aggregator arguments resolve against: always the
// grouped rows, not the output of earlier aggregators in the block.
func (g *Aggregations) values() sluice.Schema {
	if g.scope.Kind == plan.StageKindAggregate && len(g.scope.Inputs) > 0 {
		return g.scope.Inputs[0]
	}
	return g.scope.Output
}

// declare validates the argument fields against the grouped values and
// computes the fields this operation appends.
func (g *Aggregations) declare(descriptor aggregates.Descriptor, arguments, as []string) (sluice.Schema, error) {
	values := g.values()
	fields := make([]sluice.Field, len(arguments))
	for i, argument := range arguments {
		field, ok := values.FieldByName(argument)
		if !ok {
			return sluice.Schema{}, g.owner.fail(sluice.Errorf(sluice.ErrorKindUnknownField, "unknown argument field %q in grouped values %s", argument, values))
		}
		fields[i] = field
	}
	declared, err := descriptor.OutputSchema(fields, as)
	if err != nil {
		return sluice.Schema{}, g.owner.fail(err)
	}
	return declared, nil
}

// Aggregator appends one per-group fold.
func (g *Aggregations) Aggregator(spec AggregatorSpec) error {
	if err := g.usable(); err != nil {
		return err
	}
	if g.hasBuffer {
		return g.owner.fail(sluice.Errorf(sluice.ErrorKindBufferExclusivityViolation, "aggregator %s cannot share a grouping block with a buffer", spec.Op))
	}
	descriptor, err := aggregates.Lookup(spec.Op)
	if err != nil {
		return g.owner.fail(err)
	}
	if descriptor.Kind != aggregates.KindAggregator {
		return g.owner.fail(sluice.Errorf(sluice.ErrorKindUnsupportedAggregation, "%s is a %s, not an aggregator", spec.Op, descriptor.Kind))
	}
	declared, err := g.declare(descriptor, spec.Arguments, spec.As)
	if err != nil {
		return err
	}

	name := spec.Name
	if name == "" {
		name = g.owner.nextName("every")
	}
	stage := &plan.Stage{
		Name:      name,
		StageType: plan.StageTypeEvery,
		Every: &plan.Every{
			Input:     g.tail,
			Op:        spec.Op,
			Arguments: spec.Arguments,
			Declared:  declared,
		},
	}
	if err := g.apply(stage, []plan.Scope{g.scope}); err != nil {
		return err
	}
	g.aggregatorCount++
	if descriptor.Composite == "" {
		g.disqualify()
	} else if !g.disqualified {
		g.composites = append(g.composites, plan.Partial{
			Op:        descriptor.Composite,
			Arguments: spec.Arguments,
			Declared:  declared,
		})
	}
	return nil
}

// Buffer appends the single whole-group buffer of the block.
func (g *Aggregations) Buffer(spec BufferSpec) error {
	if err := g.usable(); err != nil {
		return err
	}
	if g.hasBuffer {
		return g.owner.fail(sluice.Errorf(sluice.ErrorKindBufferExclusivityViolation, "a grouping block holds at most one buffer"))
	}
	if g.aggregatorCount > 0 {
		return g.owner.fail(sluice.Errorf(sluice.ErrorKindBufferExclusivityViolation, "buffer %s cannot share a grouping block with an aggregator", spec.Op))
	}
	descriptor, err := aggregates.Lookup(spec.Op)
	if err != nil {
		return g.owner.fail(err)
	}
	if descriptor.Kind != aggregates.KindBuffer {
		return g.owner.fail(sluice.Errorf(sluice.ErrorKindUnsupportedAggregation, "%s is an %s, not a buffer", spec.Op, descriptor.Kind))
	}
	declared, err := g.declare(descriptor, spec.Arguments, spec.As)
	if err != nil {
		return err
	}

	name := spec.Name
	if name == "" {
		name = g.owner.nextName("every")
	}
	stage := &plan.Stage{
		Name:      name,
		StageType: plan.StageTypeEvery,
		Every: &plan.Every{
			Input:     g.tail,
			Op:        spec.Op,
			Arguments: spec.Arguments,
			Declared:  declared,
			IsBuffer:  true,
		},
	}
	if err := g.apply(stage, []plan.Scope{g.scope}); err != nil {
		return err
	}
	g.hasBuffer = true
	g.disqualify()
	return nil
}

func (g *Aggregations) disqualify() {
	g.disqualified = true
	g.composites = nil
}

// close folds the block back into the owning assembly. An eligible block is
// rewritten into one composite aggregate stage over the pre-grouping inputs;
// an ineligible one gets a trailing identity stage pinning the final schema,
// since value fields do not widen through a chain of aggregation stages the
// way they do through row-wise stages.
func (g *Aggregations) close() error {
	g.closed = true
	if g.aggregatorCount == 0 && !g.hasBuffer {
		g.owner.tail = g.tail
		g.owner.scope = g.scope
		return nil
	}
	if !g.disqualified {
		return g.rewrite()
	}
	return g.fix()
}

func (g *Aggregations) rewrite() error {
	var first sluice.Schema
	for i, scope := range g.preScopes {
		projected, err := scope.Output.Project(g.keys...)
		if err != nil {
			return g.owner.fail(err)
		}
		if i == 0 {
			first = projected
			continue
		}
		if !projected.Equal(first) {
			return g.owner.fail(sluice.Errorf(sluice.ErrorKindGroupingKeyMismatch, "branch %d groups by %s, branch 0 by %s", i, projected, first))
		}
	}

	stage := &plan.Stage{
		Name:      g.owner.nextName("aggregate"),
		StageType: plan.StageTypeAggregate,
		Aggregate: &plan.Aggregate{
			Inputs:   g.preTails,
			Keys:     g.keys,
			Partials: g.composites,
		},
	}
	scope, err := plan.Resolve(g.owner.flow.resolver, stage, g.preScopes)
	if err != nil {
		return g.owner.fail(err)
	}
	stage.Scope = &scope
	g.owner.tail = stage
	g.owner.scope = scope
	return nil
}

func (g *Aggregations) fix() error {
	stage := &plan.Stage{
		Name:      g.owner.nextName("schema_fix"),
		StageType: plan.StageTypeSchemaFix,
		SchemaFix: &plan.SchemaFix{
			Input:    g.tail,
			Declared: g.scope.Output,
		},
	}
	if err := g.apply(stage, []plan.Scope{g.scope}); err != nil {
		return err
	}
	g.owner.tail = g.tail
	g.owner.scope = g.scope
	return nil
}
