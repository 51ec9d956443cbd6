package pipeline

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/sluicedata/sluice/graph"
	"github.com/sluicedata/sluice/plan"
	"github.com/sluicedata/sluice/sluice"
)

// RowTransformer is the row-operation vocabulary shared by everything that
// builds row-wise stages. Assembly implements it; wrappers delegate to one.
type RowTransformer interface {
	Each(spec EachSpec) error
	Project(names ...string) error
	Discard(names ...string) error
	Rename(renames map[string]string) error
	Copy(copies map[string]string) error
}

// Assembly builds one linear run of stages. The head is fixed at creation;
// every operation advances the tail and replaces the current scope. An
// assembly stops accepting operations once a sink, join or union consumes
// its tail.
type Assembly struct {
	node *Node
	flow *Flow

	head  *plan.Stage
	tail  *plan.Stage
	scope plan.Scope

	ordinals   map[string]int
	consumed   bool
	consumedBy string
}

var _ RowTransformer = (*Assembly)(nil)

func (a *Assembly) Name() string { return a.node.Name() }

func (a *Assembly) QualifiedName() string { return a.node.QualifiedName() }

func (a *Assembly) Node() *Node { return a.node }

// Schema is the output schema at the current tail.
func (a *Assembly) Schema() sluice.Schema { return a.scope.Output }

// Scope is an independent copy of the current scope.
func (a *Assembly) Scope() plan.Scope { return a.scope.Copy() }

func (a *Assembly) Visualize() *graph.Node {
	return plan.DescribeStage(a.tail, true)
}

func (a *Assembly) nextName(kind string) string {
	ordinal := a.ordinals[kind]
	a.ordinals[kind]++
	return fmt.Sprintf("%s_%d", kind, ordinal)
}

func (a *Assembly) usable() error {
	if a.consumed {
		return errors.Errorf("assembly %q was already consumed by %s", a.node.QualifiedName(), a.consumedBy)
	}
	return a.flow.usable()
}

// fail attaches the assembly's qualified path so pipeline authors can locate
// the offending stage without walking the tree.
func (a *Assembly) fail(err error) error {
	return sluice.ErrorAt(err, a.node.QualifiedName())
}

// apply resolves the stage scope through the planner seam and advances the
// tail. The resolved scope stays attached to the stage for later inspection.
func (a *Assembly) apply(stage *plan.Stage, inputs []plan.Scope) error {
	scope, err := plan.Resolve(a.flow.resolver, stage, inputs)
	if err != nil {
		return a.fail(err)
	}
	stage.Scope = &scope
	a.tail = stage
	a.scope = scope
	return nil
}

// EachSpec configures one row-wise stage. Exactly one of Filter and Function
// must be set.
type EachSpec struct {
	// Name is optional; unnamed stages get each_<ordinal>.
	Name string
	// Arguments are the input fields the operation reads.
	Arguments []string
	Filter    *FilterSpec
	Function  *FunctionSpec
}

// FilterSpec drops rows by a predicate; the schema passes through.
type FilterSpec struct {
	Op string
}

// FunctionSpec computes new fields. Replace makes the declared fields the
// whole stage output instead of appending them.
type FunctionSpec struct {
	Op       string
	Declared sluice.Schema
	Replace  bool
}

// Each applies one row-wise operation at the tail.
func (a *Assembly) Each(spec EachSpec) error {
	if err := a.usable(); err != nil {
		return err
	}
	if (spec.Filter == nil) == (spec.Function == nil) {
		return a.fail(sluice.Errorf(sluice.ErrorKindAmbiguousOperationKind, "each stage needs exactly one of filter and function"))
	}
	for _, argument := range spec.Arguments {
		if !a.scope.Output.Has(argument) {
			return a.fail(sluice.Errorf(sluice.ErrorKindUnknownField, "unknown argument field %q in schema %s", argument, a.scope.Output))
		}
	}

	name := spec.Name
	if name == "" {
		name = a.nextName("each")
	}
	each := &plan.Each{
		Input:     a.tail,
		Arguments: spec.Arguments,
	}
	if spec.Filter != nil {
		each.Filter = &plan.FilterOperation{Op: spec.Filter.Op}
	}
	if spec.Function != nil {
		each.Function = &plan.FunctionOperation{
			Op:       spec.Function.Op,
			Declared: spec.Function.Declared,
			Replace:  spec.Function.Replace,
		}
	}
	return a.apply(&plan.Stage{Name: name, StageType: plan.StageTypeEach, Each: each}, []plan.Scope{a.scope})
}

// Project restricts and reorders the schema to exactly the given names.
func (a *Assembly) Project(names ...string) error {
	if err := a.usable(); err != nil {
		return err
	}
	if _, err := a.scope.Output.Project(names...); err != nil {
		return a.fail(err)
	}
	stage := &plan.Stage{
		Name:      a.nextName("project"),
		StageType: plan.StageTypeProject,
		Project:   &plan.Project{Input: a.tail, Kept: names},
	}
	return a.apply(stage, []plan.Scope{a.scope})
}

// Discard removes the named fields; names not present are ignored.
func (a *Assembly) Discard(names ...string) error {
	if err := a.usable(); err != nil {
		return err
	}
	stage := &plan.Stage{
		Name:      a.nextName("discard"),
		StageType: plan.StageTypeDiscard,
		Discard:   &plan.Discard{Input: a.tail, Dropped: names},
	}
	return a.apply(stage, []plan.Scope{a.scope})
}

// Rename substitutes field names in place, keeping positional order.
func (a *Assembly) Rename(renames map[string]string) error {
	if err := a.usable(); err != nil {
		return err
	}
	pairs := sortedPairs(renames)
	from, to := splitPairs(pairs)
	if _, err := a.scope.Output.Rename(from, to); err != nil {
		return a.fail(err)
	}
	stage := &plan.Stage{
		Name:      a.nextName("rename"),
		StageType: plan.StageTypeRename,
		Rename:    &plan.Rename{Input: a.tail, Pairs: pairs},
	}
	return a.apply(stage, []plan.Scope{a.scope})
}

// Copy appends duplicates of existing fields under new names, after all
// existing fields, in the order the originals appear.
func (a *Assembly) Copy(copies map[string]string) error {
	if err := a.usable(); err != nil {
		return err
	}
	pairs := sortedPairs(copies)
	for _, pair := range pairs {
		if !a.scope.Output.Has(pair.From) {
			return a.fail(sluice.Errorf(sluice.ErrorKindInvalidRename, "unknown field %q in schema %s", pair.From, a.scope.Output))
		}
	}
	stage := &plan.Stage{
		Name:      a.nextName("copy"),
		StageType: plan.StageTypeCopy,
		Copy:      &plan.Copy{Input: a.tail, Pairs: pairs},
	}
	return a.apply(stage, []plan.Scope{a.scope})
}

// Branch forks a child assembly from the current tail under a fresh name.
// The child starts with an independent copy of the current scope; the
// parent's tail and scope are untouched.
func (a *Assembly) Branch(name string, body func(*Assembly) error) (*Assembly, error) {
	if err := a.usable(); err != nil {
		return nil, err
	}
	if name == "" {
		name = a.nextName("branch")
	}
	child, err := a.flow.newAssembly(a.node, name)
	if err != nil {
		return nil, err
	}
	child.head = a.tail
	child.tail = a.tail
	child.scope = a.scope.Copy()
	if body != nil {
		if err := body(child); err != nil {
			return nil, err
		}
	}
	return child, nil
}

func sortedPairs(m map[string]string) []plan.RenamePair {
	pairs := make([]plan.RenamePair, 0, len(m))
	for from, to := range m {
		pairs = append(pairs, plan.RenamePair{From: from, To: to})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].From < pairs[j].From })
	return pairs
}

func splitPairs(pairs []plan.RenamePair) (from, to []string) {
	from = make([]string, len(pairs))
	to = make([]string, len(pairs))
	for i, pair := range pairs {
		from[i] = pair.From
		to[i] = pair.To
	}
	return from, to
}
