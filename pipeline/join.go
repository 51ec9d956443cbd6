package pipeline

import (
	"github.com/pkg/errors"

	"github.com/sluicedata/sluice/plan"
	"github.com/sluicedata/sluice/sluice"
)

// KeySpec names the join key fields. Uniform applies one field list to every
// branch; PerBranch maps branch name to its own list. Exactly one of the two
// may be set.
type KeySpec struct {
	Uniform   []string
	PerBranch map[string][]string
}

func (k KeySpec) forBranches(branches []*Assembly) ([][]string, error) {
	if len(k.Uniform) > 0 && len(k.PerBranch) > 0 {
		return nil, sluice.Errorf(sluice.ErrorKindInvalidJoinerSpec, "key spec sets both uniform and per-branch keys")
	}
	if len(k.Uniform) > 0 {
		out := make([][]string, len(branches))
		for i := range branches {
			out[i] = k.Uniform
		}
		return out, nil
	}
	if len(k.PerBranch) == 0 {
		return nil, sluice.Errorf(sluice.ErrorKindMissingJoinKey, "no join key given")
	}

	known := make(map[string]bool, len(branches))
	for _, branch := range branches {
		known[branch.Name()] = true
	}
	for name := range k.PerBranch {
		if !known[name] {
			return nil, sluice.Errorf(sluice.ErrorKindInvalidJoinerSpec, "per-branch key names unknown branch %q", name)
		}
	}
	out := make([][]string, len(branches))
	for i, branch := range branches {
		keys := k.PerBranch[branch.Name()]
		if len(keys) == 0 {
			return nil, sluice.Errorf(sluice.ErrorKindMissingJoinKey, "no join key for branch %q", branch.Name())
		}
		out[i] = keys
	}
	return out, nil
}

// JoinSpec configures a join of named branches. Branch names are looked up
// in the flow's subtree; an ambiguous name is an error even if the
// duplicates live in different sub-assemblies.
type JoinSpec struct {
	// Name is optional; unnamed joins get join_<ordinal>.
	Name     string
	Branches []string
	Keys     KeySpec
	Joiner   plan.Joiner
	// Declared overrides the default post-join schema, the dedup of the
	// branch schemas in branch order.
	Declared sluice.Schema
}

// HashJoinSpec configures a hash join: every branch but the first is held
// materialized against the streamed first branch.
type HashJoinSpec struct {
	Name     string
	Branches []string
	Keys     KeySpec
	Joiner   plan.Joiner
	Declared sluice.Schema
}

func (f *Flow) fail(err error) error {
	return sluice.ErrorAt(err, f.node.QualifiedName())
}

// resolveBranches looks the named branches up through the node tree and
// checks each is still open for consumption.
func (f *Flow) resolveBranches(operation string, names []string) ([]*Assembly, error) {
	if len(names) < 2 {
		return nil, errors.Errorf("%s takes at least two branches, got %d", operation, len(names))
	}
	seen := make(map[string]bool, len(names))
	branches := make([]*Assembly, len(names))
	for i, name := range names {
		if seen[name] {
			return nil, f.fail(sluice.Errorf(sluice.ErrorKindInvalidJoinerSpec, "branch %q is listed twice; branch it first to use it on both sides", name))
		}
		seen[name] = true
		node, err := f.node.Find(name)
		if err != nil {
			return nil, f.fail(err)
		}
		if node == nil {
			return nil, f.fail(sluice.Errorf(sluice.ErrorKindInvalidJoinerSpec, "unknown branch %q", name))
		}
		assembly, ok := node.owner.(*Assembly)
		if !ok {
			return nil, f.fail(sluice.Errorf(sluice.ErrorKindInvalidJoinerSpec, "%q is not an assembly", node.QualifiedName()))
		}
		if err := assembly.usable(); err != nil {
			return nil, err
		}
		branches[i] = assembly
	}
	return branches, nil
}

// checkKeySchemas lines the per-branch key projections up against each
// other: same arity everywhere, compatible types position by position.
func checkKeySchemas(schemas []sluice.Schema) error {
	for i := 1; i < len(schemas); i++ {
		if schemas[i].Len() != schemas[0].Len() {
			return sluice.Errorf(sluice.ErrorKindSchemaMismatch, "branch %d joins on %d fields, branch 0 on %d", i, schemas[i].Len(), schemas[0].Len())
		}
		fields0, fieldsI := schemas[0].Fields(), schemas[i].Fields()
		for j := range fields0 {
			if !fieldsI[j].Type.Fits(fields0[j].Type) {
				return sluice.Errorf(sluice.ErrorKindSchemaMismatch, "join key position %d is %s in branch %d but %s in branch 0", j, fieldsI[j].Type, i, fields0[j].Type)
			}
		}
	}
	return nil
}

func checkJoinerFlags(joiner plan.Joiner, branches int) error {
	if joiner.Kind == plan.JoinerMixed {
		if len(joiner.Required) != branches {
			return sluice.Errorf(sluice.ErrorKindInvalidJoinerSpec, "mixed joiner needs %d required flags, got %d", branches, len(joiner.Required))
		}
		return nil
	}
	if len(joiner.Required) != 0 {
		return sluice.Errorf(sluice.ErrorKindInvalidJoinerSpec, "required flags are only valid for mixed joiners, got %s", joiner.Kind)
	}
	return nil
}

// joinInputs validates the shared join preconditions and returns the branch
// key lists and the declared output schema.
func (f *Flow) joinInputs(branches []*Assembly, keys KeySpec, joiner plan.Joiner, declared sluice.Schema) ([][]string, sluice.Schema, error) {
	branchKeys, err := keys.forBranches(branches)
	if err != nil {
		return nil, sluice.Schema{}, f.fail(err)
	}
	keySchemas := make([]sluice.Schema, len(branches))
	for i, branch := range branches {
		projected, err := branch.scope.Output.Project(branchKeys[i]...)
		if err != nil {
			return nil, sluice.Schema{}, branch.fail(err)
		}
		keySchemas[i] = projected
	}
	if err := checkKeySchemas(keySchemas); err != nil {
		return nil, sluice.Schema{}, f.fail(err)
	}
	if err := checkJoinerFlags(joiner, len(branches)); err != nil {
		return nil, sluice.Schema{}, f.fail(err)
	}

	schemas := make([]sluice.Schema, len(branches))
	total := 0
	for i, branch := range branches {
		schemas[i] = branch.scope.Output
		total += branch.scope.Output.Len()
	}
	if declared.Len() == 0 {
		declared = sluice.Dedup(schemas...)
	} else if declared.Len() != total {
		return nil, sluice.Schema{}, f.fail(sluice.Errorf(sluice.ErrorKindInvalidSchema, "declared %d fields for a joined tuple of %d", declared.Len(), total))
	}
	return branchKeys, declared, nil
}

// Join groups the named branches on their key fields. The result is a fresh
// assembly; an aggregation body may follow, but join groupings never
// composite-rewrite, so it always closes with a schema-pinning stage.
func (f *Flow) Join(spec JoinSpec, body func(*Aggregations) error) (*Assembly, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	branches, err := f.resolveBranches("join", spec.Branches)
	if err != nil {
		return nil, err
	}
	branchKeys, declared, err := f.joinInputs(branches, spec.Keys, spec.Joiner, spec.Declared)
	if err != nil {
		return nil, err
	}

	name := spec.Name
	if name == "" {
		name = f.nextName("join")
	}
	result, err := f.newAssembly(f.node, name)
	if err != nil {
		return nil, err
	}

	inputs := make([]*plan.Stage, len(branches))
	scopes := make([]plan.Scope, len(branches))
	for i, branch := range branches {
		inputs[i] = branch.tail
		scopes[i] = branch.scope
	}
	stage := &plan.Stage{
		Name:      name,
		StageType: plan.StageTypeJoin,
		Join: &plan.Join{
			Inputs:     inputs,
			BranchKeys: branchKeys,
			Joiner:     spec.Joiner,
			Declared:   declared,
		},
	}
	if err := result.apply(stage, scopes); err != nil {
		return nil, err
	}
	stage.Join.ResultKeys = *result.scope.Keys
	result.head = stage
	for _, branch := range branches {
		branch.consumeBy("join " + name)
	}

	block := newAggregations(result, stage, result.scope.Keys.Names(), inputs, scopes, true)
	if body != nil {
		if err := body(block); err != nil {
			return nil, err
		}
	}
	if err := block.close(); err != nil {
		return nil, err
	}
	return result, nil
}

// HashJoin joins the named branches without grouping the output: the first
// branch streams, the rest are held materialized. No aggregation block may
// follow.
func (f *Flow) HashJoin(spec HashJoinSpec, body func(*Aggregations) error) (*Assembly, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	if body != nil {
		return nil, f.fail(sluice.Errorf(sluice.ErrorKindUnsupportedAggregation, "hash joins produce no grouping; aggregate over a plain join instead"))
	}
	branches, err := f.resolveBranches("hash join", spec.Branches)
	if err != nil {
		return nil, err
	}
	branchKeys, declared, err := f.joinInputs(branches, spec.Keys, spec.Joiner, spec.Declared)
	if err != nil {
		return nil, err
	}

	name := spec.Name
	if name == "" {
		name = f.nextName("hash_join")
	}
	result, err := f.newAssembly(f.node, name)
	if err != nil {
		return nil, err
	}

	inputs := make([]*plan.Stage, len(branches))
	scopes := make([]plan.Scope, len(branches))
	for i, branch := range branches {
		inputs[i] = branch.tail
		scopes[i] = branch.scope
	}
	stage := &plan.Stage{
		Name:      name,
		StageType: plan.StageTypeHashJoin,
		HashJoin: &plan.HashJoin{
			Inputs:     inputs,
			BranchKeys: branchKeys,
			Joiner:     spec.Joiner,
			Declared:   declared,
		},
	}
	if err := result.apply(stage, scopes); err != nil {
		return nil, err
	}
	result.head = stage
	for _, branch := range branches {
		branch.consumeBy("hash join " + name)
	}
	return result, nil
}

func (a *Assembly) consumeBy(what string) {
	a.consumed = true
	a.consumedBy = what
}
