package pipeline

import (
	"github.com/sluicedata/sluice/plan"
	"github.com/sluicedata/sluice/sluice"
)

// UnionSpec configures a merging union: the named branches are brought
// together and grouped on a shared key.
type UnionSpec struct {
	// Name is optional; unnamed unions get union_<ordinal>.
	Name     string
	Branches []string
	// Keys defaults to the first field of the first branch's schema. A
	// historical default kept for compatibility; spell the key out in new
	// pipelines.
	Keys    []string
	SortBy  []string
	Reverse bool
}

// Union merges the named branches grouped on the key fields. Every branch
// must carry a compatible schema for the key fields. An aggregation body may
// follow, exactly as after GroupBy.
func (f *Flow) Union(spec UnionSpec, body func(*Aggregations) error) (*Assembly, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	branches, err := f.resolveBranches("union", spec.Branches)
	if err != nil {
		return nil, err
	}

	keys := spec.Keys
	if len(keys) == 0 {
		first := branches[0].scope.Output
		if first.Len() == 0 {
			return nil, f.fail(sluice.Errorf(sluice.ErrorKindMissingJoinKey, "branch %q has no fields to default the union key from", branches[0].Name()))
		}
		keys = []string{first.Fields()[0].Name}
	}
	sortBy := spec.SortBy
	// Reverse without a sort key sorts by the grouping key, so that reverse
	// has an effect. A compatibility quirk, not a general contract.
	if spec.Reverse && len(sortBy) == 0 {
		sortBy = keys
	}

	for i, branch := range branches {
		for _, key := range keys {
			field, ok := branch.scope.Output.FieldByName(key)
			if !ok {
				return nil, f.fail(sluice.Errorf(sluice.ErrorKindSchemaMismatch, "branch %q lacks union key field %q", branch.Name(), key))
			}
			reference, ok := branches[0].scope.Output.FieldByName(key)
			if ok && i > 0 && !field.Type.Fits(reference.Type) {
				return nil, f.fail(sluice.Errorf(sluice.ErrorKindSchemaMismatch, "union key field %q is %s in branch %q but %s in branch %q", key, field.Type, branch.Name(), reference.Type, branches[0].Name()))
			}
		}
		for _, field := range sortBy {
			if !branch.scope.Output.Has(field) {
				return nil, f.fail(sluice.Errorf(sluice.ErrorKindUnknownField, "unknown sort field %q in branch %q schema %s", field, branch.Name(), branch.scope.Output))
			}
		}
	}

	name := spec.Name
	if name == "" {
		name = f.nextName("union")
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
		StageType: plan.StageTypeGroupBy,
		GroupBy: &plan.GroupBy{
			Inputs:  inputs,
			Keys:    keys,
			SortBy:  sortBy,
			Reverse: spec.Reverse,
		},
	}
	if err := result.apply(stage, scopes); err != nil {
		return nil, err
	}
	result.head = stage
	for _, branch := range branches {
		branch.consumeBy("union " + name)
	}

	block := newAggregations(result, stage, keys, inputs, scopes, len(sortBy) > 0 || spec.Reverse)
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
