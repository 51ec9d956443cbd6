package planner

import (
	"github.com/pkg/errors"

	"github.com/sluicedata/sluice/plan"
	"github.com/sluicedata/sluice/sluice"
)

// branchKeySchemas resolves per-branch join keys and checks the branches
// against each other: same key arity everywhere, compatible types position by
// position. Key names may differ between branches.
func branchKeySchemas(branchKeys [][]string, inputs []plan.Scope) ([]sluice.Schema, error) {
	if len(branchKeys) != len(inputs) {
		return nil, errors.Errorf("got %d key lists for %d branches", len(branchKeys), len(inputs))
	}
	schemas := make([]sluice.Schema, len(inputs))
	for i, keys := range branchKeys {
		if len(keys) == 0 {
			return nil, sluice.Errorf(sluice.ErrorKindMissingJoinKey, "no join key for branch %d", i)
		}
		projected, err := inputs[i].Output.Project(keys...)
		if err != nil {
			return nil, errors.Wrapf(err, "key fields of branch %d", i)
		}
		schemas[i] = projected
	}
	for i := 1; i < len(schemas); i++ {
		if schemas[i].Len() != schemas[0].Len() {
			return nil, sluice.Errorf(sluice.ErrorKindSchemaMismatch, "branch %d joins on %d fields, branch 0 on %d", i, schemas[i].Len(), schemas[0].Len())
		}
		fields0, fieldsI := schemas[0].Fields(), schemas[i].Fields()
		for j := range fields0 {
			if !fieldsI[j].Type.Fits(fields0[j].Type) {
				return nil, sluice.Errorf(sluice.ErrorKindSchemaMismatch, "join key position %d is %s in branch %d but %s in branch 0", j, fieldsI[j].Type, i, fields0[j].Type)
			}
		}
	}
	return schemas, nil
}

// resultKeySchema collapses the branch key schemas into the post-join key
// schema: every distinct key name once, in order of first appearance. Two
// branches keying on the same name contribute a single result key.
func resultKeySchema(keySchemas []sluice.Schema) sluice.Schema {
	var fields []sluice.Field
	seen := make(map[string]bool)
	for _, schema := range keySchemas {
		for _, field := range schema.Fields() {
			if seen[field.Name] {
				continue
			}
			seen[field.Name] = true
			fields = append(fields, field)
		}
	}
	// Names are distinct by construction.
	schema, err := sluice.NewSchemaOfFields(fields)
	if err != nil {
		panic(err)
	}
	return schema
}

func checkJoiner(joiner plan.Joiner, branches int) error {
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

func checkDeclared(declared sluice.Schema, inputs []plan.Scope) error {
	total := 0
	for _, input := range inputs {
		total += input.Output.Len()
	}
	if declared.Len() != total {
		return sluice.Errorf(sluice.ErrorKindInvalidSchema, "declared %d fields for a joined tuple of %d", declared.Len(), total)
	}
	return nil
}

func (r *Resolver) resolveJoin(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	if len(inputs) < 2 {
		return plan.Scope{}, errors.Errorf("join stage takes at least two inputs, got %d", len(inputs))
	}
	join := stage.Join
	schemas, err := branchKeySchemas(join.BranchKeys, inputs)
	if err != nil {
		return plan.Scope{}, err
	}
	if err := checkJoiner(join.Joiner, len(inputs)); err != nil {
		return plan.Scope{}, err
	}
	if err := checkDeclared(join.Declared, inputs); err != nil {
		return plan.Scope{}, err
	}

	inputSchemas := make([]sluice.Schema, len(inputs))
	for i, input := range inputs {
		inputSchemas[i] = input.Output
	}
	keys := resultKeySchema(schemas)
	return plan.Scope{
		Kind:   plan.StageKindGroup,
		Inputs: inputSchemas,
		Output: join.Declared,
		Keys:   &keys,
	}, nil
}

func (r *Resolver) resolveHashJoin(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	if len(inputs) < 2 {
		return plan.Scope{}, errors.Errorf("hash join stage takes at least two inputs, got %d", len(inputs))
	}
	join := stage.HashJoin
	if _, err := branchKeySchemas(join.BranchKeys, inputs); err != nil {
		return plan.Scope{}, err
	}
	if err := checkJoiner(join.Joiner, len(inputs)); err != nil {
		return plan.Scope{}, err
	}
	if err := checkDeclared(join.Declared, inputs); err != nil {
		return plan.Scope{}, err
	}

	inputSchemas := make([]sluice.Schema, len(inputs))
	for i, input := range inputs {
		inputSchemas[i] = input.Output
	}
	// No grouping comes out of a hash join; the stream side stays a stream.
	return plan.Scope{
		Kind:   plan.StageKindTransform,
		Inputs: inputSchemas,
		Output: join.Declared,
	}, nil
}
