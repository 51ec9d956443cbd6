package planner

import (
	"github.com/pkg/errors"

	"github.com/sluicedata/sluice/plan"
	"github.com/sluicedata/sluice/sluice"
)

// keySchemas projects the key fields out of every input scope and checks the
// projections line up structurally. strict additionally requires the type
// tags to be equal, not merely compatible; the composite aggregate stage
// declares a single definitive key schema and cannot hedge.
func keySchemas(keys []string, inputs []plan.Scope, strict bool) ([]sluice.Schema, error) {
	if len(keys) == 0 {
		return nil, sluice.Errorf(sluice.ErrorKindMissingJoinKey, "no grouping key given")
	}
	schemas := make([]sluice.Schema, len(inputs))
	for i, input := range inputs {
		projected, err := input.Output.Project(keys...)
		if err != nil {
			return nil, errors.Wrapf(err, "key fields of branch %d", i)
		}
		schemas[i] = projected
	}
	for i := 1; i < len(schemas); i++ {
		if strict {
			if !schemas[0].Equal(schemas[i]) {
				return nil, sluice.Errorf(sluice.ErrorKindGroupingKeyMismatch, "branch %d groups by %s, branch 0 by %s", i, schemas[i], schemas[0])
			}
			continue
		}
		fields0, fieldsI := schemas[0].Fields(), schemas[i].Fields()
		for j := range fields0 {
			if !fieldsI[j].Type.Fits(fields0[j].Type) {
				return nil, sluice.Errorf(sluice.ErrorKindSchemaMismatch, "key field %q is %s in branch %d but %s in branch 0", fields0[j].Name, fieldsI[j].Type, i, fields0[j].Type)
			}
		}
	}
	return schemas, nil
}

func (r *Resolver) resolveGroupBy(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	if len(inputs) == 0 {
		return plan.Scope{}, errors.New("group by stage takes at least one input")
	}
	group := stage.GroupBy
	schemas, err := keySchemas(group.Keys, inputs, false)
	if err != nil {
		return plan.Scope{}, err
	}
	for i, input := range inputs {
		for _, field := range group.SortBy {
			if !input.Output.Has(field) {
				return plan.Scope{}, sluice.Errorf(sluice.ErrorKindUnknownField, "unknown sort field %q in branch %d schema %s", field, i, input.Output)
			}
		}
	}

	inputSchemas := make([]sluice.Schema, len(inputs))
	for i, input := range inputs {
		inputSchemas[i] = input.Output
	}
	keys := schemas[0]
	return plan.Scope{
		Kind:   plan.StageKindGroup,
		Inputs: inputSchemas,
		Output: inputs[0].Output,
		Keys:   &keys,
	}, nil
}

// resolveEvery computes the scope of one aggregator or buffer application.
// The value fields an every stage may reference are always those of the
// grouping it follows, not the outputs of earlier aggregators in the chain.
func (r *Resolver) resolveEvery(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	input, err := single(inputs)
	if err != nil {
		return plan.Scope{}, err
	}

	var values, base sluice.Schema
	switch input.Kind {
	case plan.StageKindGroup:
		values = input.Output
		if input.Keys == nil {
			return plan.Scope{}, errors.New("grouping scope carries no keys")
		}
		base = *input.Keys
	case plan.StageKindAggregate:
		if len(input.Inputs) == 0 {
			return plan.Scope{}, errors.New("aggregation scope carries no input schema")
		}
		values = input.Inputs[0]
		base = input.Output
	default:
		return plan.Scope{}, errors.Errorf("every stage must follow a grouping, got %s scope", input.Kind)
	}

	for _, argument := range stage.Every.Arguments {
		if !values.Has(argument) {
			return plan.Scope{}, sluice.Errorf(sluice.ErrorKindUnknownField, "unknown argument field %q in grouped values %s", argument, values)
		}
	}
	output, err := base.Append(stage.Every.Declared)
	if err != nil {
		return plan.Scope{}, errors.Wrap(err, "couldn't append declared aggregation fields")
	}

	scope := plan.Scope{
		Kind:   plan.StageKindAggregate,
		Inputs: []sluice.Schema{values},
		Output: output,
	}
	if input.Keys != nil {
		keys := *input.Keys
		scope.Keys = &keys
	}
	return scope, nil
}

func (r *Resolver) resolveAggregate(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	if len(inputs) == 0 {
		return plan.Scope{}, errors.New("aggregate stage takes at least one input")
	}
	aggregate := stage.Aggregate
	schemas, err := keySchemas(aggregate.Keys, inputs, true)
	if err != nil {
		return plan.Scope{}, err
	}

	output := schemas[0]
	for _, partial := range aggregate.Partials {
		for i, input := range inputs {
			for _, argument := range partial.Arguments {
				if !input.Output.Has(argument) {
					return plan.Scope{}, sluice.Errorf(sluice.ErrorKindUnknownField, "unknown argument field %q of %s in branch %d schema %s", argument, partial.Op, i, input.Output)
				}
			}
		}
		output, err = output.Append(partial.Declared)
		if err != nil {
			return plan.Scope{}, errors.Wrapf(err, "couldn't append fields declared by %s", partial.Op)
		}
	}

	inputSchemas := make([]sluice.Schema, len(inputs))
	for i, input := range inputs {
		inputSchemas[i] = input.Output
	}
	keys := schemas[0]
	return plan.Scope{
		Kind:   plan.StageKindAggregate,
		Inputs: inputSchemas,
		Output: output,
		Keys:   &keys,
	}, nil
}

func (r *Resolver) resolveSchemaFix(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	input, err := single(inputs)
	if err != nil {
		return plan.Scope{}, err
	}
	return plan.Scope{
		Kind:   plan.StageKindTransform,
		Inputs: []sluice.Schema{input.Output},
		Output: stage.SchemaFix.Declared,
	}, nil
}
