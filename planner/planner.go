// Package planner carries the reference implementation of the field
// resolution algebra behind the plan.Resolver seam. An external execution
// engine can replace it; pipelines built against this resolver and against
// the engine's own must see identical schema evolution.
package planner

import (
	"github.com/pkg/errors"

	"github.com/sluicedata/sluice/plan"
	"github.com/sluicedata/sluice/sluice"
)

// ProtocolVersion is the resolution protocol this resolver speaks.
const ProtocolVersion = "1.0.0"

type Resolver struct{}

func New() *Resolver {
	return &Resolver{}
}

func (r *Resolver) Info() plan.ResolverInfo {
	return plan.ResolverInfo{
		Name:            "sluice-reference",
		ProtocolVersion: ProtocolVersion,
	}
}

func (r *Resolver) ResolveScope(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	switch stage.StageType {
	case plan.StageTypeSource:
		return r.resolveSource(stage, inputs)
	case plan.StageTypeEach:
		return r.resolveEach(stage, inputs)
	case plan.StageTypeProject:
		return r.resolveProject(stage, inputs)
	case plan.StageTypeDiscard:
		return r.resolveDiscard(stage, inputs)
	case plan.StageTypeRename:
		return r.resolveRename(stage, inputs)
	case plan.StageTypeCopy:
		return r.resolveCopy(stage, inputs)
	case plan.StageTypeGroupBy:
		return r.resolveGroupBy(stage, inputs)
	case plan.StageTypeEvery:
		return r.resolveEvery(stage, inputs)
	case plan.StageTypeAggregate:
		return r.resolveAggregate(stage, inputs)
	case plan.StageTypeSchemaFix:
		return r.resolveSchemaFix(stage, inputs)
	case plan.StageTypeJoin:
		return r.resolveJoin(stage, inputs)
	case plan.StageTypeHashJoin:
		return r.resolveHashJoin(stage, inputs)
	case plan.StageTypeSink:
		return r.resolveSink(stage, inputs)
	}
	return plan.Scope{}, errors.Errorf("unknown stage type %d", stage.StageType)
}

func single(inputs []plan.Scope) (plan.Scope, error) {
	if len(inputs) != 1 {
		return plan.Scope{}, errors.Errorf("expected exactly one input scope, got %d", len(inputs))
	}
	return inputs[0], nil
}

func (r *Resolver) resolveSource(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	if len(inputs) != 0 {
		return plan.Scope{}, errors.Errorf("source stage takes no inputs, got %d", len(inputs))
	}
	return plan.SourceScope(stage.Source.Declared), nil
}

func (r *Resolver) resolveEach(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	input, err := single(inputs)
	if err != nil {
		return plan.Scope{}, err
	}
	each := stage.Each
	if (each.Filter == nil) == (each.Function == nil) {
		return plan.Scope{}, sluice.Errorf(sluice.ErrorKindAmbiguousOperationKind, "each stage needs exactly one of filter and function")
	}
	for _, argument := range each.Arguments {
		if !input.Output.Has(argument) {
			return plan.Scope{}, sluice.Errorf(sluice.ErrorKindUnknownField, "unknown argument field %q in schema %s", argument, input.Output)
		}
	}

	output := input.Output
	if each.Function != nil {
		if each.Function.Replace {
			output = each.Function.Declared
		} else {
			output, err = input.Output.Append(each.Function.Declared)
			if err != nil {
				return plan.Scope{}, errors.Wrap(err, "couldn't append declared function fields")
			}
		}
	}
	return plan.Scope{
		Kind:   plan.StageKindTransform,
		Inputs: []sluice.Schema{input.Output},
		Output: output,
	}, nil
}

func (r *Resolver) resolveProject(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	input, err := single(inputs)
	if err != nil {
		return plan.Scope{}, err
	}
	output, err := input.Output.Project(stage.Project.Kept...)
	if err != nil {
		return plan.Scope{}, err
	}
	return plan.Scope{
		Kind:   plan.StageKindTransform,
		Inputs: []sluice.Schema{input.Output},
		Output: output,
	}, nil
}

func (r *Resolver) resolveDiscard(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	input, err := single(inputs)
	if err != nil {
		return plan.Scope{}, err
	}
	return plan.Scope{
		Kind:   plan.StageKindTransform,
		Inputs: []sluice.Schema{input.Output},
		Output: input.Output.Difference(stage.Discard.Dropped...),
	}, nil
}

func (r *Resolver) resolveRename(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	input, err := single(inputs)
	if err != nil {
		return plan.Scope{}, err
	}
	from := make([]string, len(stage.Rename.Pairs))
	to := make([]string, len(stage.Rename.Pairs))
	for i, pair := range stage.Rename.Pairs {
		from[i] = pair.From
		to[i] = pair.To
	}
	output, err := input.Output.Rename(from, to)
	if err != nil {
		return plan.Scope{}, err
	}
	return plan.Scope{
		Kind:   plan.StageKindTransform,
		Inputs: []sluice.Schema{input.Output},
		Output: output,
	}, nil
}

func (r *Resolver) resolveCopy(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	input, err := single(inputs)
	if err != nil {
		return plan.Scope{}, err
	}
	newNames := make(map[string][]string, len(stage.Copy.Pairs))
	for _, pair := range stage.Copy.Pairs {
		if !input.Output.Has(pair.From) {
			return plan.Scope{}, sluice.Errorf(sluice.ErrorKindInvalidRename, "unknown field %q in schema %s", pair.From, input.Output)
		}
		newNames[pair.From] = append(newNames[pair.From], pair.To)
	}
	// Copies keep the order the originals appear in, whatever order the
	// pairs were given in.
	var copies []sluice.Field
	for _, field := range input.Output.Fields() {
		for _, to := range newNames[field.Name] {
			copies = append(copies, sluice.Field{Name: to, Type: field.Type})
		}
	}
	copySchema, err := sluice.NewSchemaOfFields(copies)
	if err != nil {
		return plan.Scope{}, err
	}
	output, err := input.Output.Append(copySchema)
	if err != nil {
		return plan.Scope{}, err
	}
	return plan.Scope{
		Kind:   plan.StageKindTransform,
		Inputs: []sluice.Schema{input.Output},
		Output: output,
	}, nil
}

func (r *Resolver) resolveSink(stage *plan.Stage, inputs []plan.Scope) (plan.Scope, error) {
	input, err := single(inputs)
	if err != nil {
		return plan.Scope{}, err
	}
	return plan.Scope{
		Kind:   plan.StageKindTransform,
		Inputs: []sluice.Schema{input.Output},
		Output: input.Output,
	}, nil
}
