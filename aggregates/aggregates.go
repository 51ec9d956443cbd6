// Package aggregates carries the descriptor table of the aggregation
// operations the composer understands: per-group folds and whole-group
// buffers, with composite partial-aggregation equivalents where they exist.
// Only schema shape lives here; evaluation belongs to the execution engine.
package aggregates

import (
	"github.com/sluicedata/sluice/sluice"
)

type Kind int

const (
	KindAggregator Kind = iota
	KindBuffer
)

func (k Kind) String() string {
	switch k {
	case KindAggregator:
		return "aggregator"
	case KindBuffer:
		return "buffer"
	}
	return "unknown"
}

// ArityVariadic marks operations taking any non-zero number of argument
// fields.
const ArityVariadic = -1

// Descriptor describes one aggregation operation: how many argument fields
// it takes, what it appends to the grouping keys, and whether the operation
// can be fused into a composite aggregate stage.
type Descriptor struct {
	Name string
	Kind Kind
	// Arity is the exact argument field count, or ArityVariadic.
	Arity int
	// MirrorsArguments is set for buffers that re-emit their argument
	// fields instead of declaring a single folded output.
	MirrorsArguments bool
	// Composite is the partial-aggregation op of the composite equivalent,
	// empty when the operation cannot be fused.
	Composite string
	// OutputType derives the output field type from the first argument
	// field's type. Unused when MirrorsArguments is set.
	OutputType func(argument sluice.Type) sluice.Type
}

var Table = map[string]Descriptor{
	"sum":     {Name: "sum", Kind: KindAggregator, Arity: 1, Composite: "sum", OutputType: numericType},
	"count":   {Name: "count", Kind: KindAggregator, Arity: 0, Composite: "count", OutputType: intType},
	"average": {Name: "average", Kind: KindAggregator, Arity: 1, Composite: "average", OutputType: numericType},
	"min":     {Name: "min", Kind: KindAggregator, Arity: 1, Composite: "min", OutputType: passthroughType},
	"max":     {Name: "max", Kind: KindAggregator, Arity: 1, Composite: "max", OutputType: passthroughType},
	"first":   {Name: "first", Kind: KindAggregator, Arity: 1, OutputType: passthroughType},
	"last":    {Name: "last", Kind: KindAggregator, Arity: 1, OutputType: passthroughType},
	"collect": {Name: "collect", Kind: KindAggregator, Arity: 1, OutputType: unspecifiedType},
	"take":    {Name: "take", Kind: KindBuffer, Arity: ArityVariadic, MirrorsArguments: true},
	"scan":    {Name: "scan", Kind: KindBuffer, Arity: 1, OutputType: passthroughType},
}

func Lookup(name string) (Descriptor, error) {
	descriptor, ok := Table[name]
	if !ok {
		return Descriptor{}, sluice.Errorf(sluice.ErrorKindUnsupportedAggregation, "unknown aggregation operation %q", name)
	}
	return descriptor, nil
}

// OutputSchema computes the fields one application of the operation appends
// after the grouping keys. as overrides the default output names: the
// operation name for folds, the argument names for mirroring buffers.
func (d Descriptor) OutputSchema(arguments []sluice.Field, as []string) (sluice.Schema, error) {
	if d.Arity == ArityVariadic {
		if len(arguments) == 0 {
			return sluice.Schema{}, sluice.Errorf(sluice.ErrorKindUnsupportedAggregation, "%s takes at least one argument field, got none", d.Name)
		}
	} else if len(arguments) != d.Arity {
		return sluice.Schema{}, sluice.Errorf(sluice.ErrorKindUnsupportedAggregation, "%s takes %d argument fields, got %d", d.Name, d.Arity, len(arguments))
	}

	if d.MirrorsArguments {
		names := as
		if len(names) == 0 {
			names = make([]string, len(arguments))
			for i, argument := range arguments {
				names[i] = argument.Name
			}
		}
		if len(names) != len(arguments) {
			return sluice.Schema{}, sluice.Errorf(sluice.ErrorKindUnsupportedAggregation, "%s re-emits %d argument fields, got %d output names", d.Name, len(arguments), len(names))
		}
		fields := make([]sluice.Field, len(arguments))
		for i, argument := range arguments {
			fields[i] = sluice.Field{Name: names[i], Type: argument.Type}
		}
		return sluice.NewSchemaOfFields(fields)
	}

	name := d.Name
	if len(as) > 1 {
		return sluice.Schema{}, sluice.Errorf(sluice.ErrorKindUnsupportedAggregation, "%s declares one output field, got %d names", d.Name, len(as))
	}
	if len(as) == 1 {
		name = as[0]
	}
	argumentType := sluice.TypeUnspecified
	if len(arguments) > 0 {
		argumentType = arguments[0].Type
	}
	return sluice.NewSchemaOfFields([]sluice.Field{{Name: name, Type: d.OutputType(argumentType)}})
}

func numericType(argument sluice.Type) sluice.Type {
	if argument == sluice.TypeInt || argument == sluice.TypeFloat {
		return argument
	}
	return sluice.TypeUnspecified
}

func intType(sluice.Type) sluice.Type {
	return sluice.TypeInt
}

func passthroughType(argument sluice.Type) sluice.Type {
	return argument
}

func unspecifiedType(sluice.Type) sluice.Type {
	return sluice.TypeUnspecified
}
