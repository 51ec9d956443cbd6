package plan

import (
	"fmt"
	"strings"

	"github.com/sluicedata/sluice/graph"
)

// DescribeStage renders the stage and everything upstream of it as a
// describe tree. With withSchemas set, each node also carries its resolved
// output schema and grouping keys. Stages shared between branches render
// once per consumer; the describe tree is a report, not the graph itself.
func DescribeStage(stage *Stage, withSchemas bool) *graph.Node {
	name := stage.StageType.String()
	if stage.Name != "" {
		name = fmt.Sprintf("%s %q", stage.StageType, stage.Name)
	}
	node := graph.NewNode(name)
	for _, attr := range stageAttributes(stage) {
		node.AddField(attr.Name, attr.Value)
	}
	if withSchemas && stage.Scope != nil {
		node.AddField("output", stage.Scope.Output.String())
		if stage.Scope.Keys != nil {
			node.AddField("keys", stage.Scope.Keys.String())
		}
	}

	inputs := stage.Inputs()
	if len(inputs) == 1 {
		node.AddChild("input", DescribeStage(inputs[0], withSchemas))
	} else {
		for i, input := range inputs {
			node.AddChild(fmt.Sprintf("input_%d", i), DescribeStage(input, withSchemas))
		}
	}
	return node
}

// stageAttributes lists the stage parameters in a deterministic order. Both
// the describe surface and the resolution cache fingerprint build on it.
func stageAttributes(stage *Stage) []graph.Field {
	switch stage.StageType {
	case StageTypeSource:
		return []graph.Field{
			{Name: "source", Value: stage.Source.SourceName},
			{Name: "declared", Value: stage.Source.Declared.String()},
		}
	case StageTypeEach:
		fields := []graph.Field{
			{Name: "arguments", Value: nameList(stage.Each.Arguments)},
		}
		if stage.Each.Filter != nil {
			fields = append(fields, graph.Field{Name: "filter", Value: stage.Each.Filter.Op})
		}
		if stage.Each.Function != nil {
			fields = append(fields,
				graph.Field{Name: "function", Value: stage.Each.Function.Op},
				graph.Field{Name: "declared", Value: stage.Each.Function.Declared.String()},
			)
			if stage.Each.Function.Replace {
				fields = append(fields, graph.Field{Name: "replace", Value: "true"})
			}
		}
		return fields
	case StageTypeProject:
		return []graph.Field{{Name: "kept", Value: nameList(stage.Project.Kept)}}
	case StageTypeDiscard:
		return []graph.Field{{Name: "dropped", Value: nameList(stage.Discard.Dropped)}}
	case StageTypeRename:
		return []graph.Field{{Name: "renames", Value: pairList(stage.Rename.Pairs)}}
	case StageTypeCopy:
		return []graph.Field{{Name: "copies", Value: pairList(stage.Copy.Pairs)}}
	case StageTypeGroupBy:
		fields := []graph.Field{{Name: "group_keys", Value: nameList(stage.GroupBy.Keys)}}
		if len(stage.GroupBy.SortBy) > 0 {
			fields = append(fields, graph.Field{Name: "sort_by", Value: nameList(stage.GroupBy.SortBy)})
		}
		if stage.GroupBy.Reverse {
			fields = append(fields, graph.Field{Name: "reverse", Value: "true"})
		}
		return fields
	case StageTypeEvery:
		kind := "aggregator"
		if stage.Every.IsBuffer {
			kind = "buffer"
		}
		return []graph.Field{
			{Name: kind, Value: stage.Every.Op},
			{Name: "arguments", Value: nameList(stage.Every.Arguments)},
			{Name: "declared", Value: stage.Every.Declared.String()},
		}
	case StageTypeAggregate:
		fields := []graph.Field{{Name: "group_keys", Value: nameList(stage.Aggregate.Keys)}}
		for i, partial := range stage.Aggregate.Partials {
			fields = append(fields, graph.Field{
				Name:  fmt.Sprintf("partial_%d", i),
				Value: fmt.Sprintf("%s(%s) -> %s", partial.Op, strings.Join(partial.Arguments, ", "), partial.Declared),
			})
		}
		return fields
	case StageTypeSchemaFix:
		return []graph.Field{{Name: "declared", Value: stage.SchemaFix.Declared.String()}}
	case StageTypeJoin:
		fields := []graph.Field{{Name: "joiner", Value: stage.Join.Joiner.String()}}
		for i, keys := range stage.Join.BranchKeys {
			fields = append(fields, graph.Field{Name: fmt.Sprintf("keys_%d", i), Value: nameList(keys)})
		}
		fields = append(fields,
			graph.Field{Name: "declared", Value: stage.Join.Declared.String()},
			graph.Field{Name: "result_keys", Value: stage.Join.ResultKeys.String()},
		)
		return fields
	case StageTypeHashJoin:
		fields := []graph.Field{{Name: "joiner", Value: stage.HashJoin.Joiner.String()}}
		for i, keys := range stage.HashJoin.BranchKeys {
			fields = append(fields, graph.Field{Name: fmt.Sprintf("keys_%d", i), Value: nameList(keys)})
		}
		fields = append(fields, graph.Field{Name: "declared", Value: stage.HashJoin.Declared.String()})
		return fields
	case StageTypeSink:
		return []graph.Field{{Name: "sink", Value: stage.Sink.SinkName}}
	}
	panic("impossible, stage type switch bug")
}

func nameList(names []string) string {
	return fmt.Sprintf("[%s]", strings.Join(names, ", "))
}

func pairList(pairs []RenamePair) string {
	parts := make([]string, len(pairs))
	for i, pair := range pairs {
		parts[i] = fmt.Sprintf("%s -> %s", pair.From, pair.To)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}
