// Package pipefile builds pipelines from declarative YAML definitions.
//
// A pipefile names one flow, its sources with their stage chains, combining
// stages over named branches, and the sinks that close the assemblies:
//
//	flow: daily
//	sources:
//	    - name: events
//	      static:
//	          fields:
//	              - name: user_id
//	                type: int
//	              - name: url
//	      ops:
//	          - project: [user_id]
//	sinks:
//	    - name: out
//	      of: events
//	      memory: true
//
// Decoding is strict: unknown YAML keys fail the parse. Build errors carry
// the position of the failing stage in the file.
package pipefile

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sluicedata/sluice/pipeline"
	"github.com/sluicedata/sluice/plan"
	"github.com/sluicedata/sluice/sinks"
	"github.com/sluicedata/sluice/sluice"
	"github.com/sluicedata/sluice/sources"
)

// Options carries the environment a pipefile builds against.
type Options struct {
	// Databases resolves the connection names postgres sources refer to.
	Databases map[string]sources.PostgresConfig
	// FlowOptions apply to the flow under construction, e.g. a custom
	// resolver or the scope cache.
	FlowOptions []pipeline.FlowOption
}

// Build is a pipeline constructed from a pipefile.
type Build struct {
	// Registry and Cascade are set when the pipefile names a cascade.
	Registry *pipeline.Registry
	Cascade  *pipeline.Cascade
	Flow     *pipeline.Flow
	// Memory collects the registrations of every memory sink in the file.
	Memory *sinks.Memory
}

// Load reads and builds the pipefile at path.
func Load(path string, opts Options) (*Build, error) {
	in, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read pipefile")
	}
	return Parse(in, opts)
}

// Parse builds the pipeline a pipefile describes. The returned flow is fully
// composed but not finished; call Flow.Finish to validate and hand it off.
func Parse(in []byte, opts Options) (*Build, error) {
	dec := yaml.NewDecoder(bytes.NewReader(in))
	dec.KnownFields(true)

	var def fileDef
	if err := dec.Decode(&def); err == io.EOF {
		return nil, errors.New("pipefile is empty")
	} else if err != nil {
		return nil, errors.Wrap(err, "couldn't decode pipefile")
	}

	build := &Build{Memory: sinks.NewMemory()}
	if def.Cascade != "" {
		build.Registry = pipeline.NewRegistry()
		cascade, err := build.Registry.NewCascade(def.Cascade)
		if err != nil {
			return nil, err
		}
		build.Cascade = cascade
		flow, err := cascade.NewFlow(def.Flow, opts.FlowOptions...)
		if err != nil {
			return nil, err
		}
		build.Flow = flow
	} else {
		flow, err := pipeline.NewFlow(def.Flow, opts.FlowOptions...)
		if err != nil {
			return nil, err
		}
		build.Flow = flow
	}

	l := &loader{
		opts:       opts,
		build:      build,
		assemblies: map[string]*pipeline.Assembly{},
	}
	for i, source := range def.Sources {
		if err := l.buildSource(source); err != nil {
			return nil, errors.Wrapf(err, "sources[%d]", i)
		}
	}
	for i, combine := range def.Combine {
		if err := l.buildCombine(combine); err != nil {
			return nil, errors.Wrapf(err, "combine[%d]", i)
		}
	}
	for i, sink := range def.Sinks {
		if err := l.buildSink(sink); err != nil {
			return nil, errors.Wrapf(err, "sinks[%d]", i)
		}
	}
	return build, nil
}

type loader struct {
	opts       Options
	build      *Build
	assemblies map[string]*pipeline.Assembly
}

// track registers a named assembly for later lookup by combine and sink
// entries. Pipefiles address assemblies by flat name, so the name must be
// unique across the whole file even where the tree would allow a duplicate
// at another depth.
func (l *loader) track(a *pipeline.Assembly) error {
	if _, ok := l.assemblies[a.Name()]; ok {
		return errors.Errorf("assembly %q is defined twice", a.Name())
	}
	l.assemblies[a.Name()] = a
	return nil
}

func (l *loader) lookup(name string) (*pipeline.Assembly, error) {
	a, ok := l.assemblies[name]
	if !ok {
		return nil, errors.Errorf("unknown assembly %q", name)
	}
	return a, nil
}

func (l *loader) buildSource(def sourceDef) error {
	descriptor, err := l.sourceDescriptor(def)
	if err != nil {
		return err
	}
	a, err := l.build.Flow.Source(def.Name, descriptor)
	if err != nil {
		return err
	}
	if err := l.track(a); err != nil {
		return err
	}
	return l.applyOps(a, def.Ops)
}

func (l *loader) sourceDescriptor(def sourceDef) (pipeline.SourceDescriptor, error) {
	set := 0
	for _, present := range []bool{def.Static != nil, def.JSON != nil, def.Parquet != nil, def.Postgres != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, errors.Errorf("source sets %d descriptors, want exactly one of static, json, parquet, postgres", set)
	}

	switch {
	case def.Static != nil:
		schema, err := schemaOf(def.Static.Fields)
		if err != nil {
			return nil, err
		}
		return sources.NewStatic(schema), nil
	case def.JSON != nil:
		return sources.JSONFile{Path: def.JSON.Path, SampleSize: def.JSON.Sample}, nil
	case def.Parquet != nil:
		return sources.ParquetFile{Path: def.Parquet.Path}, nil
	default:
		cfg, ok := l.opts.Databases[def.Postgres.Database]
		if !ok {
			return nil, errors.Errorf("unknown database %q, no such connection was provided", def.Postgres.Database)
		}
		return sources.Postgres{Config: cfg, Table: def.Postgres.Table}, nil
	}
}

func (l *loader) applyOps(a *pipeline.Assembly, ops []opDef) error {
	for i, op := range ops {
		if err := l.applyOp(a, op); err != nil {
			return errors.Wrapf(err, "ops[%d]", i)
		}
	}
	return nil
}

func (l *loader) applyOp(a *pipeline.Assembly, def opDef) error {
	set := 0
	for _, present := range []bool{
		def.Project != nil, def.Discard != nil, def.Rename != nil,
		def.Copy != nil, def.Each != nil, def.Branch != nil, def.GroupBy != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return errors.Errorf("op sets %d operations, want exactly one", set)
	}

	switch {
	case def.Project != nil:
		return a.Project(def.Project...)
	case def.Discard != nil:
		return a.Discard(def.Discard...)
	case def.Rename != nil:
		return a.Rename(def.Rename)
	case def.Copy != nil:
		return a.Copy(def.Copy)
	case def.Each != nil:
		spec := pipeline.EachSpec{Name: def.Each.Name, Arguments: def.Each.Args}
		if def.Each.Filter != "" {
			spec.Filter = &pipeline.FilterSpec{Op: def.Each.Filter}
		}
		if def.Each.Function != nil {
			declared, err := schemaOf(def.Each.Function.Declared)
			if err != nil {
				return err
			}
			spec.Function = &pipeline.FunctionSpec{
				Op:       def.Each.Function.Op,
				Declared: declared,
				Replace:  def.Each.Function.Replace,
			}
		}
		return a.Each(spec)
	case def.Branch != nil:
		branch, err := a.Branch(def.Branch.Name, nil)
		if err != nil {
			return err
		}
		if err := l.track(branch); err != nil {
			return err
		}
		if err := l.applyOps(branch, def.Branch.Ops); err != nil {
			return errors.Wrapf(err, "branch %q", branch.Name())
		}
		return nil
	default:
		return a.GroupBy(pipeline.GroupBySpec{
			Name:    def.GroupBy.Name,
			Keys:    def.GroupBy.Keys,
			SortBy:  def.GroupBy.SortBy,
			Reverse: def.GroupBy.Reverse,
		}, aggregationBody(def.GroupBy.Aggregators, def.GroupBy.Buffers))
	}
}

func (l *loader) buildCombine(def combineDef) error {
	set := 0
	for _, present := range []bool{def.Join != nil, def.HashJoin != nil, def.Union != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return errors.Errorf("combine entry sets %d operations, want exactly one of join, hash_join, union", set)
	}

	switch {
	case def.Join != nil:
		result, err := l.buildJoin(*def.Join, false)
		if err != nil {
			return err
		}
		if err := l.track(result); err != nil {
			return err
		}
		return l.applyOps(result, def.Join.Ops)
	case def.HashJoin != nil:
		result, err := l.buildJoin(*def.HashJoin, true)
		if err != nil {
			return err
		}
		if err := l.track(result); err != nil {
			return err
		}
		return l.applyOps(result, def.HashJoin.Ops)
	default:
		result, err := l.build.Flow.Union(pipeline.UnionSpec{
			Name:     def.Union.Name,
			Branches: def.Union.Branches,
			Keys:     def.Union.Keys,
			SortBy:   def.Union.SortBy,
			Reverse:  def.Union.Reverse,
		}, aggregationBody(def.Union.Aggregators, def.Union.Buffers))
		if err != nil {
			return err
		}
		if err := l.track(result); err != nil {
			return err
		}
		return l.applyOps(result, def.Union.Ops)
	}
}

func (l *loader) buildJoin(def joinDef, hash bool) (*pipeline.Assembly, error) {
	joiner, err := parseJoiner(def.Joiner, def.Required)
	if err != nil {
		return nil, err
	}
	declared, err := schemaOf(def.Declared)
	if err != nil {
		return nil, err
	}
	keys := pipeline.KeySpec{Uniform: def.Keys, PerBranch: def.KeysByBranch}
	body := aggregationBody(def.Aggregators, def.Buffers)

	if hash {
		return l.build.Flow.HashJoin(pipeline.HashJoinSpec{
			Name:     def.Name,
			Branches: def.Branches,
			Keys:     keys,
			Joiner:   joiner,
			Declared: declared,
		}, body)
	}
	return l.build.Flow.Join(pipeline.JoinSpec{
		Name:     def.Name,
		Branches: def.Branches,
		Keys:     keys,
		Joiner:   joiner,
		Declared: declared,
	}, body)
}

func (l *loader) buildSink(def sinkDef) error {
	if def.Of == "" {
		return errors.New("sink needs an assembly to bind, set of")
	}
	a, err := l.lookup(def.Of)
	if err != nil {
		return err
	}

	set := 0
	for _, present := range []bool{def.Memory, def.Manifest != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return errors.Errorf("sink sets %d descriptors, want exactly one of memory, manifest", set)
	}

	var descriptor pipeline.SinkDescriptor
	if def.Memory {
		descriptor = l.build.Memory
	} else {
		descriptor = sinks.Manifest{Path: def.Manifest.Path}
	}
	return l.build.Flow.Sink(a, def.Name, descriptor)
}

// aggregationBody turns the aggregator and buffer lists into a grouping
// block body. Both empty means no body, which leaves the bare grouping.
func aggregationBody(aggregators, buffers []aggregatorDef) func(*pipeline.Aggregations) error {
	if len(aggregators) == 0 && len(buffers) == 0 {
		return nil
	}
	return func(g *pipeline.Aggregations) error {
		for i, def := range aggregators {
			err := g.Aggregator(pipeline.AggregatorSpec{
				Name:      def.Name,
				Op:        def.Op,
				Arguments: def.Args,
				As:        def.As,
			})
			if err != nil {
				return errors.Wrapf(err, "aggregators[%d]", i)
			}
		}
		for i, def := range buffers {
			err := g.Buffer(pipeline.BufferSpec{
				Name:      def.Name,
				Op:        def.Op,
				Arguments: def.Args,
				As:        def.As,
			})
			if err != nil {
				return errors.Wrapf(err, "buffers[%d]", i)
			}
		}
		return nil
	}
}

func parseJoiner(joiner string, required []bool) (plan.Joiner, error) {
	if len(required) > 0 {
		if joiner != "" && joiner != "mixed" {
			return plan.Joiner{}, errors.Errorf("required flags need the mixed joiner, got %q", joiner)
		}
		return plan.Joiner{Kind: plan.JoinerMixed, Required: required}, nil
	}

	switch joiner {
	case "", "inner":
		return plan.Joiner{Kind: plan.JoinerInner}, nil
	case "left":
		return plan.Joiner{Kind: plan.JoinerLeft}, nil
	case "right":
		return plan.Joiner{Kind: plan.JoinerRight}, nil
	case "outer":
		return plan.Joiner{Kind: plan.JoinerOuter}, nil
	case "mixed":
		return plan.Joiner{Kind: plan.JoinerMixed}, nil
	default:
		return plan.Joiner{}, errors.Errorf("unknown joiner %q", joiner)
	}
}

func schemaOf(fields []fieldDef) (sluice.Schema, error) {
	if len(fields) == 0 {
		return sluice.Schema{}, nil
	}
	out := make([]sluice.Field, len(fields))
	for i, def := range fields {
		t, err := sluice.ParseType(def.Type)
		if err != nil {
			return sluice.Schema{}, err
		}
		out[i] = sluice.Field{Name: def.Name, Type: t}
	}
	return sluice.NewSchemaOfFields(out)
}
