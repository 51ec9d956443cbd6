package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tidwall/btree"

	"github.com/sluicedata/sluice/graph"
	"github.com/sluicedata/sluice/plan"
	"github.com/sluicedata/sluice/planner"
	"github.com/sluicedata/sluice/sluice"
)

// SourceDescriptor is the schema seam to an external input. Only metadata
// crosses it, never rows.
type SourceDescriptor interface {
	// Name identifies the descriptor kind, e.g. "static" or "parquet".
	Name() string
	DeclaredSchema() (sluice.Schema, error)
}

// SinkDescriptor accepts (name, schema) registrations for finished outputs.
type SinkDescriptor interface {
	Name() string
	Register(name string, schema sluice.Schema) error
}

type flowOptions struct {
	resolver   plan.Resolver
	scopeCache bool
}

type FlowOption func(*flowOptions)

// WithResolver swaps the reference resolver for the external engine's own
// field-resolution implementation.
func WithResolver(resolver plan.Resolver) FlowOption {
	return func(o *flowOptions) {
		o.resolver = resolver
	}
}

// WithScopeCache memoizes scope resolution. Worth it when the resolver
// crosses a process boundary; the reference resolver is cheap without it.
func WithScopeCache() FlowOption {
	return func(o *flowOptions) {
		o.scopeCache = true
	}
}

// Flow is one connected dataflow from sources to sinks. All construction
// goes through a single writer; a Flow must not be shared between
// goroutines.
type Flow struct {
	node     *Node
	resolver plan.Resolver

	assemblies []*Assembly
	sources    []SourceBinding
	sinks      btree.Map[string, SinkBinding]
	ordinals   map[string]int
	finished   bool
}

// SourceBinding ties a source assembly to the descriptor that declared its
// schema.
type SourceBinding struct {
	Name       string
	Descriptor SourceDescriptor
	Schema     sluice.Schema
	Stage      *plan.Stage
}

// SinkBinding ties a bound sink to its registered schema and tail stage.
type SinkBinding struct {
	Name       string
	Descriptor SinkDescriptor
	Schema     sluice.Schema
	Stage      *plan.Stage
}

// NewFlow opens a free-standing flow, outside any cascade.
func NewFlow(name string, options ...FlowOption) (*Flow, error) {
	return newFlow(name, options)
}

func newFlow(name string, options []FlowOption) (*Flow, error) {
	if name == "" {
		return nil, sluice.Errorf(sluice.ErrorKindAmbiguousNodeName, "flow name must not be empty")
	}
	opts := flowOptions{resolver: planner.New()}
	for _, option := range options {
		option(&opts)
	}
	if opts.scopeCache {
		caching, err := plan.NewCachingResolver(opts.resolver)
		if err != nil {
			return nil, err
		}
		opts.resolver = caching
	}
	if err := plan.CheckProtocol(opts.resolver); err != nil {
		return nil, errors.Wrapf(err, "couldn't use resolver for flow %q", name)
	}

	flow := &Flow{
		resolver: opts.resolver,
		ordinals: map[string]int{},
	}
	flow.node = newNode(name, flow)
	return flow, nil
}

func (f *Flow) Name() string { return f.node.Name() }

func (f *Flow) Node() *Node { return f.node }

// nextName names an anonymous flow-level construct, e.g. join_0.
func (f *Flow) nextName(kind string) string {
	ordinal := f.ordinals[kind]
	f.ordinals[kind]++
	return fmt.Sprintf("%s_%d", kind, ordinal)
}

func (f *Flow) usable() error {
	if f.finished {
		return errors.Errorf("flow %q is already finished", f.node.QualifiedName())
	}
	return nil
}

// newAssembly opens an assembly node under parent and tracks it for the
// dangling check at Finish.
func (f *Flow) newAssembly(parent *Node, name string) (*Assembly, error) {
	assembly := &Assembly{flow: f, ordinals: map[string]int{}}
	assembly.node = newNode(name, assembly)
	if err := parent.addChild(assembly.node); err != nil {
		return nil, err
	}
	f.assemblies = append(f.assemblies, assembly)
	return assembly, nil
}

// Source opens a new assembly reading from the descriptor. The descriptor is
// consulted once, for its declared schema.
func (f *Flow) Source(name string, descriptor SourceDescriptor) (*Assembly, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	if name == "" {
		name = f.nextName("source")
	}
	declared, err := descriptor.DeclaredSchema()
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read declared schema of source %q", name)
	}
	assembly, err := f.newAssembly(f.node, name)
	if err != nil {
		return nil, err
	}
	stage := &plan.Stage{
		Name:      name,
		StageType: plan.StageTypeSource,
		Source: &plan.Source{
			SourceName: descriptor.Name(),
			Declared:   declared,
		},
	}
	if err := assembly.apply(stage, nil); err != nil {
		return nil, err
	}
	assembly.head = stage
	f.sources = append(f.sources, SourceBinding{
		Name:       name,
		Descriptor: descriptor,
		Schema:     declared,
		Stage:      stage,
	})
	return assembly, nil
}

// Sink closes the assembly over the descriptor and registers the final
// schema with it. The assembly accepts no further operations.
func (f *Flow) Sink(assembly *Assembly, name string, descriptor SinkDescriptor) error {
	if err := f.usable(); err != nil {
		return err
	}
	if assembly.flow != f {
		return errors.Errorf("assembly %q belongs to flow %q, not %q", assembly.node.QualifiedName(), assembly.flow.node.Name(), f.node.Name())
	}
	if err := assembly.usable(); err != nil {
		return err
	}
	if name == "" {
		name = f.nextName("sink")
	}
	if _, ok := f.sinks.Get(name); ok {
		return sluice.Errorf(sluice.ErrorKindAmbiguousNodeName, "a sink named %q is already bound", name)
	}

	stage := &plan.Stage{
		Name:      name,
		StageType: plan.StageTypeSink,
		Sink: &plan.Sink{
			SinkName: descriptor.Name(),
			Input:    assembly.tail,
		},
	}
	if err := assembly.apply(stage, []plan.Scope{assembly.scope}); err != nil {
		return err
	}
	assembly.consumed = true
	assembly.consumedBy = "sink " + name

	schema := assembly.scope.Output
	if err := descriptor.Register(name, schema); err != nil {
		return errors.Wrapf(err, "couldn't register schema with sink %q", name)
	}
	f.sinks.Set(name, SinkBinding{
		Name:       name,
		Descriptor: descriptor,
		Schema:     schema,
		Stage:      stage,
	})
	return nil
}

// SinkSchemas reports the final output shape of every bound sink, for
// tooling that needs shapes without running anything.
func (f *Flow) SinkSchemas() map[string]sluice.Schema {
	out := make(map[string]sluice.Schema, f.sinks.Len())
	f.sinks.Scan(func(name string, binding SinkBinding) bool {
		out[name] = binding.Schema
		return true
	})
	return out
}

// SinkBindings returns the bound sinks ordered by name.
func (f *Flow) SinkBindings() []SinkBinding {
	out := make([]SinkBinding, 0, f.sinks.Len())
	f.sinks.Scan(func(_ string, binding SinkBinding) bool {
		out = append(out, binding)
		return true
	})
	return out
}

// Sources returns the source bindings in creation order.
func (f *Flow) Sources() []SourceBinding {
	out := make([]SourceBinding, len(f.sources))
	copy(out, f.sources)
	return out
}

func (f *Flow) Visualize() *graph.Node {
	node := graph.NewNode("flow " + f.node.Name())
	f.sinks.Scan(func(name string, binding SinkBinding) bool {
		node.AddChild(name, plan.DescribeStage(binding.Stage, true))
		return true
	})
	return node
}
