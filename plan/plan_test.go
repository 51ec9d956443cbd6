package plan

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/sluicedata/sluice/graph"
	"github.com/sluicedata/sluice/sluice"
)

func stubSource(name string, schema sluice.Schema) *Stage {
	scope := SourceScope(schema)
	return &Stage{
		Name:      name,
		Scope:     &scope,
		StageType: StageTypeSource,
		Source:    &Source{SourceName: name, Declared: schema},
	}
}

func TestScopeCopy(t *testing.T) {
	keys := sluice.MustSchema("id")
	scope := Scope{
		Kind:   StageKindGroup,
		Inputs: []sluice.Schema{sluice.MustSchema("id", "name")},
		Output: sluice.MustSchema("id", "name"),
		Keys:   &keys,
	}

	copied := scope.Copy()
	copied.Inputs[0] = sluice.MustSchema("other")
	*copied.Keys = sluice.MustSchema("other")

	if got, want := scope.Inputs[0].String(), "[id, name]"; got != want {
		t.Errorf("original input schema = %s, want %s", got, want)
	}
	if got, want := scope.Keys.String(), "[id]"; got != want {
		t.Errorf("original keys = %s, want %s", got, want)
	}
}

func TestWalkVisitsSharedStagesOnce(t *testing.T) {
	source := stubSource("users", sluice.MustSchema("id", "name"))
	left := &Stage{
		StageType: StageTypeProject,
		Project:   &Project{Input: source, Kept: []string{"id"}},
	}
	right := &Stage{
		StageType: StageTypeProject,
		Project:   &Project{Input: source, Kept: []string{"name"}},
	}
	join := &Stage{
		StageType: StageTypeJoin,
		Join: &Join{
			Inputs:     []*Stage{left, right},
			BranchKeys: [][]string{{"id"}, {"name"}},
			Joiner:     Joiner{Kind: JoinerInner},
		},
	}

	var order []*Stage
	err := Walk([]*Stage{join}, func(stage *Stage) error {
		order = append(order, stage)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []*Stage{source, left, right, join}
	if !reflect.DeepEqual(order, want) {
		types := make([]string, len(order))
		for i, stage := range order {
			types[i] = stage.StageType.String()
		}
		t.Errorf("Walk order = %v, want source before projects before join", types)
	}
}

func TestWalkStopsOnError(t *testing.T) {
	source := stubSource("users", sluice.MustSchema("id"))
	sink := &Stage{
		StageType: StageTypeSink,
		Sink:      &Sink{SinkName: "out", Input: source},
	}

	calls := 0
	err := Walk([]*Stage{sink}, func(stage *Stage) error {
		calls++
		return fmt.Errorf("stop at %s", stage.StageType)
	})
	if err == nil {
		t.Fatal("Walk returned nil error")
	}
	if calls != 1 {
		t.Errorf("Walk kept visiting after error, calls = %d", calls)
	}
}

func TestDescribeStage(t *testing.T) {
	source := stubSource("users", sluice.MustSchema("id", "name"))
	project := &Stage{
		Name:      "slim",
		StageType: StageTypeProject,
		Project:   &Project{Input: source, Kept: []string{"id"}},
	}
	projectScope := Scope{
		Kind:   StageKindTransform,
		Inputs: []sluice.Schema{sluice.MustSchema("id", "name")},
		Output: sluice.MustSchema("id"),
	}
	project.Scope = &projectScope

	got := graph.Text(DescribeStage(project, true))
	want := strings.Join([]string{
		"project \"slim\"",
		"  kept: [id]",
		"  output: [id]",
		"  input:",
		"    source \"users\"",
		"      source: users",
		"      declared: [id, name]",
		"      output: [id, name]",
		"",
	}, "\n")
	if got != want {
		t.Errorf("DescribeStage text = %q, want %q", got, want)
	}
}

func TestJoinerString(t *testing.T) {
	tests := []struct {
		joiner Joiner
		want   string
	}{
		{joiner: Joiner{Kind: JoinerInner}, want: "inner"},
		{joiner: Joiner{Kind: JoinerOuter}, want: "outer"},
		{joiner: Joiner{Kind: JoinerMixed, Required: []bool{true, false}}, want: "mixed(required, optional)"},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			if got := tt.joiner.String(); got != tt.want {
				t.Errorf("Joiner.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

type countingResolver struct {
	calls int
}

func (r *countingResolver) ResolveScope(stage *Stage, inputs []Scope) (Scope, error) {
	r.calls++
	return Scope{Kind: StageKindTransform, Output: stage.Source.Declared}, nil
}

func (r *countingResolver) Info() ResolverInfo {
	return ResolverInfo{Name: "counting", ProtocolVersion: "1.2.3"}
}

func TestCachingResolver(t *testing.T) {
	inner := &countingResolver{}
	caching, err := NewCachingResolver(inner)
	if err != nil {
		t.Fatal(err)
	}

	stage := stubSource("users", sluice.MustSchema("id"))
	first, err := caching.ResolveScope(stage, nil)
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner resolver calls = %d, want 1", inner.calls)
	}

	// Ristretto admits writes asynchronously; a hit returns the cached scope,
	// a miss recomputes the identical value. Both must agree.
	second, err := caching.ResolveScope(stage, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Output.Equal(second.Output) {
		t.Errorf("cached scope output = %s, want %s", second.Output, first.Output)
	}
	if inner.calls > 2 {
		t.Errorf("inner resolver calls = %d, want at most 2", inner.calls)
	}

	if got, want := caching.Info().Name, "counting"; got != want {
		t.Errorf("Info().Name = %q, want %q", got, want)
	}
}

func TestFingerprintSeparatesShapes(t *testing.T) {
	a := stubSource("users", sluice.MustSchema("id"))
	b := stubSource("users", sluice.MustSchema("id", "name"))

	if fingerprint(a, nil) == fingerprint(b, nil) {
		t.Errorf("fingerprints collide for different declared schemas")
	}

	inputs1 := []Scope{{Kind: StageKindTransform, Output: sluice.MustSchema("id")}}
	inputs2 := []Scope{{Kind: StageKindGroup, Output: sluice.MustSchema("id")}}
	if fingerprint(a, inputs1) == fingerprint(a, inputs2) {
		t.Errorf("fingerprints collide for different input scope kinds")
	}
}

type versionedResolver struct {
	version string
}

func (r versionedResolver) ResolveScope(stage *Stage, inputs []Scope) (Scope, error) {
	return Scope{}, nil
}

func (r versionedResolver) Info() ResolverInfo {
	return ResolverInfo{Name: "versioned", ProtocolVersion: r.version}
}

func TestCheckProtocol(t *testing.T) {
	tests := []struct {
		name     string
		resolver Resolver
		wantErr  bool
	}{
		{
			name:     "supported version",
			resolver: versionedResolver{version: "1.0.0"},
		},
		{
			name:     "newer minor",
			resolver: versionedResolver{version: "1.7.2"},
		},
		{
			name:     "next major",
			resolver: versionedResolver{version: "2.0.0"},
			wantErr:  true,
		},
		{
			name:     "garbage version",
			resolver: versionedResolver{version: "not-a-version"},
			wantErr:  true,
		},
		{
			name:     "unversioned",
			resolver: versionedResolver{},
		},
		{
			name: "no info at all",
			resolver: ResolverFunc(func(stage *Stage, inputs []Scope) (Scope, error) {
				return Scope{}, nil
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckProtocol(tt.resolver)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckProtocol() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveWrapsPlannerFailure(t *testing.T) {
	failing := ResolverFunc(func(stage *Stage, inputs []Scope) (Scope, error) {
		return Scope{}, sluice.Errorf(sluice.ErrorKindUnknownField, "unknown field %q", "age")
	})

	stage := stubSource("users", sluice.MustSchema("id"))
	_, err := Resolve(failing, stage, nil)
	if err == nil {
		t.Fatal("Resolve returned nil error")
	}
	if got := sluice.KindOf(err); got != sluice.ErrorKindScopeResolution {
		t.Errorf("KindOf = %v, want %v", got, sluice.ErrorKindScopeResolution)
	}
	if !sluice.IsKind(err, sluice.ErrorKindUnknownField) {
		t.Errorf("planner cause lost: %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field \"age\"") {
		t.Errorf("planner message lost: %v", err)
	}
}
