package pipeline

import (
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"

	"github.com/sluicedata/sluice/plan"
)

func expectText(t *testing.T, expected, got string) {
	if expected == got {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(got),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  2,
	})
	t.Errorf("describe output differs:\n%s", diff)
}

func TestDescribeFlow(t *testing.T) {
	flow := testFlow(t, "daily")
	events := sourceWith(t, flow, "events", "user_id", "url")
	assert.Nil(t, events.Project("user_id"))
	assert.Nil(t, flow.Sink(events, "out", &recordingSink{}))

	expected := `flow daily
  out:
    sink "out"
      sink: memory
      output: [user_id]
      input:
        project "project_0"
          kept: [user_id]
          output: [user_id]
          input:
            source "events"
              source: static
              declared: [user_id, url]
              output: [user_id, url]
`
	expectText(t, expected, Describe(flow))
}

func TestDescribeGroupedAssembly(t *testing.T) {
	flow := testFlow(t, "daily")
	readings := sourceWith(t, flow, "readings", "city", "temp")
	assert.Nil(t, readings.GroupBy(GroupBySpec{Name: "by_city", Keys: []string{"city"}}, nil))

	expected := `group_by "by_city"
  group_keys: [city]
  output: [city, temp]
  keys: [city]
  input:
    source "readings"
      source: static
      declared: [city, temp]
      output: [city, temp]
`
	expectText(t, expected, Describe(readings))
}

func TestDescribeJoin(t *testing.T) {
	flow := testFlow(t, "daily")
	sourceWith(t, flow, "users", "id", "name")
	sourceWith(t, flow, "ages", "id", "age")

	joined, err := flow.Join(JoinSpec{
		Name:     "by_id",
		Branches: []string{"users", "ages"},
		Keys:     KeySpec{Uniform: []string{"id"}},
		Joiner:   plan.Joiner{Kind: plan.JoinerInner},
	}, nil)
	assert.Nil(t, err)

	expected := `join "by_id"
  joiner: inner
  keys_0: [id]
  keys_1: [id]
  declared: [id, name, id_, age]
  result_keys: [id]
  output: [id, name, id_, age]
  keys: [id]
  input_0:
    source "users"
      source: static
      declared: [id, name]
      output: [id, name]
  input_1:
    source "ages"
      source: static
      declared: [id, age]
      output: [id, age]
`
	expectText(t, expected, Describe(joined))
}

func TestDescribeCascade(t *testing.T) {
	registry := NewRegistry()
	nightly, err := registry.NewCascade("nightly")
	assert.Nil(t, err)
	sessions, err := nightly.NewFlow("sessions")
	assert.Nil(t, err)
	events := sourceWith(t, sessions, "events", "user_id")
	assert.Nil(t, sessions.Sink(events, "out", &recordingSink{}))

	got := Describe(nightly)
	assert.True(t, strings.HasPrefix(got, "cascade nightly\n  sessions:\n    flow sessions\n"))
	assert.Contains(t, got, `source "events"`)
}
