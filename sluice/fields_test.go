package sluice

import (
	"fmt"
	"reflect"
	"testing"
)

func TestNewSchema(t *testing.T) {
	tests := []struct {
		names    []string
		want     []string
		wantKind ErrorKind
	}{
		{
			names: []string{"user_id", "name", "age"},
			want:  []string{"user_id", "name", "age"},
		},
		{
			names: []string{},
			want:  []string{},
		},
		{
			names:    []string{"a", ""},
			wantKind: ErrorKindInvalidSchema,
		},
		{
			names:    []string{"a", "b", "a"},
			wantKind: ErrorKindInvalidSchema,
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			schema, err := NewSchema(tt.names...)
			if tt.wantKind != ErrorKindUnspecified {
				if KindOf(err) != tt.wantKind {
					t.Errorf("NewSchema(%v) error kind = %v, want %v", tt.names, KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSchema(%v) error: %v", tt.names, err)
			}
			if got := schema.Names(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NewSchema(%v).Names() = %v, want %v", tt.names, got, tt.want)
			}
		})
	}
}

func TestSchemaProject(t *testing.T) {
	schema := MustSchema("user_id", "name", "age")

	tests := []struct {
		names    []string
		want     []string
		wantKind ErrorKind
	}{
		{
			names: []string{"name"},
			want:  []string{"name"},
		},
		{
			names: []string{"age", "user_id"},
			want:  []string{"age", "user_id"},
		},
		{
			names:    []string{"name", "height"},
			wantKind: ErrorKindUnknownField,
		},
		{
			names:    []string{"name", "name"},
			wantKind: ErrorKindInvalidSchema,
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			got, err := schema.Project(tt.names...)
			if tt.wantKind != ErrorKindUnspecified {
				if KindOf(err) != tt.wantKind {
					t.Errorf("Project(%v) error kind = %v, want %v", tt.names, KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Project(%v) error: %v", tt.names, err)
			}
			if !reflect.DeepEqual(got.Names(), tt.want) {
				t.Errorf("Project(%v) = %v, want %v", tt.names, got.Names(), tt.want)
			}
		})
	}
}

func TestSchemaDifference(t *testing.T) {
	schema := MustSchema("user_id", "name", "age")

	tests := []struct {
		names []string
		want  []string
	}{
		{
			names: []string{"name"},
			want:  []string{"user_id", "age"},
		},
		{
			names: []string{"height"},
			want:  []string{"user_id", "name", "age"},
		},
		{
			names: []string{"age", "user_id", "missing"},
			want:  []string{"name"},
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			if got := schema.Difference(tt.names...).Names(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Difference(%v) = %v, want %v", tt.names, got, tt.want)
			}
		})
	}
}

func TestSchemaRename(t *testing.T) {
	schema := MustSchema("user_id", "name", "age")

	tests := []struct {
		from     []string
		to       []string
		want     []string
		wantKind ErrorKind
	}{
		{
			from: []string{"name"},
			to:   []string{"full_name"},
			want: []string{"user_id", "full_name", "age"},
		},
		{
			from: []string{"user_id", "age"},
			to:   []string{"age", "user_id"},
			want: []string{"age", "name", "user_id"},
		},
		{
			from:     []string{"name", "age"},
			to:       []string{"n"},
			wantKind: ErrorKindInvalidRename,
		},
		{
			from:     []string{"height"},
			to:       []string{"h"},
			wantKind: ErrorKindInvalidRename,
		},
		{
			from:     []string{"name"},
			to:       []string{"age"},
			wantKind: ErrorKindInvalidRename,
		},
		{
			from:     []string{"name"},
			to:       []string{""},
			wantKind: ErrorKindInvalidRename,
		},
		{
			from:     []string{"name", "name"},
			to:       []string{"a", "b"},
			wantKind: ErrorKindInvalidRename,
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			got, err := schema.Rename(tt.from, tt.to)
			if tt.wantKind != ErrorKindUnspecified {
				if KindOf(err) != tt.wantKind {
					t.Errorf("Rename(%v, %v) error kind = %v, want %v", tt.from, tt.to, KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Rename(%v, %v) error: %v", tt.from, tt.to, err)
			}
			if !reflect.DeepEqual(got.Names(), tt.want) {
				t.Errorf("Rename(%v, %v) = %v, want %v", tt.from, tt.to, got.Names(), tt.want)
			}
		})
	}
}

func TestSchemaAppend(t *testing.T) {
	left := MustSchema("a", "b")

	got, err := left.Append(MustSchema("c"))
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got.Names(), want) {
		t.Errorf("Append = %v, want %v", got.Names(), want)
	}

	if _, err := left.Append(MustSchema("b")); KindOf(err) != ErrorKindInvalidSchema {
		t.Errorf("Append with collision error kind = %v, want %v", KindOf(err), ErrorKindInvalidSchema)
	}
}

func TestDedup(t *testing.T) {
	tests := []struct {
		schemas []Schema
		want    []string
	}{
		{
			schemas: []Schema{MustSchema("a", "b"), MustSchema("a", "c"), MustSchema("a", "d")},
			want:    []string{"a", "b", "a_", "c", "a__", "d"},
		},
		{
			schemas: []Schema{MustSchema("id", "name"), MustSchema("id", "age")},
			want:    []string{"id", "name", "id_", "age"},
		},
		{
			schemas: []Schema{MustSchema("x", "y")},
			want:    []string{"x", "y"},
		},
		{
			schemas: nil,
			want:    []string{},
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			if got := Dedup(tt.schemas...).Names(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Dedup(%v) = %v, want %v", tt.schemas, got, tt.want)
			}
		})
	}
}

func TestDedupKeepsTypes(t *testing.T) {
	left, err := NewSchemaOfFields([]Field{{Name: "id", Type: TypeInt}})
	if err != nil {
		t.Fatal(err)
	}
	right, err := NewSchemaOfFields([]Field{{Name: "id", Type: TypeString}})
	if err != nil {
		t.Fatal(err)
	}

	got := Dedup(left, right).Fields()
	want := []Field{{Name: "id", Type: TypeInt}, {Name: "id_", Type: TypeString}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dedup fields = %v, want %v", got, want)
	}
}

func TestSchemaOperationsDontMutate(t *testing.T) {
	schema := MustSchema("a", "b", "c")
	want := []string{"a", "b", "c"}

	schema.Difference("b")
	if _, err := schema.Project("c", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := schema.Rename([]string{"a"}, []string{"z"}); err != nil {
		t.Fatal(err)
	}
	if _, err := schema.Append(MustSchema("d")); err != nil {
		t.Fatal(err)
	}
	Dedup(schema, schema)

	if got := schema.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("schema mutated to %v, want %v", got, want)
	}

	fields := schema.Fields()
	fields[0].Name = "hijacked"
	if got := schema.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("schema mutated through Fields() to %v, want %v", got, want)
	}
}
