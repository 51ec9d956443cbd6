package sluice

import (
	"fmt"
	"strings"
)

// Field is a single named slot in a schema.
type Field struct {
	Name string
	Type Type
}

func (f Field) String() string {
	if f.Type == TypeUnspecified {
		return f.Name
	}
	return fmt.Sprintf("%s: %s", f.Name, f.Type)
}

// Schema is an ordered list of uniquely named fields. Schema values are
// immutable; every operation returns a fresh schema and leaves its inputs
// untouched.
type Schema struct {
	fields []Field
}

// NewSchema builds a schema from field names, keeping the given order.
// Blank and duplicate names are rejected.
func NewSchema(names ...string) (Schema, error) {
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name}
	}
	return NewSchemaOfFields(fields)
}

// NewSchemaOfFields builds a schema from typed fields, keeping the given order.
func NewSchemaOfFields(fields []Field) (Schema, error) {
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		if field.Name == "" {
			return Schema{}, Errorf(ErrorKindInvalidSchema, "blank field name")
		}
		if seen[field.Name] {
			return Schema{}, Errorf(ErrorKindInvalidSchema, "duplicate field name %q", field.Name)
		}
		seen[field.Name] = true
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return Schema{fields: out}, nil
}

// MustSchema is NewSchema for statically known field lists. It panics on error.
func MustSchema(names ...string) Schema {
	schema, err := NewSchema(names...)
	if err != nil {
		panic(err)
	}
	return schema
}

func (s Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the field list.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, field := range s.fields {
		out[i] = field.Name
	}
	return out
}

func (s Schema) Has(name string) bool {
	return s.indexOf(name) >= 0
}

func (s Schema) FieldByName(name string) (Field, bool) {
	if i := s.indexOf(name); i >= 0 {
		return s.fields[i], true
	}
	return Field{}, false
}

func (s Schema) indexOf(name string) int {
	for i := range s.fields {
		if s.fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Equal reports whether both schemas list the same fields in the same order,
// type tags included.
func (s Schema) Equal(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != other.fields[i] {
			return false
		}
	}
	return true
}

// SameNames reports whether both schemas list the same field names in the
// same order, ignoring type tags.
func (s Schema) SameNames(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i].Name != other.fields[i].Name {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, field := range s.fields {
		parts[i] = field.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

// Project returns the sub-schema of the named fields, in the order the names
// are given.
func (s Schema) Project(names ...string) (Schema, error) {
	out := make([]Field, 0, len(names))
	for _, name := range names {
		i := s.indexOf(name)
		if i < 0 {
			return Schema{}, Errorf(ErrorKindUnknownField, "unknown field %q in schema %s", name, s)
		}
		out = append(out, s.fields[i])
	}
	return NewSchemaOfFields(out)
}

// Difference returns the schema without the named fields, preserving the
// order of the remaining ones. Names not present are ignored.
func (s Schema) Difference(names ...string) Schema {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	out := make([]Field, 0, len(s.fields))
	for _, field := range s.fields {
		if !drop[field.Name] {
			out = append(out, field)
		}
	}
	return Schema{fields: out}
}

// Rename replaces each from[i] with to[i], keeping field positions. All from
// names must exist; the result must stay duplicate-free.
func (s Schema) Rename(from, to []string) (Schema, error) {
	if len(from) != len(to) {
		return Schema{}, Errorf(ErrorKindInvalidRename, "rename takes matching name lists, got %d and %d", len(from), len(to))
	}
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	renamed := make(map[int]bool, len(from))
	for i, name := range from {
		j := s.indexOf(name)
		if j < 0 {
			return Schema{}, Errorf(ErrorKindInvalidRename, "unknown field %q in schema %s", name, s)
		}
		if renamed[j] {
			return Schema{}, Errorf(ErrorKindInvalidRename, "field %q renamed twice", name)
		}
		renamed[j] = true
		if to[i] == "" {
			return Schema{}, Errorf(ErrorKindInvalidRename, "blank new name for field %q", name)
		}
		out[j].Name = to[i]
	}
	seen := make(map[string]bool, len(out))
	for _, field := range out {
		if seen[field.Name] {
			return Schema{}, Errorf(ErrorKindInvalidRename, "rename produces duplicate field %q", field.Name)
		}
		seen[field.Name] = true
	}
	return Schema{fields: out}, nil
}

// Append returns s extended with other's fields. Name collisions are
// rejected; use Dedup when collisions should be suffixed away instead.
func (s Schema) Append(other Schema) (Schema, error) {
	out := make([]Field, 0, len(s.fields)+len(other.fields))
	out = append(out, s.fields...)
	out = append(out, other.fields...)
	return NewSchemaOfFields(out)
}

// Dedup concatenates schemas left to right, renaming later duplicates by
// appending underscores until the name is unique. The first occurrence of a
// name keeps it.
func Dedup(schemas ...Schema) Schema {
	used := make(map[string]bool)
	var out []Field
	for _, schema := range schemas {
		for _, field := range schema.fields {
			name := field.Name
			for used[name] {
				name += "_"
			}
			used[name] = true
			out = append(out, Field{Name: name, Type: field.Type})
		}
	}
	return Schema{fields: out}
}
