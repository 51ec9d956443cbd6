package sluice

import (
	"fmt"
	"strings"
)

// Type is an optional tag describing the values a field carries. Fields with
// no known value type use TypeUnspecified.
type Type int

const (
	TypeUnspecified Type = iota
	TypeInt
	TypeFloat
	TypeBoolean
	TypeString
	TypeTime
	TypeBytes
)

func (t Type) String() string {
	switch t {
	case TypeUnspecified:
		return "Unspecified"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBoolean:
		return "Boolean"
	case TypeString:
		return "String"
	case TypeTime:
		return "Time"
	case TypeBytes:
		return "Bytes"
	}
	panic("impossible, type switch bug")
}

// ParseType reads a type tag name as written in pipefiles and manifests.
// Matching is case-insensitive; the empty string is the unspecified tag.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "", "unspecified":
		return TypeUnspecified, nil
	case "int":
		return TypeInt, nil
	case "float":
		return TypeFloat, nil
	case "boolean":
		return TypeBoolean, nil
	case "string":
		return TypeString, nil
	case "time":
		return TypeTime, nil
	case "bytes":
		return TypeBytes, nil
	}
	return TypeUnspecified, fmt.Errorf("unknown field type %q", name)
}

// Fits reports whether a value tagged t can occupy a slot declared as other.
// An unspecified tag on either side matches anything.
func (t Type) Fits(other Type) bool {
	if t == TypeUnspecified || other == TypeUnspecified {
		return true
	}
	return t == other
}

// TypeSum merges two inferred tags. Disagreeing tags widen to unspecified.
func TypeSum(t1, t2 Type) Type {
	if t1 == t2 {
		return t1
	}
	return TypeUnspecified
}
