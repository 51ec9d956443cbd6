package sluice

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline construction failures.
type ErrorKind int

const (
	ErrorKindUnspecified ErrorKind = iota
	// ErrorKindInvalidSchema flags schemas built with blank or duplicate field names.
	ErrorKindInvalidSchema
	// ErrorKindUnknownField flags references to fields absent from the schema in scope.
	ErrorKindUnknownField
	// ErrorKindInvalidRename flags renames with mismatched name lists or colliding results.
	ErrorKindInvalidRename
	// ErrorKindAmbiguousNodeName flags duplicate child names and ambiguous subtree lookups.
	ErrorKindAmbiguousNodeName
	// ErrorKindAmbiguousOperationKind flags stage specs that set both or neither operation variant.
	ErrorKindAmbiguousOperationKind
	// ErrorKindMissingJoinKey flags joins and unions with no usable key for some branch.
	ErrorKindMissingJoinKey
	// ErrorKindInvalidJoinerSpec flags joiner selections that do not fit the branch list.
	ErrorKindInvalidJoinerSpec
	// ErrorKindUnsupportedAggregation flags aggregation blocks attached where none may follow.
	ErrorKindUnsupportedAggregation
	// ErrorKindBufferExclusivityViolation flags mixing a buffer with aggregators in one block.
	ErrorKindBufferExclusivityViolation
	// ErrorKindGroupingKeyMismatch flags composite rewrites over branches whose keys disagree.
	ErrorKindGroupingKeyMismatch
	// ErrorKindSchemaMismatch flags key fields with incompatible shapes across branches.
	ErrorKindSchemaMismatch
	// ErrorKindScopeResolution flags planner failures while resolving a stage scope.
	ErrorKindScopeResolution
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindUnspecified:
		return "unspecified"
	case ErrorKindInvalidSchema:
		return "invalid schema"
	case ErrorKindUnknownField:
		return "unknown field"
	case ErrorKindInvalidRename:
		return "invalid rename"
	case ErrorKindAmbiguousNodeName:
		return "ambiguous node name"
	case ErrorKindAmbiguousOperationKind:
		return "ambiguous operation kind"
	case ErrorKindMissingJoinKey:
		return "missing join key"
	case ErrorKindInvalidJoinerSpec:
		return "invalid joiner spec"
	case ErrorKindUnsupportedAggregation:
		return "unsupported aggregation"
	case ErrorKindBufferExclusivityViolation:
		return "buffer exclusivity violation"
	case ErrorKindGroupingKeyMismatch:
		return "grouping key mismatch"
	case ErrorKindSchemaMismatch:
		return "schema mismatch"
	case ErrorKindScopeResolution:
		return "scope resolution"
	}
	panic("impossible, error kind switch bug")
}

// Error is a pipeline construction failure, optionally tied to a place in the
// pipeline tree through its dot-joined Path.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
	msg  string
}

func (e *Error) Error() string {
	msg := e.msg
	if e.Err != nil {
		if msg != "" {
			msg += ": " + e.Err.Error()
		} else {
			msg = e.Err.Error()
		}
	}
	if e.Path != "" {
		return e.Path + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf creates a construction error of the given kind.
func Errorf(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying error. The cause
// stays available through Unwrap.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: err, msg: fmt.Sprintf(format, args...)}
}

// ErrorAt places err at a pipeline tree path. The kind of the underlying
// construction error is preserved; errors that already carry a path keep it.
func ErrorAt(err error, path string) error {
	if err == nil || path == "" {
		return err
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		if cerr.Path != "" {
			return err
		}
		return &Error{Kind: cerr.Kind, Path: path, Err: err}
	}
	return &Error{Path: path, Err: err}
}

// KindOf classifies an error chain. Errors that did not originate in pipeline
// construction classify as ErrorKindUnspecified.
func KindOf(err error) ErrorKind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ErrorKindUnspecified
}

// IsKind reports whether the error chain contains a construction error of the
// given kind, at any depth.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var cerr *Error
		if !errors.As(err, &cerr) {
			return false
		}
		if cerr.Kind == kind {
			return true
		}
		err = cerr.Err
	}
	return false
}
