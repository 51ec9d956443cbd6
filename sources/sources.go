// Package sources implements schema-only descriptors for external inputs.
// A descriptor reports the field layout a source would produce; rows never
// flow through this package.
package sources

import (
	"github.com/sluicedata/sluice/sluice"
)

// Static declares its schema up front. It is the descriptor of choice for
// tests and for inputs whose layout is managed elsewhere.
type Static struct {
	schema sluice.Schema
}

func NewStatic(schema sluice.Schema) Static {
	return Static{schema: schema}
}

func (s Static) Name() string {
	return "static"
}

func (s Static) DeclaredSchema() (sluice.Schema, error) {
	return s.schema, nil
}
