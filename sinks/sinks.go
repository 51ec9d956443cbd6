// Package sinks implements schema-only descriptors for pipeline outputs.
// A sink descriptor receives each bound output's name and final schema at
// bind time; no rows reach it.
package sinks

import (
	"github.com/pkg/errors"

	"github.com/sluicedata/sluice/sluice"
)

// Memory keeps registrations in process. Tests and tooling read them back
// through Schema and Schemas.
type Memory struct {
	schemas map[string]sluice.Schema
}

func NewMemory() *Memory {
	return &Memory{schemas: make(map[string]sluice.Schema)}
}

func (m *Memory) Name() string {
	return "memory"
}

func (m *Memory) Register(name string, schema sluice.Schema) error {
	if _, ok := m.schemas[name]; ok {
		return errors.Errorf("output %q is already registered", name)
	}
	m.schemas[name] = schema
	return nil
}

// Schema reports the schema registered under name.
func (m *Memory) Schema(name string) (sluice.Schema, bool) {
	schema, ok := m.schemas[name]
	return schema, ok
}

// Schemas returns a copy of all registrations.
func (m *Memory) Schemas() map[string]sluice.Schema {
	out := make(map[string]sluice.Schema, len(m.schemas))
	for name, schema := range m.schemas {
		out[name] = schema
	}
	return out
}
