package sinks

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sluicedata/sluice/sluice"
)

// Manifest records each registration in a YAML file so downstream tooling
// can read output shapes without loading the pipeline. The file is
// rewritten on every registration; entries are keyed by output name.
type Manifest struct {
	Path string
}

type manifestFile struct {
	Outputs map[string][]manifestField `yaml:"outputs"`
}

type manifestField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

func (m Manifest) Name() string {
	return "manifest"
}

func (m Manifest) Register(name string, schema sluice.Schema) error {
	file, err := m.read()
	if err != nil {
		return err
	}
	if _, ok := file.Outputs[name]; ok {
		return errors.Errorf("output %q is already registered", name)
	}

	fields := make([]manifestField, schema.Len())
	for i, field := range schema.Fields() {
		entry := manifestField{Name: field.Name}
		if field.Type != sluice.TypeUnspecified {
			entry.Type = field.Type.String()
		}
		fields[i] = entry
	}
	file.Outputs[name] = fields

	out, err := yaml.Marshal(file)
	if err != nil {
		return errors.Wrap(err, "couldn't marshal manifest")
	}
	if err := os.WriteFile(m.Path, out, 0644); err != nil {
		return errors.Wrap(err, "couldn't write manifest")
	}
	return nil
}

func (m Manifest) read() (manifestFile, error) {
	file := manifestFile{Outputs: map[string][]manifestField{}}

	in, err := os.ReadFile(m.Path)
	if os.IsNotExist(err) {
		return file, nil
	} else if err != nil {
		return manifestFile{}, errors.Wrap(err, "couldn't read manifest")
	}
	if err := yaml.Unmarshal(in, &file); err != nil {
		return manifestFile{}, errors.Wrap(err, "couldn't parse manifest")
	}
	if file.Outputs == nil {
		file.Outputs = map[string][]manifestField{}
	}
	return file, nil
}
