// Package config loads the sluice CLI configuration file. The file lives at
// ~/.sluice/config.yml and is optional; a missing file reads as an empty
// configuration.
package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sluicedata/sluice/sources"
)

type Config struct {
	// Databases are named connections pipefiles refer to by key.
	Databases map[string]sources.PostgresConfig `yaml:"databases"`
}

// Path resolves the configuration file location under the home directory.
func Path() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "couldn't resolve home directory")
	}
	return filepath.Join(dir, ".sluice", "config.yml"), nil
}

// Read loads the configuration from the default location.
func Read() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return ReadFrom(path)
}

// ReadFrom loads the configuration from an explicit path.
func ReadFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "couldn't open file")
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err == io.EOF {
		return &Config{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "couldn't decode yaml configuration")
	}
	return &cfg, nil
}
