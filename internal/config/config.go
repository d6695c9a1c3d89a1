// Package config loads calculator configuration files. A file sets optional
// operator switches and predefined variables:
//
//	operators:
//	  in: true
//	vars:
//	  rate: 0.07
//	  tiers: [10, 20, 50]
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/formula"
)

// File is the contents of a configuration file.
type File struct {
	// Operators maps optional operator names to whether they are enabled.
	Operators map[string]bool `yaml:"operators" toml:"operators" json:"operators"`
	// Vars are variables to set in the evaluation context.
	Vars map[string]any `yaml:"vars" toml:"vars" json:"vars"`
}

// Load loads configuration from a file, detecting the format by extension.
// Supported extensions are .yaml, .yml, .toml, and .json.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".toml":
		return FromTOML(data)
	case ".json":
		return FromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config file extension: %q", ext)
	}
}

// FromYAML parses YAML configuration.
func FromYAML(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &f, nil
}

// FromTOML parses TOML configuration.
func FromTOML(data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	return &f, nil
}

// FromJSON parses JSON configuration.
func FromJSON(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &f, nil
}

// Config returns the operator configuration.
func (f *File) Config() (formula.Config, error) {
	c, err := formula.ConfigFromMap(f.Operators)
	if err != nil {
		return formula.Config{}, fmt.Errorf("operators: %w", err)
	}
	return c, nil
}

// ContextOptions converts the file's variables to context options.
func (f *File) ContextOptions() ([]formula.ContextOption, error) {
	names := make([]string, 0, len(f.Vars))
	for k := range f.Vars {
		names = append(names, k)
	}
	// Sorted so that the first bad variable reported is deterministic.
	sort.Strings(names)
	vars := make(map[string]formula.Value, len(names))
	for _, k := range names {
		v, err := formula.ValueOf(f.Vars[k])
		if err != nil {
			return nil, fmt.Errorf("var %s: %w", k, err)
		}
		vars[k] = v
	}
	return []formula.ContextOption{formula.SetVars(vars)}, nil
}
