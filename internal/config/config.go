// Package config loads and validates the docwright configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docwright/internal/errors"
)

// Config is the typed configuration for a build invocation.
type Config struct {
	// SourceDir is the root of the document corpus.
	SourceDir string `yaml:"source_dir"`

	// OutputDir receives the written documents.
	OutputDir string `yaml:"output_dir"`

	// GraphPath is the persisted dependency-graph snapshot (SQLite file).
	GraphPath string `yaml:"graph_path"`

	// RootDocument is the master document; it is always part of every
	// write set because it carries the navigation context.
	RootDocument string `yaml:"root_document"`

	// SourceSuffix is the corpus file suffix, also used when formatting
	// diagnostic locations.
	SourceSuffix string `yaml:"source_suffix"`

	// Builder selects the target writer ("html", "text").
	Builder string `yaml:"builder"`

	// Parallelism is the total worker-slot count including the
	// coordinator. Values above 1 enable parallel writing when the writer
	// and all extensions allow it.
	Parallelism int `yaml:"parallelism"`

	// Verbosity raises status-stream detail (0..3).
	Verbosity int `yaml:"verbosity"`

	// WarningIsError escalates warnings into failures.
	WarningIsError bool `yaml:"warning_is_error"`

	// SuppressWarnings lists "type" or "type.subtype" suppression rules.
	SuppressWarnings []string `yaml:"suppress_warnings"`

	// Options is a flat option map keyed "<builder>_<option>". Defaults
	// live under "default_<option>".
	Options map[string]string `yaml:"options"`
}

// Load reads, decodes and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Fatal(errors.CategoryConfig, fmt.Sprintf("reading config %s", path), err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Fatal(errors.CategoryConfig, fmt.Sprintf("parsing config %s", path), err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RootDocument == "" {
		c.RootDocument = "index"
	}
	if c.SourceSuffix == "" {
		c.SourceSuffix = ".md"
	}
	if c.Builder == "" {
		c.Builder = "html"
	}
	if c.Parallelism < 1 {
		c.Parallelism = 1
	}
	if c.GraphPath == "" {
		c.GraphPath = ".docwright/graph.db"
	}
	if c.OutputDir == "" {
		c.OutputDir = "./out"
	}
}

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "source_dir must be set")
	}
	if c.Verbosity < 0 || c.Verbosity > 3 {
		return errors.New(errors.CategoryConfig, errors.SeverityFatal, "verbosity must be between 0 and 3")
	}
	return nil
}

// BuilderOption resolves a per-builder option with explicit two-key
// lookup: "<builder>_<option>" first, then "default_<option>". Absence of
// both keys is a configuration error, never a silent default.
func (c *Config) BuilderOption(builder, option string) (string, error) {
	if v, ok := c.Options[builder+"_"+option]; ok {
		return v, nil
	}
	if v, ok := c.Options["default_"+option]; ok {
		return v, nil
	}
	return "", errors.New(errors.CategoryConfig, errors.SeverityFatal,
		fmt.Sprintf("option %q is not configured for builder %q and has no default", option, builder))
}
