// Package manifest reads YAML run manifests for the memrun CLI.
//
// A manifest pins down how a binary should be executed so an invocation is
// reproducible without repeating flags:
//
//	binary: ./payload
//	argv0: my-tool
//	args: ["--port", "8080"]
//	env: ["HOME=/tmp"]
//	inherit-env: true
//	replace: false
package manifest

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/joshrwolf/memrun"
)

// Manifest is a declarative run configuration.
type Manifest struct {
	// Binary is the path of the ELF file to execute, relative to the
	// working directory. "-" means standard input.
	Binary string `yaml:"binary"`

	// Argv0 overrides the program name the binary sees.
	Argv0 string `yaml:"argv0"`

	// Args are passed to the binary in order.
	Args []string `yaml:"args"`

	// Env entries, conventionally "KEY=VALUE".
	Env []string `yaml:"env"`

	// InheritEnv starts from the caller's environment.
	InheritEnv bool `yaml:"inherit-env"`

	// Replace substitutes the calling process instead of forking.
	Replace bool `yaml:"replace"`
}

// Parse reads a manifest. Unknown fields are rejected so a typo fails loudly
// instead of silently running with defaults. An empty document is a valid,
// empty manifest.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("unmarshaling YAML: %w", err)
	}
	return &m, nil
}

// Options converts the manifest into run options.
func (m *Manifest) Options() memrun.Options {
	return memrun.Options{
		Replace:    m.Replace,
		Args:       m.Args,
		Env:        m.Env,
		InheritEnv: m.InheritEnv,
		Argv0:      m.Argv0,
	}
}
