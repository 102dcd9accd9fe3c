package buildconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOptions reads options from a YAML file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read options file: %w", err)
	}

	opts, err := ParseOptions(data)
	if err != nil {
		return Options{}, fmt.Errorf("parse options file %s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions decodes YAML options, unknown keys are rejected. An empty
// document yields zero Options.
func ParseOptions(data []byte) (Options, error) {
	var opts Options

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, err
	}
	return opts, nil
}
