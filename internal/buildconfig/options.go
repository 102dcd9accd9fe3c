package buildconfig

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultEntry         = "./src/index.js"
	defaultLibraryTarget = "umd"
	defaultOutputDir     = "dist"
	defaultBabelConfig   = ".babelrc-browser"
)

// Options are the high level knobs a caller sets. Every field is optional,
// nil pointers and empty values take the defaults resolved by a Preset.
type Options struct {
	// Base directory for resolving entry points, defaults to the working directory
	Context string `yaml:"context" json:"context,omitempty"`
	// Entry point or points, defaults to ./src/index.js
	Entry Entries `yaml:"entry" json:"entry,omitempty"`
	// Output file name, normalized to end in .js (and .min.js when minifying)
	Filename string `yaml:"filename" json:"filename,omitempty"`
	// Name the bundle is exported as
	ModuleName string `yaml:"modulename" json:"modulename,omitempty"`
	// Module definition style, defaults to umd, empty string disables it
	LibraryTarget *string `yaml:"libraryTarget" json:"libraryTarget,omitempty"`
	// Output directory, defaults to ./dist under the working directory
	Path string `yaml:"path" json:"path,omitempty"`
	// Environment tag (test, local, stage, sandbox, production)
	Env *string `yaml:"env" json:"env,omitempty"`

	Web        *bool `yaml:"web" json:"web,omitempty"`
	Test       *bool `yaml:"test" json:"test,omitempty"`
	Debug      *bool `yaml:"debug" json:"debug,omitempty"`
	Minify     *bool `yaml:"minify" json:"minify,omitempty"`
	Sourcemaps *bool `yaml:"sourcemaps" json:"sourcemaps,omitempty"`
	Cache      *bool `yaml:"cache" json:"cache,omitempty"`
	Analyze    *bool `yaml:"analyze" json:"analyze,omitempty"`
	// Dynamic namespaces cache directories by process id and removes them on release
	Dynamic  *bool `yaml:"dynamic" json:"dynamic,omitempty"`
	Optimize *bool `yaml:"optimize" json:"optimize,omitempty"`

	// Transpiler configuration file the babel rule extends
	BabelConfig string `yaml:"babelConfig" json:"babelConfig,omitempty"`

	// Raw options merged over the computed descriptor
	Options map[string]any `yaml:"options" json:"options,omitempty"`
	// Constants injected as globals at build time
	Vars map[string]any `yaml:"vars" json:"vars,omitempty"`
	// Module aliases
	Alias map[string]string `yaml:"alias" json:"alias,omitempty"`
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s.
func String(s string) *string { return &s }

// Environment carries the ambient signals defaults are allowed to read.
type Environment struct {
	// Test is true when the process runs under a test runner
	Test bool
	// WorkingDir is the process working directory
	WorkingDir string
	// PID namespaces cache directories in dynamic mode
	PID int
	// TempDir is the root for cache directories
	TempDir string
	// ConfigDir holds the transpiler config and is a module search root
	ConfigDir string
}

// EnvironmentFromProcess reads the environment of the running process.
func EnvironmentFromProcess() Environment {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return Environment{
		Test:       os.Getenv("NODE_ENV") == "test",
		WorkingDir: wd,
		PID:        os.Getpid(),
		TempDir:    os.TempDir(),
		ConfigDir:  wd,
	}
}

func (e Environment) configDir() string {
	if e.ConfigDir != "" {
		return e.ConfigDir
	}
	return e.WorkingDir
}

// Entries is one or more entry points. A single entry is rendered as a
// plain string, several as a list.
type Entries []string

// MarshalJSON renders a single entry as a string.
func (e Entries) MarshalJSON() ([]byte, error) {
	if len(e) == 1 {
		return json.Marshal(e[0])
	}
	return json.Marshal([]string(e))
}

// UnmarshalJSON accepts a string or a list of strings.
func (e *Entries) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*e = Entries{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("entry must be a string or a list of strings")
	}
	*e = many
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence.
func (e *Entries) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*e = Entries{node.Value}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*e = many
		return nil
	default:
		return errors.New("entry must be a string or a list of strings")
	}
}

func (o Options) context(env Environment) string {
	if o.Context != "" {
		return o.Context
	}
	return env.WorkingDir
}

func (o Options) entry() Entries {
	if len(o.Entry) > 0 {
		return o.Entry
	}
	return Entries{defaultEntry}
}

func (o Options) outputPath(env Environment) string {
	if o.Path != "" {
		return o.Path
	}
	return filepath.Join(env.WorkingDir, defaultOutputDir)
}

func (o Options) libraryTarget() string {
	if o.LibraryTarget != nil {
		return *o.LibraryTarget
	}
	return defaultLibraryTarget
}

func (o Options) babelConfig(env Environment) string {
	if o.BabelConfig != "" {
		return o.BabelConfig
	}
	return filepath.Join(env.configDir(), defaultBabelConfig)
}

func boolOr(b *bool, def bool) bool {
	if b != nil {
		return *b
	}
	return def
}
