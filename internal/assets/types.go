package assets

import (
	"errors"
	"sync"
)

var (
	// ErrNoEntryPoints indicates the descriptor names no entry points
	ErrNoEntryPoints = errors.New("no entry points found")
	// ErrBuildFailed indicates esbuild reported errors
	ErrBuildFailed = errors.New("esbuild failed with errors")
	// ErrCircularDependency indicates an import cycle was found while failOnError is set
	ErrCircularDependency = errors.New("circular dependency detected")
	// ErrUnsupportedLibraryTarget indicates the library target has no esbuild format
	ErrUnsupportedLibraryTarget = errors.New("unsupported library target")
)

// BuildMetadata is the subset of the esbuild metafile the pipeline reads.
type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes   int          `json:"bytes"`
	Imports []ImportInfo `json:"imports"`
}

type OutputInfo struct {
	Bytes      int          `json:"bytes"`
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

// OutputSize is the raw and gzip size of one output file.
type OutputSize struct {
	Path      string
	Bytes     int
	GzipBytes int
}

// Result describes one pipeline run.
type Result struct {
	BuildID  string
	Outputs  []OutputSize
	Metadata *BuildMetadata
	Cycles   [][]string
	Warnings []string
	// ReportPath is set when a bundle analysis report was written
	ReportPath string
}

// Pipeline hands descriptors to esbuild and post-processes the result
type Pipeline struct {
	config   Config
	metadata *BuildMetadata
	mu       sync.RWMutex
}

// New creates a new asset pipeline with the given configuration
func New(config Config) *Pipeline {
	return &Pipeline{
		config: config,
	}
}

// Metadata returns the metafile of the last successful build.
func (p *Pipeline) Metadata() *BuildMetadata {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metadata
}
