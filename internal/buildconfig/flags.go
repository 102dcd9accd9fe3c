package buildconfig

import (
	"fmt"
	"strings"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	EnvTest       = "test"
	EnvLocal      = "local"
	EnvStage      = "stage"
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
)

// Preset holds the default expressions that differ between build recipes.
// Both recipes are kept side by side rather than unified.
type Preset struct {
	Name string
	// Minify is the default for minify when the caller leaves it unset
	Minify func(test, debug bool) bool
	// Sourcemaps is the default for sourcemaps when the caller leaves it unset
	Sourcemaps func(minify bool) bool
}

var (
	// PresetStandard minifies only non test, non debug builds and emits
	// source maps only for minified output.
	PresetStandard = Preset{
		Name:       "standard",
		Minify:     func(test, debug bool) bool { return !test && !debug },
		Sourcemaps: func(minify bool) bool { return minify },
	}

	// PresetCompat minifies test builds as well as non debug builds and
	// always asks for source maps.
	PresetCompat = Preset{
		Name:       "compat",
		Minify:     func(test, debug bool) bool { return test || !debug },
		Sourcemaps: func(bool) bool { return true },
	}

	presets = []Preset{PresetStandard, PresetCompat}
)

// PresetByName looks up a preset, the empty name selects PresetStandard.
func PresetByName(name string) (Preset, error) {
	if name == "" {
		return PresetStandard, nil
	}
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q", name)
}

// Flags are the derived switches computed once per build.
type Flags struct {
	Test       bool
	Debug      bool
	Minify     bool
	Web        bool
	Env        string
	Sourcemaps bool
	Cache      bool
	Analyze    bool
	Dynamic    bool
	Optimize   bool

	EnableSourceMap         bool
	EnableInlineSourceMap   bool
	EnableCheckCircularDeps bool
	EnableCaching           bool
	EnableTreeShake         bool
	EnableBeautify          bool

	Mode     string
	Filename string
}

// Resolve applies the preset defaults to opts. Each flag only reads flags
// resolved before it.
func (p Preset) Resolve(opts Options, env Environment) Flags {
	var f Flags

	f.Test = boolOr(opts.Test, env.Test)
	f.Debug = boolOr(opts.Debug, f.Test)
	f.Minify = boolOr(opts.Minify, p.Minify(f.Test, f.Debug))
	f.Env = EnvProduction
	if f.Test {
		f.Env = EnvTest
	}
	if opts.Env != nil {
		f.Env = *opts.Env
	}
	f.Sourcemaps = boolOr(opts.Sourcemaps, p.Sourcemaps(f.Minify))
	f.Web = boolOr(opts.Web, true)
	f.Cache = boolOr(opts.Cache, false)
	f.Analyze = boolOr(opts.Analyze, false)
	f.Dynamic = boolOr(opts.Dynamic, false)
	f.Optimize = boolOr(opts.Optimize, f.Env != EnvLocal)

	f.EnableSourceMap = f.Sourcemaps && f.Web && !f.Test
	f.EnableInlineSourceMap = f.EnableSourceMap && (f.Test || f.Debug)
	f.EnableCheckCircularDeps = f.Test
	f.EnableCaching = f.Cache && !f.Test
	f.EnableTreeShake = f.Web && !f.Test && !f.Debug
	f.EnableBeautify = f.Debug || f.Test || !f.Minify

	f.Mode = ModeProduction
	if f.Debug || f.Test {
		f.Mode = ModeDevelopment
	}

	f.Filename = NormalizeFilename(opts.Filename, f.Minify)

	return f
}

// Devtool is the source map style the bundler should emit.
func (f Flags) Devtool() string {
	switch {
	case f.EnableInlineSourceMap:
		return "inline-source-map"
	case f.EnableSourceMap:
		return "source-map"
	default:
		return ""
	}
}

// NormalizeFilename makes sure name ends in .js, inserting .min when
// minifying. Names already ending in .js are left alone.
func NormalizeFilename(name string, minify bool) string {
	if name == "" || strings.HasSuffix(name, ".js") {
		return name
	}
	if minify && !strings.HasSuffix(name, ".min") {
		name += ".min"
	}
	return name + ".js"
}
