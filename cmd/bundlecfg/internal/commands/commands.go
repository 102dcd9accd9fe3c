package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
	"github.com/wolfeidau/bundlecfg/internal/cachedirs"
	"github.com/wolfeidau/bundlecfg/internal/logger"
	"github.com/wolfeidau/bundlecfg/internal/telemetry"
	"gopkg.in/yaml.v3"
)

var stdout io.Writer = os.Stdout

type Globals struct {
	Debug   bool
	Tracing bool
	Version string
}

// setup installs the logger and, when enabled, telemetry. The returned
// function flushes telemetry and must be called before exit.
func (g *Globals) setup(ctx context.Context) (zerolog.Logger, func()) {
	log := logger.Setup(g.Debug)

	if !g.Tracing {
		return log, func() {}
	}

	log.Info().Msg("Tracing is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, "bundlecfg", g.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return log, func() {}
	}

	return log, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

// BuildFlags are the descriptor options shared by config and build. Flags
// take precedence over the options file. Boolean options accept auto to
// leave the decision to the preset.
type BuildFlags struct {
	OptionsFile string `help:"YAML file with build options" type:"existingfile" env:"BUNDLECFG_OPTIONS_FILE"`
	Preset      string `help:"defaults used for unset options (standard, compat)" default:"standard" enum:"standard,compat" env:"BUNDLECFG_PRESET"`

	Context       string            `help:"project root, defaults to the working directory" type:"path" env:"BUNDLECFG_CONTEXT"`
	Entry         []string          `help:"entry point, may be repeated" env:"BUNDLECFG_ENTRY"`
	Filename      string            `help:"output file name" env:"BUNDLECFG_FILENAME"`
	ModuleName    string            `help:"exported library name" env:"BUNDLECFG_MODULE_NAME"`
	LibraryTarget string            `help:"module format of the output" env:"BUNDLECFG_LIBRARY_TARGET"`
	Path          string            `help:"output directory" type:"path" env:"BUNDLECFG_PATH"`
	Env           string            `help:"deployment environment (local, stage, sandbox, production, test)" env:"BUNDLECFG_ENV"`
	BabelConfig   string            `help:"babel config the transpiler rule extends" env:"BUNDLECFG_BABEL_CONFIG"`
	Vars          map[string]string `help:"injected constant as name=value, values are parsed as YAML scalars"`
	Alias         map[string]string `help:"module alias as name=target"`

	Web        string `help:"build for the browser" default:"auto" enum:"auto,true,false" env:"BUNDLECFG_WEB"`
	Test       string `help:"build for tests" default:"auto" enum:"auto,true,false" env:"BUNDLECFG_TEST"`
	DebugBuild string `help:"unminified debug build" name:"debug-build" default:"auto" enum:"auto,true,false" env:"BUNDLECFG_DEBUG"`
	Minify     string `help:"minify output" default:"auto" enum:"auto,true,false" env:"BUNDLECFG_MINIFY"`
	Sourcemaps string `help:"emit source maps" default:"auto" enum:"auto,true,false" env:"BUNDLECFG_SOURCEMAPS"`
	Cache      string `help:"use on disk caches" default:"auto" enum:"auto,true,false" env:"BUNDLECFG_CACHE"`
	Analyze    string `help:"write a bundle analysis report" default:"auto" enum:"auto,true,false" env:"BUNDLECFG_ANALYZE"`
	Dynamic    string `help:"use per process cache directories" default:"auto" enum:"auto,true,false" env:"BUNDLECFG_DYNAMIC"`
	Optimize   string `help:"enable the optimization section" default:"auto" enum:"auto,true,false" env:"BUNDLECFG_OPTIMIZE"`
}

// options merges the options file with the flags.
func (f *BuildFlags) options() (buildconfig.Options, error) {
	var (
		opts buildconfig.Options
		err  error
	)
	if f.OptionsFile != "" {
		opts, err = buildconfig.LoadOptions(f.OptionsFile)
		if err != nil {
			return opts, err
		}
	}

	setString(&opts.Context, f.Context)
	setString(&opts.Filename, f.Filename)
	setString(&opts.ModuleName, f.ModuleName)
	setString(&opts.Path, f.Path)
	setString(&opts.BabelConfig, f.BabelConfig)
	if len(f.Entry) > 0 {
		opts.Entry = buildconfig.Entries(f.Entry)
	}
	if f.LibraryTarget != "" {
		opts.LibraryTarget = buildconfig.String(f.LibraryTarget)
	}
	if f.Env != "" {
		opts.Env = buildconfig.String(f.Env)
	}

	setBool(&opts.Web, f.Web)
	setBool(&opts.Test, f.Test)
	setBool(&opts.Debug, f.DebugBuild)
	setBool(&opts.Minify, f.Minify)
	setBool(&opts.Sourcemaps, f.Sourcemaps)
	setBool(&opts.Cache, f.Cache)
	setBool(&opts.Analyze, f.Analyze)
	setBool(&opts.Dynamic, f.Dynamic)
	setBool(&opts.Optimize, f.Optimize)

	for name, raw := range f.Vars {
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return opts, fmt.Errorf("invalid value for constant %s: %w", name, err)
		}
		if opts.Vars == nil {
			opts.Vars = map[string]any{}
		}
		opts.Vars[name] = v
	}
	for name, target := range f.Alias {
		if opts.Alias == nil {
			opts.Alias = map[string]string{}
		}
		opts.Alias[name] = target
	}

	return opts, nil
}

// descriptor assembles the descriptor for the flags. The returned release
// removes per process cache directories, it also runs when ctx is cancelled.
func (f *BuildFlags) descriptor(ctx context.Context, log zerolog.Logger) (*buildconfig.Descriptor, func(), error) {
	opts, err := f.options()
	if err != nil {
		return nil, nil, err
	}

	preset, err := buildconfig.PresetByName(f.Preset)
	if err != nil {
		return nil, nil, err
	}

	env := buildconfig.EnvironmentFromProcess()
	cache := cachedirs.New(env.TempDir, env.PID)
	stop := context.AfterFunc(ctx, cache.Release)
	release := func() {
		stop()
		cache.Release()
	}

	b := buildconfig.New(
		buildconfig.WithPreset(preset),
		buildconfig.WithEnvironment(env),
		buildconfig.WithCacheDirs(cache),
		buildconfig.WithLogger(log),
	)

	desc, err := b.Build(opts)
	if err != nil {
		release()
		return nil, nil, err
	}

	return desc, release, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst **bool, v string) {
	switch v {
	case "true":
		*dst = buildconfig.Bool(true)
	case "false":
		*dst = buildconfig.Bool(false)
	}
}
