package buildconfig

import (
	"fmt"
	"maps"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/bundlecfg/internal/cachedirs"
)

const globalObject = "(typeof self !== 'undefined' ? self : this)"

// CacheDirs hands out the cache directories used by caching loaders and plugins.
type CacheDirs interface {
	Acquire(dynamic bool) (cachedirs.Dirs, error)
}

// Builder assembles descriptors from options.
type Builder struct {
	preset Preset
	env    Environment
	cache  CacheDirs
	logger zerolog.Logger
}

type Option func(*Builder)

// WithPreset selects the default expressions used for unset options.
func WithPreset(p Preset) Option {
	return func(b *Builder) { b.preset = p }
}

// WithEnvironment replaces the ambient process environment.
func WithEnvironment(env Environment) Option {
	return func(b *Builder) { b.env = env }
}

// WithCacheDirs sets the cache directory manager, by default one rooted at
// the environment temp dir is created.
func WithCacheDirs(c CacheDirs) Option {
	return func(b *Builder) { b.cache = c }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// New creates a builder using PresetStandard and the process environment
// unless overridden.
func New(opts ...Option) *Builder {
	b := &Builder{
		preset: PresetStandard,
		env:    EnvironmentFromProcess(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cache == nil {
		b.cache = cachedirs.New(b.env.TempDir, b.env.PID)
	}
	return b
}

// Build resolves opts and assembles the descriptor.
func (b *Builder) Build(opts Options) (*Descriptor, error) {
	flags := b.preset.Resolve(opts, b.env)

	b.logger.Debug().
		Str("preset", b.preset.Name).
		Str("mode", flags.Mode).
		Str("env", flags.Env).
		Bool("minify", flags.Minify).
		Bool("test", flags.Test).
		Bool("debug", flags.Debug).
		Bool("caching", flags.EnableCaching).
		Str("devtool", flags.Devtool()).
		Msg("resolved build flags")

	dirs, err := b.cache.Acquire(flags.Dynamic)
	if err != nil {
		return nil, fmt.Errorf("failed to set up cache directories: %w", err)
	}

	define, err := SerializeConstants(b.vars(opts.Vars, flags))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize injected constants: %w", err)
	}

	extra := maps.Clone(opts.Options)
	if extra == nil {
		extra = map[string]any{}
	}
	// devtool is always computed, a caller supplied value is replaced
	extra["devtool"] = flags.Devtool()

	desc := &Descriptor{
		Context: opts.context(b.env),
		Mode:    flags.Mode,
		Target:  cond(flags.Web, "web", "node"),
		Entry:   opts.entry(),
		Output:  b.output(opts, flags),
		Node: map[string]bool{
			"console":      false,
			"global":       false,
			"process":      false,
			"__filename":   false,
			"__dirname":    false,
			"Buffer":       false,
			"setImmediate": false,
		},
		Resolve: b.resolve(opts),
		Module:  Module{Rules: b.rules(opts, flags, dirs)},
		Bail:    true,
		Stats:   Stats{OptimizationBailout: true},
		Plugins: buildPlugins(flags, define, dirs),
		Devtool: flags.Devtool(),
		Extra:   extra,
	}

	if flags.Optimize {
		desc.Optimization = optimization(flags, dirs)
	}

	return desc, nil
}

// vars layers the built in constants over the caller's.
func (b *Builder) vars(vars map[string]any, flags Flags) map[string]any {
	out := maps.Clone(vars)
	if out == nil {
		out = map[string]any{}
	}

	var filename any = Undefined
	if flags.Filename != "" {
		filename = flags.Filename
	}

	global := Deferred(func() any { return "global" })
	if flags.Web {
		global = func() any { return "window" }
	}

	maps.Copy(out, map[string]any{
		"__MIN__":        flags.Minify,
		"__TEST__":       flags.Test,
		"__WEB__":        flags.Web,
		"__FILE_NAME__":  filename,
		"__DEBUG__":      flags.Debug,
		"__ENV__":        flags.Env,
		"__TREE_SHAKE__": flags.EnableTreeShake,
		"__LOCAL__":      flags.Env == EnvLocal,
		"__STAGE__":      flags.Env == EnvStage,
		"__SANDBOX__":    flags.Env == EnvSandbox,
		"__PRODUCTION__": flags.Env == EnvProduction,
		"__WINDOW__":     Deferred(func() any { return "global" }),
		"__GLOBAL__":     Deferred(func() any { return "global" }),
		"global":         global,
	})

	return out
}

func (b *Builder) output(opts Options, flags Flags) Output {
	return Output{
		Path:           opts.outputPath(b.env),
		Filename:       flags.Filename,
		GlobalObject:   globalObject,
		UMDNamedDefine: true,
		Library:        opts.ModuleName,
		PathInfo:       false,
		LibraryTarget:  opts.libraryTarget(),
	}
}

func (b *Builder) resolve(opts Options) Resolve {
	alias := maps.Clone(opts.Alias)
	if alias == nil {
		alias = map[string]string{}
	}
	alias["@babel/runtime"] = filepath.Join(b.env.configDir(), "node_modules", "@babel", "runtime")

	return Resolve{
		Alias:      alias,
		Extensions: []string{".js", ".jsx"},
		Modules:    []string{b.env.configDir(), "node_modules"},
	}
}

// rules returns the transformation rules in precedence order, caching
// must come before transpilation.
func (b *Builder) rules(opts Options, flags Flags, dirs cachedirs.Dirs) []Rule {
	var rules []Rule

	rules = append(rules, Rule{
		Test: Pattern{Source: `\.scss$`, IgnoreCase: true},
		Use: []UseEntry{
			{Loader: LoaderIsomorphicStyle},
			{Loader: LoaderCSS, Options: map[string]any{"importLoaders": 1}},
			{Loader: LoaderScopedCSS},
			{Loader: LoaderSass},
		},
	})

	if flags.EnableCaching {
		rules = append(rules, Rule{
			Test:    Pattern{Source: `\.jsx?$`},
			Loader:  LoaderCache,
			Options: map[string]any{"cacheDirectory": dirs.CacheLoader},
		})
	}

	rules = append(rules, Rule{
		Test:    Pattern{Source: `\.jsx?$`},
		Exclude: &Pattern{Source: `(dist)`},
		Loader:  LoaderBabel,
		Options: map[string]any{
			"cacheDirectory": CacheDir(cond(flags.EnableCaching, dirs.Babel, "")),
			"extends":        opts.babelConfig(b.env),
		},
	})

	rules = append(rules, Rule{
		Test:   Pattern{Source: `\.(html?|css|json|svg)$`},
		Loader: LoaderRaw,
	})

	return rules
}

func optimization(flags Flags, dirs cachedirs.Dirs) *Optimization {
	return &Optimization{
		Minimize:           true,
		NamedModules:       flags.Debug,
		ConcatenateModules: true,
		Minimizer: []Plugin{
			{
				Name: PluginTerser,
				Options: TerserPluginOptions{
					Test: Pattern{Source: `\.js$`},
					TerserOptions: TerserOptions{
						Warnings: false,
						Compress: TerserCompress{
							PureGetters:  true,
							UnsafeProto:  true,
							Passes:       3,
							JoinVars:     flags.Minify,
							Sequences:    flags.Minify,
							DropDebugger: !flags.Debug,
						},
						Output: TerserOutput{Beautify: flags.EnableBeautify},
						Mangle: flags.Minify,
					},
					Parallel:  true,
					SourceMap: flags.EnableSourceMap,
					Cache:     CacheDir(cond(flags.EnableCaching, dirs.Terser, "")),
				},
			},
		},
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
