package buildconfig

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/bundlecfg/internal/cachedirs"
	"gopkg.in/yaml.v3"
)

type stubCacheDirs struct {
	dirs     cachedirs.Dirs
	err      error
	calls    int
	dynamics []bool
}

func (s *stubCacheDirs) Acquire(dynamic bool) (cachedirs.Dirs, error) {
	s.calls++
	s.dynamics = append(s.dynamics, dynamic)
	return s.dirs, s.err
}

func newTestBuilder(t *testing.T, env Environment, opts ...Option) (*Builder, *stubCacheDirs) {
	t.Helper()

	stub := &stubCacheDirs{dirs: cachedirs.Dirs{
		HardSource:  "/cache/hard-source",
		Babel:       "/cache/babel",
		Terser:      "/cache/terser",
		CacheLoader: "/cache/loader",
	}}
	if env.WorkingDir == "" {
		env.WorkingDir = "/work"
	}

	all := append([]Option{WithEnvironment(env), WithCacheDirs(stub)}, opts...)
	return New(all...), stub
}

func pluginNames(plugins []Plugin) []string {
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		names = append(names, p.Name)
	}
	return names
}

func ruleLoaders(rules []Rule) []string {
	var loaders []string
	for _, r := range rules {
		loaders = append(loaders, r.Loaders()[0])
	}
	return loaders
}

func TestBuild_Defaults(t *testing.T) {
	b, stub := newTestBuilder(t, Environment{ConfigDir: "/config"})

	desc, err := b.Build(Options{Filename: "zoid", ModuleName: "zoid"})
	require.NoError(t, err)

	require.Equal(t, 1, stub.calls)
	require.Equal(t, []bool{false}, stub.dynamics)

	require.Equal(t, "/work", desc.Context)
	require.Equal(t, ModeProduction, desc.Mode)
	require.Equal(t, "web", desc.Target)
	require.Equal(t, Entries{"./src/index.js"}, desc.Entry)
	require.Equal(t, Output{
		Path:           filepath.Join("/work", "dist"),
		Filename:       "zoid.min.js",
		GlobalObject:   "(typeof self !== 'undefined' ? self : this)",
		UMDNamedDefine: true,
		Library:        "zoid",
		LibraryTarget:  "umd",
	}, desc.Output)

	require.Equal(t, []string{".js", ".jsx"}, desc.Resolve.Extensions)
	require.Equal(t, []string{"/config", "node_modules"}, desc.Resolve.Modules)
	require.Equal(t, filepath.Join("/config", "node_modules", "@babel", "runtime"), desc.Resolve.Alias["@babel/runtime"])

	require.Equal(t, []string{LoaderIsomorphicStyle, LoaderBabel, LoaderRaw}, ruleLoaders(desc.Module.Rules))
	babel := desc.Module.Rules[1]
	require.Equal(t, CacheDir(""), babel.Options["cacheDirectory"])
	require.Equal(t, filepath.Join("/config", ".babelrc-browser"), babel.Options["extends"])
	require.Equal(t, &Pattern{Source: "(dist)"}, babel.Exclude)

	require.Equal(t, []string{PluginDefine}, pluginNames(desc.Plugins))
	require.Equal(t, "source-map", desc.Devtool)
	require.True(t, desc.Bail)
	require.True(t, desc.Stats.OptimizationBailout)
	require.Len(t, desc.Node, 7)

	require.NotNil(t, desc.Optimization)
	require.True(t, desc.Optimization.Minimize)
	require.False(t, desc.Optimization.NamedModules)
	require.Len(t, desc.Optimization.Minimizer, 1)

	terser, ok := desc.Optimization.Minimizer[0].Options.(TerserPluginOptions)
	require.True(t, ok)
	require.True(t, terser.TerserOptions.Mangle)
	require.False(t, terser.TerserOptions.Output.Beautify)
	require.True(t, terser.TerserOptions.Compress.DropDebugger)
	require.Equal(t, 3, terser.TerserOptions.Compress.Passes)
	require.True(t, terser.SourceMap)
	require.Equal(t, CacheDir(""), terser.Cache)
}

func TestBuild_InjectedConstants(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{
		Env: String(EnvStage),
		Vars: map[string]any{
			"__VERSION__": "1.0.0",
			"__MIN__":     "overridden by the builder",
			"__CONFIG__":  map[string]any{"flag": true},
			"__EXPR__":    map[string]any{LiteralKey: "Date.now()"},
		},
	})
	require.NoError(t, err)

	define := desc.Plugins[0]
	require.Equal(t, PluginDefine, define.Name)
	vars, ok := define.Options.(map[string]any)
	require.True(t, ok)

	require.Equal(t, `"1.0.0"`, vars["__VERSION__"])
	require.Equal(t, "true", vars["__MIN__"])
	require.Equal(t, map[string]any{"flag": "true"}, vars["__CONFIG__"])
	require.Equal(t, "Date.now()", vars["__EXPR__"])
	require.Equal(t, `"stage"`, vars["__ENV__"])
	require.Equal(t, "true", vars["__STAGE__"])
	require.Equal(t, "false", vars["__PRODUCTION__"])
	require.Equal(t, "false", vars["__LOCAL__"])
	require.Equal(t, "false", vars["__SANDBOX__"])
	require.Equal(t, "true", vars["__TREE_SHAKE__"])
	require.Equal(t, "undefined", vars["__FILE_NAME__"])
	require.Equal(t, "global", vars["__WINDOW__"])
	require.Equal(t, "global", vars["__GLOBAL__"])
	require.Equal(t, "window", vars["global"])
}

func TestBuild_NodeGlobal(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{Web: Bool(false), Filename: "server"})
	require.NoError(t, err)

	vars := desc.Plugins[0].Options.(map[string]any)
	require.Equal(t, "global", vars["global"])
	require.Equal(t, `"server.min.js"`, vars["__FILE_NAME__"])
	require.Equal(t, "false", vars["__WEB__"])
	require.Equal(t, "node", desc.Target)
	require.Empty(t, desc.Devtool)
}

func TestBuild_TestMode(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{Test: true})

	desc, err := b.Build(Options{Cache: Bool(true), Analyze: Bool(true)})
	require.NoError(t, err)

	require.Equal(t, ModeDevelopment, desc.Mode)
	require.Empty(t, desc.Devtool)
	require.Equal(t, []string{PluginDefine, PluginCircularDeps, PluginBundleAnalyzer}, pluginNames(desc.Plugins))
	require.Equal(t, []string{LoaderIsomorphicStyle, LoaderBabel, LoaderRaw}, ruleLoaders(desc.Module.Rules))

	circular := desc.Plugins[1].Options.(CircularDependencyOptions)
	require.True(t, circular.FailOnError)
	require.Equal(t, "node_modules", circular.Exclude.Source)

	terser := desc.Optimization.Minimizer[0].Options.(TerserPluginOptions)
	require.True(t, terser.TerserOptions.Output.Beautify)
	require.False(t, terser.TerserOptions.Mangle)
	require.False(t, terser.TerserOptions.Compress.DropDebugger)
	require.True(t, desc.Optimization.NamedModules)
}

func TestBuild_Caching(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{Cache: Bool(true)})
	require.NoError(t, err)

	require.Equal(t, []string{LoaderIsomorphicStyle, LoaderCache, LoaderBabel, LoaderRaw}, ruleLoaders(desc.Module.Rules))
	require.Equal(t, "/cache/loader", desc.Module.Rules[1].Options["cacheDirectory"])
	require.Equal(t, CacheDir("/cache/babel"), desc.Module.Rules[2].Options["cacheDirectory"])

	require.Equal(t, []string{PluginDefine, PluginHardSource}, pluginNames(desc.Plugins))
	require.Equal(t, HardSourceOptions{CacheDirectory: "/cache/hard-source"}, desc.Plugins[1].Options)

	terser := desc.Optimization.Minimizer[0].Options.(TerserPluginOptions)
	require.Equal(t, CacheDir("/cache/terser"), terser.Cache)
}

func TestBuild_DynamicCachingSkipsPersistentCache(t *testing.T) {
	b, stub := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{Cache: Bool(true), Dynamic: Bool(true)})
	require.NoError(t, err)

	require.Equal(t, []bool{true}, stub.dynamics)
	require.Equal(t, []string{PluginDefine}, pluginNames(desc.Plugins))
	require.Equal(t, []string{LoaderIsomorphicStyle, LoaderCache, LoaderBabel, LoaderRaw}, ruleLoaders(desc.Module.Rules))
}

func TestBuild_LocalEnvSkipsOptimization(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{Env: String(EnvLocal)})
	require.NoError(t, err)
	require.Nil(t, desc.Optimization)

	doc, err := desc.Document()
	require.NoError(t, err)
	require.Equal(t, map[string]any{}, doc["optimization"])
}

func TestBuild_LibraryTarget(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{LibraryTarget: String("")})
	require.NoError(t, err)

	doc, err := desc.Document()
	require.NoError(t, err)
	output := doc["output"].(map[string]any)
	require.NotContains(t, output, "libraryTarget")

	desc, err = b.Build(Options{LibraryTarget: String("commonjs2")})
	require.NoError(t, err)
	require.Equal(t, "commonjs2", desc.Output.LibraryTarget)
}

func TestBuild_ExtraOptionsOverride(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	caller := map[string]any{
		"mode":    "none",
		"devtool": "eval",
		"watch":   true,
	}
	desc, err := b.Build(Options{Options: caller})
	require.NoError(t, err)

	doc, err := desc.Document()
	require.NoError(t, err)
	require.Equal(t, "none", doc["mode"])
	require.Equal(t, true, doc["watch"])
	// devtool is computed and replaces the caller's value
	require.Equal(t, "source-map", doc["devtool"])
	// the caller's map is not modified
	require.Equal(t, "eval", caller["devtool"])

	eff, err := desc.Effective()
	require.NoError(t, err)
	require.Equal(t, "none", eff.Mode)
	require.Equal(t, ModeProduction, desc.Mode)
}

func TestBuild_AliasAndEntries(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{
		Context: "/project",
		Entry:   Entries{"./a.js", "./b.js"},
		Alias:   map[string]string{"react": "preact/compat"},
		Path:    "/out",
	})
	require.NoError(t, err)

	require.Equal(t, "/project", desc.Context)
	require.Equal(t, "/out", desc.Output.Path)
	require.Equal(t, "preact/compat", desc.Resolve.Alias["react"])
	require.Contains(t, desc.Resolve.Alias, "@babel/runtime")

	raw, err := json.Marshal(desc)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, []any{"./a.js", "./b.js"}, doc["entry"])
}

func TestBuild_Errors(t *testing.T) {
	b, stub := newTestBuilder(t, Environment{})
	stub.err = errors.New("disk full")

	_, err := b.Build(Options{})
	require.ErrorContains(t, err, "disk full")

	b, _ = newTestBuilder(t, Environment{})
	_, err = b.Build(Options{Vars: map[string]any{"bad": make(chan struct{})}})
	var kindErr *UnsupportedValueKindError
	require.ErrorAs(t, err, &kindErr)
	require.Equal(t, "bad", kindErr.Path)
}

func TestDescriptor_JSONShape(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{Cache: Bool(true), Filename: "zoid"})
	require.NoError(t, err)

	raw, err := json.Marshal(desc)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	require.Equal(t, "./src/index.js", doc["entry"])

	rules := doc["module"].(map[string]any)["rules"].([]any)
	style := rules[0].(map[string]any)
	require.Equal(t, `/\.scss$/i`, style["test"])
	use := style["use"].([]any)
	require.Equal(t, "isomorphic-style-loader", use[0])
	require.Equal(t, map[string]any{
		"loader":  "css-loader",
		"options": map[string]any{"importLoaders": float64(1)},
	}, use[1])

	babel := rules[2].(map[string]any)
	require.Equal(t, "/cache/babel", babel["options"].(map[string]any)["cacheDirectory"])
	require.Equal(t, `/(dist)/`, babel["exclude"])

	opt := doc["optimization"].(map[string]any)
	minimizer := opt["minimizer"].([]any)[0].(map[string]any)
	require.Equal(t, "TerserPlugin", minimizer["name"])
	terser := minimizer["options"].(map[string]any)
	require.Equal(t, "/cache/terser", terser["cache"])
	compress := terser["terserOptions"].(map[string]any)["compress"].(map[string]any)
	require.Equal(t, true, compress["pure_getters"])
	require.Equal(t, float64(3), compress["passes"])
}

func TestDescriptor_CacheDisabledRendersFalse(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{})
	require.NoError(t, err)

	raw, err := json.Marshal(desc)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	rules := doc["module"].(map[string]any)["rules"].([]any)
	babel := rules[1].(map[string]any)
	require.Equal(t, false, babel["options"].(map[string]any)["cacheDirectory"])
}

func TestDescriptor_Effective(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{Cache: Bool(true), Filename: "zoid"})
	require.NoError(t, err)

	eff, err := desc.Effective()
	require.NoError(t, err)

	require.Equal(t, desc.Output, eff.Output)
	require.Equal(t, desc.Entry, eff.Entry)
	require.Equal(t, pluginNames(desc.Plugins), pluginNames(eff.Plugins))
	require.Equal(t, desc.Module.Rules[0].Use[1].Loader, eff.Module.Rules[0].Use[1].Loader)

	var terser TerserPluginOptions
	require.NoError(t, eff.Optimization.Minimizer[0].DecodeOptions(&terser))
	require.Equal(t, desc.Optimization.Minimizer[0].Options, terser)

	var hardSource HardSourceOptions
	require.NoError(t, eff.Plugins[1].DecodeOptions(&hardSource))
	require.Equal(t, "/cache/hard-source", hardSource.CacheDirectory)

	_, err = Descriptor{Extra: map[string]any{"mode": 5}}.Effective()
	require.Error(t, err)
}

func TestDescriptor_YAML(t *testing.T) {
	b, _ := newTestBuilder(t, Environment{})

	desc, err := b.Build(Options{Options: map[string]any{"watch": true}})
	require.NoError(t, err)

	raw, err := yaml.Marshal(desc)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	require.Equal(t, "production", doc["mode"])
	require.Equal(t, true, doc["watch"])
	require.Equal(t, "source-map", doc["devtool"])
}
