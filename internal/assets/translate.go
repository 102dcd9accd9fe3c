package assets

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"sort"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
)

// candidateExtensions are the file types a rule can hand to esbuild.
var candidateExtensions = []string{
	".js", ".jsx", ".mjs", ".cjs",
	".css", ".scss", ".sass",
	".html", ".htm", ".json", ".svg",
}

// BuildOptions translates an effective descriptor into esbuild options.
func BuildOptions(desc *buildconfig.Descriptor) (api.BuildOptions, error) {
	opts := api.BuildOptions{
		EntryPoints:       slices.Clone([]string(desc.Entry)),
		AbsWorkingDir:     desc.Context,
		Bundle:            true,
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
		Platform:          cond(desc.Target == "node", api.PlatformNode, api.PlatformBrowser),
		Alias:             desc.Resolve.Alias,
		ResolveExtensions: desc.Resolve.Extensions,
		NodePaths:         nodePaths(desc.Resolve.Modules),
		Sourcemap:         sourceMap(desc.Devtool),
		TreeShaking:       api.TreeShakingFalse,
	}

	format, err := outputFormat(desc.Output.LibraryTarget)
	if err != nil {
		return api.BuildOptions{}, err
	}
	opts.Format = format
	if format == api.FormatIIFE {
		opts.GlobalName = desc.Output.Library
	}

	if desc.Output.Filename != "" && len(desc.Entry) == 1 {
		opts.Outfile = filepath.Join(desc.Output.Path, desc.Output.Filename)
	} else {
		opts.Outdir = desc.Output.Path
	}

	loaders, err := ruleLoaders(desc.Module.Rules)
	if err != nil {
		return api.BuildOptions{}, err
	}
	opts.Loader = loaders

	for _, plugin := range desc.Plugins {
		if plugin.Name != buildconfig.PluginDefine {
			continue
		}
		vars, ok := plugin.Options.(map[string]any)
		if !ok {
			return api.BuildOptions{}, fmt.Errorf("%s options must be a mapping, got %T", plugin.Name, plugin.Options)
		}
		opts.Define = flattenDefines("", vars, map[string]string{})
	}

	if desc.Optimization != nil && desc.Optimization.Minimize {
		if desc.Mode == buildconfig.ModeProduction {
			opts.TreeShaking = api.TreeShakingTrue
		}
		for _, m := range desc.Optimization.Minimizer {
			if m.Name != buildconfig.PluginTerser {
				log.Warn().Str("minimizer", m.Name).Msg("Ignoring unsupported minimizer")
				continue
			}
			var terser buildconfig.TerserPluginOptions
			if err := m.DecodeOptions(&terser); err != nil {
				return api.BuildOptions{}, err
			}
			compress := terser.TerserOptions.Compress
			opts.MinifyIdentifiers = terser.TerserOptions.Mangle
			opts.MinifyWhitespace = !terser.TerserOptions.Output.Beautify
			opts.MinifySyntax = compress.Sequences || compress.JoinVars
			if compress.DropDebugger {
				opts.Drop |= api.DropDebugger
			}
		}
	}

	return opts, nil
}

func outputFormat(libraryTarget string) (api.Format, error) {
	switch libraryTarget {
	case "", "umd", "umd2", "var", "window", "self", "this", "global", "assign":
		return api.FormatIIFE, nil
	case "commonjs", "commonjs2", "commonjs-module", "cjs":
		return api.FormatCommonJS, nil
	case "module", "esm":
		return api.FormatESModule, nil
	default:
		return api.FormatDefault, fmt.Errorf("%w: %q", ErrUnsupportedLibraryTarget, libraryTarget)
	}
}

func sourceMap(devtool string) api.SourceMap {
	switch devtool {
	case "inline-source-map":
		return api.SourceMapInline
	case "source-map":
		return api.SourceMapLinked
	default:
		return api.SourceMapNone
	}
}

// nodePaths drops the bare node_modules root, esbuild already walks it.
func nodePaths(modules []string) []string {
	var paths []string
	for _, m := range modules {
		if m == "node_modules" {
			continue
		}
		paths = append(paths, m)
	}
	return paths
}

// ruleLoaders maps each candidate extension to the esbuild loader of the first
// rule that matches it. Passthrough rules such as cache-loader are skipped.
func ruleLoaders(rules []buildconfig.Rule) (map[string]api.Loader, error) {
	out := map[string]api.Loader{}

	for _, ext := range candidateExtensions {
		for _, rule := range rules {
			re, err := rule.Test.Compile()
			if err != nil {
				return nil, fmt.Errorf("compile rule test %s: %w", rule.Test, err)
			}
			if !re.MatchString("module" + ext) {
				continue
			}
			if loader, ok := ruleLoader(rule, ext); ok {
				out[ext] = loader
				break
			}
		}
	}

	return out, nil
}

func ruleLoader(rule buildconfig.Rule, ext string) (api.Loader, bool) {
	names := rule.Loaders()
	switch {
	case slices.Contains(names, buildconfig.LoaderRaw):
		return api.LoaderText, true
	case slices.Contains(names, buildconfig.LoaderBabel):
		return cond(ext == ".jsx", api.LoaderJSX, api.LoaderJS), true
	case slices.Contains(names, buildconfig.LoaderScopedCSS):
		return api.LoaderLocalCSS, true
	case slices.Contains(names, buildconfig.LoaderCSS):
		return api.LoaderCSS, true
	default:
		return api.LoaderNone, false
	}
}

// flattenDefines turns nested constants into dotted define keys.
func flattenDefines(prefix string, vars map[string]any, out map[string]string) map[string]string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		switch v := vars[k].(type) {
		case string:
			out[name] = v
		case map[string]any:
			flattenDefines(name, v, out)
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				log.Warn().Err(err).Str("define", name).Msg("Skipping define that cannot be rendered")
				continue
			}
			out[name] = string(raw)
		}
	}

	return out
}
