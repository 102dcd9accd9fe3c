package buildconfig

import "github.com/wolfeidau/bundlecfg/internal/cachedirs"

// pluginSpec pairs a plugin constructor with the condition that enables it.
type pluginSpec struct {
	enabled bool
	build   func() Plugin
}

func buildPlugins(flags Flags, define map[string]any, dirs cachedirs.Dirs) []Plugin {
	specs := []pluginSpec{
		{
			enabled: true,
			build: func() Plugin {
				return Plugin{Name: PluginDefine, Options: define}
			},
		},
		{
			enabled: flags.EnableCheckCircularDeps,
			build: func() Plugin {
				return Plugin{Name: PluginCircularDeps, Options: CircularDependencyOptions{
					Exclude:     Pattern{Source: "node_modules"},
					FailOnError: true,
				}}
			},
		},
		{
			// per process caches are removed on exit, persisting them is pointless
			enabled: flags.EnableCaching && !flags.Dynamic,
			build: func() Plugin {
				return Plugin{Name: PluginHardSource, Options: HardSourceOptions{
					CacheDirectory: dirs.HardSource,
				}}
			},
		},
		{
			enabled: flags.Analyze,
			build: func() Plugin {
				return Plugin{Name: PluginBundleAnalyzer, Options: BundleAnalyzerOptions{
					AnalyzerMode: "static",
					DefaultSizes: "gzip",
					OpenAnalyzer: false,
				}}
			},
		},
	}

	plugins := make([]Plugin, 0, len(specs))
	for _, s := range specs {
		if s.enabled {
			plugins = append(plugins, s.build())
		}
	}
	return plugins
}
