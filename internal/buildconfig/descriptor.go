package buildconfig

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Descriptor is the complete bundler configuration. Field names follow the
// bundler's configuration schema.
type Descriptor struct {
	Context      string          `json:"context"`
	Mode         string          `json:"mode"`
	Target       string          `json:"target,omitempty"`
	Entry        Entries         `json:"entry"`
	Output       Output          `json:"output"`
	Node         map[string]bool `json:"node"`
	Resolve      Resolve         `json:"resolve"`
	Module       Module          `json:"module"`
	Bail         bool            `json:"bail"`
	Stats        Stats           `json:"stats"`
	Optimization *Optimization   `json:"optimization"`
	Plugins      []Plugin        `json:"plugins"`
	Devtool      string          `json:"devtool"`

	// Extra is merged over the computed fields when the descriptor is rendered
	Extra map[string]any `json:"-"`
}

type Output struct {
	Path           string `json:"path"`
	Filename       string `json:"filename,omitempty"`
	GlobalObject   string `json:"globalObject"`
	UMDNamedDefine bool   `json:"umdNamedDefine"`
	Library        string `json:"library,omitempty"`
	PathInfo       bool   `json:"pathinfo"`
	LibraryTarget  string `json:"libraryTarget,omitempty"`
}

type Resolve struct {
	Alias      map[string]string `json:"alias"`
	Extensions []string          `json:"extensions"`
	Modules    []string          `json:"modules"`
}

type Module struct {
	Rules []Rule `json:"rules"`
}

// Rule is a module transformation step applied to files matching Test.
type Rule struct {
	Test    Pattern        `json:"test"`
	Exclude *Pattern       `json:"exclude,omitempty"`
	Loader  string         `json:"loader,omitempty"`
	Use     []UseEntry     `json:"use,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Loaders lists every loader the rule names, in declaration order.
func (r Rule) Loaders() []string {
	if r.Loader != "" {
		return []string{r.Loader}
	}
	names := make([]string, 0, len(r.Use))
	for _, u := range r.Use {
		names = append(names, u.Loader)
	}
	return names
}

// UseEntry is a loader reference inside a rule chain. Entries without
// options are rendered as a bare loader name.
type UseEntry struct {
	Loader  string         `json:"loader"`
	Options map[string]any `json:"options,omitempty"`
}

// MarshalJSON renders the bare loader name when there are no options.
func (u UseEntry) MarshalJSON() ([]byte, error) {
	if u.Options == nil {
		return json.Marshal(u.Loader)
	}
	type plain UseEntry
	return json.Marshal(plain(u))
}

// UnmarshalJSON accepts a loader name or a loader object.
func (u *UseEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*u = UseEntry{Loader: name}
		return nil
	}
	type plain UseEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = UseEntry(p)
	return nil
}

// CacheDir is a cache directory that renders as false when caching is off.
type CacheDir string

// MarshalJSON renders an empty directory as false.
func (c CacheDir) MarshalJSON() ([]byte, error) {
	if c == "" {
		return []byte("false"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON treats anything but a string as disabled.
func (c *CacheDir) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = CacheDir(s)
		return nil
	}
	*c = ""
	return nil
}

type Stats struct {
	OptimizationBailout bool `json:"optimizationBailout"`
}

type Optimization struct {
	Minimize           bool     `json:"minimize"`
	NamedModules       bool     `json:"namedModules"`
	ConcatenateModules bool     `json:"concatenateModules"`
	Minimizer          []Plugin `json:"minimizer"`
}

// Plugin is a named bundler plugin with its constructor options.
type Plugin struct {
	Name    string `json:"name"`
	Options any    `json:"options,omitempty"`
}

// DecodeOptions copies the plugin options into v.
func (p Plugin) DecodeOptions(v any) error {
	raw, err := json.Marshal(p.Options)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s options: %w", p.Name, err)
	}
	return nil
}

const (
	PluginDefine          = "DefinePlugin"
	PluginCircularDeps    = "CircularDependencyPlugin"
	PluginHardSource      = "HardSourceWebpackPlugin"
	PluginBundleAnalyzer  = "BundleAnalyzerPlugin"
	PluginTerser          = "TerserPlugin"
	LoaderBabel           = "babel-loader"
	LoaderCache           = "cache-loader"
	LoaderRaw             = "raw-loader"
	LoaderCSS             = "css-loader"
	LoaderScopedCSS       = "scoped-css-loader"
	LoaderSass            = "sass-loader"
	LoaderIsomorphicStyle = "isomorphic-style-loader"
)

type CircularDependencyOptions struct {
	Exclude     Pattern `json:"exclude"`
	FailOnError bool    `json:"failOnError"`
}

type HardSourceOptions struct {
	CacheDirectory string `json:"cacheDirectory"`
}

type BundleAnalyzerOptions struct {
	AnalyzerMode string `json:"analyzerMode"`
	DefaultSizes string `json:"defaultSizes"`
	OpenAnalyzer bool   `json:"openAnalyzer"`
}

type TerserPluginOptions struct {
	Test          Pattern       `json:"test"`
	TerserOptions TerserOptions `json:"terserOptions"`
	Parallel      bool          `json:"parallel"`
	SourceMap     bool          `json:"sourceMap"`
	Cache         CacheDir      `json:"cache"`
}

type TerserOptions struct {
	Warnings bool           `json:"warnings"`
	Compress TerserCompress `json:"compress"`
	Output   TerserOutput   `json:"output"`
	Mangle   bool           `json:"mangle"`
}

type TerserCompress struct {
	PureGetters  bool `json:"pure_getters"`
	UnsafeProto  bool `json:"unsafe_proto"`
	Passes       int  `json:"passes"`
	JoinVars     bool `json:"join_vars"`
	Sequences    bool `json:"sequences"`
	DropDebugger bool `json:"drop_debugger"`
}

type TerserOutput struct {
	Beautify bool `json:"beautify"`
}

// Document renders the descriptor as a generic document with Extra merged
// last, so extra keys replace computed ones.
func (d Descriptor) Document() (map[string]any, error) {
	type plain Descriptor
	raw, err := json.Marshal(plain(d))
	if err != nil {
		return nil, err
	}

	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if d.Optimization == nil {
		doc["optimization"] = map[string]any{}
	}

	maps.Copy(doc, d.Extra)
	return doc, nil
}

// MarshalJSON renders Document.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	doc, err := d.Document()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// MarshalYAML renders the same document as MarshalJSON.
func (d Descriptor) MarshalYAML() (any, error) {
	doc, err := d.Document()
	if err != nil {
		return nil, err
	}
	// round trip through JSON so custom marshalers in Extra apply
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Effective returns the descriptor a bundler would see once Extra has been
// applied.
func (d Descriptor) Effective() (*Descriptor, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	type plain Descriptor
	var out plain
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("apply extra options: %w", err)
	}
	if out.Optimization != nil && !out.Optimization.Minimize && len(out.Optimization.Minimizer) == 0 {
		out.Optimization = nil
	}

	eff := Descriptor(out)
	eff.Extra = maps.Clone(d.Extra)
	return &eff, nil
}
