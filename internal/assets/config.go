package assets

type Config struct {
	// Path to metafile, relative paths are resolved against the output path
	MetafilePath string
	// Name of the bundle analysis report written next to the outputs
	ReportName string
	// Whether esbuild writes outputs to disk
	Write bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MetafilePath: "meta.json",
		ReportName:   "report.txt",
		Write:        true,
	}
}
