package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/klauspost/compress/gzip"
)

// countingWriter counts bytes written to it and discards them.
type countingWriter struct {
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}

// gzipSize returns the size of data after gzip compression.
func gzipSize(data []byte) (int, error) {
	counter := &countingWriter{}

	zw, err := gzip.NewWriterLevel(counter, gzip.BestCompression)
	if err != nil {
		return 0, err
	}
	if _, err := zw.Write(data); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return counter.n, nil
}

func outputSizes(files []api.OutputFile) ([]OutputSize, error) {
	sizes := make([]OutputSize, 0, len(files))
	for _, f := range files {
		gz, err := gzipSize(f.Contents)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", f.Path, err)
		}
		sizes = append(sizes, OutputSize{Path: f.Path, Bytes: len(f.Contents), GzipBytes: gz})
	}
	return sizes, nil
}

// writeReport renders a static bundle analysis: output sizes followed by
// esbuild's per input breakdown.
func writeReport(w io.Writer, buildID string, sizes []OutputSize, metafile string) error {
	if _, err := fmt.Fprintf(w, "build %s\n\n", buildID); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "bytes\tgzip\t")
	for _, s := range sizes {
		fmt.Fprintf(tw, "%d\t%d\t  %s\n", s.Bytes, s.GzipBytes, s.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	analysis := api.AnalyzeMetafile(metafile, api.AnalyzeMetafileOptions{})
	_, err := io.WriteString(w, "\n"+strings.TrimLeft(analysis, "\n"))
	return err
}

func saveReport(path, buildID string, sizes []OutputSize, metafile string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return writeReport(f, buildID, sizes, metafile)
}
