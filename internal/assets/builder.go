package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/bundlecfg/internal/buildconfig"
	"github.com/wolfeidau/bundlecfg/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Build runs esbuild with the settings of desc and loads metadata
func (p *Pipeline) Build(ctx context.Context, desc *buildconfig.Descriptor) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := &Result{BuildID: uuid.NewString()}

	ctx, span := telemetry.Tracer().Start(ctx, "assets.Build",
		trace.WithAttributes(attribute.String("build.id", res.BuildID)))
	defer span.End()

	started := time.Now()
	err := p.build(ctx, desc, res)

	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("mode", desc.Mode))
	m.BuildsTotal.Add(ctx, 1, attrs)
	m.BuildDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)
	if err != nil {
		m.BuildErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return res, nil
}

func (p *Pipeline) build(ctx context.Context, desc *buildconfig.Descriptor, res *Result) error {
	eff, err := desc.Effective()
	if err != nil {
		return err
	}

	opts, err := BuildOptions(eff)
	if err != nil {
		return err
	}
	opts.Write = p.config.Write

	if len(opts.EntryPoints) == 0 {
		return ErrNoEntryPoints
	}

	log.Info().
		Str("build_id", res.BuildID).
		Str("mode", eff.Mode).
		Strs("entrypoints", opts.EntryPoints).
		Msg("Building assets")

	result := api.Build(opts)

	for _, msg := range result.Warnings {
		log.Warn().Str("build_id", res.BuildID).Str("warning", formatMessage(msg)).Msg("Build warning")
		res.Warnings = append(res.Warnings, formatMessage(msg))
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Error().Str("build_id", res.BuildID).Str("error", formatMessage(msg)).Msg("Build error")
		}
		return fmt.Errorf("%w: %s", ErrBuildFailed, formatMessage(result.Errors[0]))
	}

	res.Outputs, err = outputSizes(result.OutputFiles)
	if err != nil {
		return err
	}

	var total int64
	for _, out := range res.Outputs {
		total += int64(out.Bytes)
		log.Info().Str("file", out.Path).Int("bytes", out.Bytes).Msg("Built file")
	}
	telemetry.GetMetrics().OutputBytes.Add(ctx, total)

	// Write metafile
	metafilePath := p.resolve(eff.Output.Path, p.config.MetafilePath)
	if err := os.MkdirAll(filepath.Dir(metafilePath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(metafilePath, []byte(result.Metafile), 0600); err != nil {
		return err
	}

	// Parse and cache metadata
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return err
	}
	res.Metadata = &metadata
	p.metadata = &metadata

	return p.runPlugins(ctx, eff, res, result.Metafile)
}

// runPlugins applies the plugins that act on the finished build. The
// define plugin is consumed by BuildOptions.
func (p *Pipeline) runPlugins(ctx context.Context, desc *buildconfig.Descriptor, res *Result, metafile string) error {
	for _, plugin := range desc.Plugins {
		switch plugin.Name {
		case buildconfig.PluginDefine:
		case buildconfig.PluginCircularDeps:
			if err := p.checkCycles(ctx, plugin, res); err != nil {
				return err
			}
		case buildconfig.PluginBundleAnalyzer:
			var opts buildconfig.BundleAnalyzerOptions
			if err := plugin.DecodeOptions(&opts); err != nil {
				return err
			}
			path := p.resolve(desc.Output.Path, p.config.ReportName)
			if err := saveReport(path, res.BuildID, res.Outputs, metafile); err != nil {
				return fmt.Errorf("failed to write bundle report: %w", err)
			}
			res.ReportPath = path
			log.Info().Str("report", path).Str("mode", opts.AnalyzerMode).Msg("Wrote bundle report")
		case buildconfig.PluginHardSource:
			log.Debug().Str("plugin", plugin.Name).Msg("Persistent module cache is not supported by esbuild, skipping")
		default:
			log.Warn().Str("plugin", plugin.Name).Msg("Ignoring unknown plugin")
		}
	}
	return nil
}

func (p *Pipeline) checkCycles(ctx context.Context, plugin buildconfig.Plugin, res *Result) error {
	var opts buildconfig.CircularDependencyOptions
	if err := plugin.DecodeOptions(&opts); err != nil {
		return err
	}

	exclude, err := opts.Exclude.Compile()
	if err != nil {
		return fmt.Errorf("compile circular dependency exclude: %w", err)
	}

	res.Cycles = findCycles(res.Metadata, exclude)
	if len(res.Cycles) == 0 {
		return nil
	}

	telemetry.GetMetrics().CircularDepsTotal.Add(ctx, int64(len(res.Cycles)))

	for _, cycle := range res.Cycles {
		log.Warn().Str("build_id", res.BuildID).Strs("cycle", cycle).Msg("Circular dependency detected")
	}

	if opts.FailOnError {
		return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(res.Cycles[0], " -> "))
	}
	return nil
}

func (p *Pipeline) resolve(outputPath, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(outputPath, name)
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
