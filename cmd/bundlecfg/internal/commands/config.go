package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wolfeidau/bundlecfg/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gopkg.in/yaml.v3"
)

type ConfigCmd struct {
	BuildFlags `embed:""`

	Format string `help:"output format" short:"f" default:"json" enum:"json,yaml" env:"BUNDLECFG_FORMAT"`
	Output string `help:"write the descriptor to a file instead of stdout" short:"o" type:"path"`
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	log, shutdown := globals.setup(ctx)
	defer shutdown()

	desc, release, err := c.descriptor(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to assemble descriptor: %w", err)
	}
	defer release()

	telemetry.GetMetrics().DescriptorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", desc.Mode),
		attribute.String("preset", c.Preset),
	))

	var data []byte
	switch c.Format {
	case "yaml":
		data, err = yaml.Marshal(desc)
	default:
		data, err = json.MarshalIndent(desc, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to render descriptor: %w", err)
	}

	if c.Output == "" {
		_, err = stdout.Write(data)
		return err
	}

	if err := os.WriteFile(c.Output, data, 0o600); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	log.Info().Str("path", c.Output).Str("format", c.Format).Msg("Wrote descriptor")

	return nil
}
