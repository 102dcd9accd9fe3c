package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/bundlecfg/internal/assets"
)

type BuildCmd struct {
	BuildFlags `embed:""`

	Metafile string `help:"metafile path, relative to the output directory" default:"meta.json" env:"BUNDLECFG_METAFILE"`
	Report   string `help:"bundle report name, relative to the output directory" default:"report.txt" env:"BUNDLECFG_REPORT"`
	DryRun   bool   `help:"run the bundler without writing outputs"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	log, shutdown := globals.setup(ctx)
	defer shutdown()

	desc, release, err := c.descriptor(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to assemble descriptor: %w", err)
	}
	defer release()

	pipeline := assets.New(assets.Config{
		MetafilePath: c.Metafile,
		ReportName:   c.Report,
		Write:        !c.DryRun,
	})

	res, err := pipeline.Build(ctx, desc)
	if err != nil {
		return err
	}

	for _, out := range res.Outputs {
		fmt.Fprintf(stdout, "%8d %8d  %s\n", out.Bytes, out.GzipBytes, out.Path)
	}

	log.Info().
		Str("build_id", res.BuildID).
		Int("outputs", len(res.Outputs)).
		Int("warnings", len(res.Warnings)).
		Int("cycles", len(res.Cycles)).
		Msg("Build complete")

	return nil
}
