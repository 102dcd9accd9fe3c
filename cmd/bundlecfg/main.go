package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/bundlecfg/cmd/bundlecfg/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Config     commands.ConfigCmd     `cmd:"" help:"Print the bundler configuration descriptor"`
		Build      commands.BuildCmd      `cmd:"" help:"Bundle the project with esbuild"`
		VersionTag commands.VersionTagCmd `cmd:"" name:"version" help:"Print the version tag of a package manifest"`
		Debug      bool                   `help:"Enable debug mode."`
		Tracing    bool                   `help:"Enable tracing." env:"BUNDLECFG_TRACING"`
		Version    kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("bundlecfg"),
		kong.Description("Generate bundler configuration descriptors and build with esbuild."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Tracing: cli.Tracing, Version: version})
	cmd.FatalIfErrorf(err)
}
