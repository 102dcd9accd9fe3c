package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/bundlecfg/internal/version"
)

// VersionTagCmd prints a version in tag form, 1.2.3 becomes 1_2_3.
type VersionTagCmd struct {
	Package string `help:"path to the package manifest" default:"package.json" type:"path" env:"BUNDLECFG_PACKAGE"`
	Next    bool   `help:"print the tag of the next version instead of the current one"`
	Level   string `help:"increment level used with --next" default:"patch" enum:"major,minor,patch,premajor,preminor,prepatch,prerelease"`
}

func (c *VersionTagCmd) Run(ctx context.Context, globals *Globals) error {
	log, shutdown := globals.setup(ctx)
	defer shutdown()

	pkg, err := version.ReadPackage(c.Package)
	if err != nil {
		return fmt.Errorf("failed to read package manifest: %w", err)
	}

	tag := version.CurrentVersion(pkg.Version)
	if c.Next {
		tag, err = version.NextVersion(pkg.Version, c.Level)
		if err != nil {
			return err
		}
	}

	log.Debug().Str("package", pkg.Name).Str("version", pkg.Version).Str("tag", tag).Msg("Resolved version tag")

	_, err = fmt.Fprintln(stdout, tag)
	return err
}
