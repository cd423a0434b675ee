package main

import (
	"context"
	"fmt"
	"os"

	"github.com/greenfuze/rig/internal/plugin"
	cmakeplugin "github.com/greenfuze/rig/internal/plugins/cmake"
	"github.com/greenfuze/rig/internal/ports"
)

// Build-system plugins register here. Adding support for another build
// system means adding one Register call with its Discover function.
func init() {
	mustRegister("cmake", func(ctx context.Context, repoRoot, buildDir string, log ports.Logger) (ports.BuildSystemPlugin, error) {
		return cmakeplugin.Discover(ctx, repoRoot, buildDir, log)
	})
}

func mustRegister(name string, discover plugin.DiscoverFunc) {
	if err := plugin.Register(name, discover); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register %s plugin: %v\n", name, err)
		os.Exit(1)
	}
}
