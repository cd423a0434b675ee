package ports

import (
	"context"

	"github.com/greenfuze/rig/internal/backtrace"
)

// RawSource is one source file of a raw target. Language is the compile-group
// language when the source belongs to one, otherwise empty.
type RawSource struct {
	Path      string
	Language  string
	Generated bool
}

// RawLinkFragment is one piece of a target's link command line.
type RawLinkFragment struct {
	Fragment string
	Role     string
}

// RawInstallDestination is one install rule attached to a target.
type RawInstallDestination struct {
	Path      string
	Backtrace *int
}

// RawTarget is the build-system-agnostic shape of a build target. Artifact
// and source paths are absolute; dependency entries are raw target ids of the
// same plugin.
type RawTarget struct {
	ID                  string
	Name                string
	Type                string
	NameOnDisk          string
	Artifacts           []string
	Sources             []RawSource
	CompileGroupLangs   []string
	LinkLanguage        string
	LinkFragments       []RawLinkFragment
	Dependencies        []string
	HasCommand          bool
	InstallDestinations []RawInstallDestination
	Backtrace           *int
	BacktraceGraph      backtrace.Source
}

// RawTest is the build-system-agnostic shape of a registered test.
type RawTest struct {
	Name           string
	Command        []string
	Properties     map[string]string
	Backtrace      *int
	BacktraceGraph backtrace.Source
}

// ToolchainInfo describes the compiler behind one language.
type ToolchainInfo struct {
	Language        string
	CompilerID      string
	CompilerPath    string
	CompilerVersion string
}

// BuildSystemPlugin abstracts the build system behind the extractor. The
// reference implementation reads the CMake File API and CTest JSON; other
// build systems supply their own implementation. Plugins never mutate the
// repository or the build tree, all returned paths are absolute, and every
// listing method is restartable.
type BuildSystemPlugin interface {
	// Name identifies the build system (e.g. "cmake").
	Name() string
	// Version is the build system version string, empty when unknown.
	Version() string
	// Generator names the configured generator, empty when not applicable.
	Generator() string
	// BuildType is the configured build type, empty when not applicable.
	BuildType() string
	// Targets lists every raw target of the configured build tree.
	Targets(ctx context.Context) ([]RawTarget, error)
	// Tests lists every test registered at configure time.
	Tests(ctx context.Context) ([]RawTest, error)
	// Toolchains maps language to toolchain information.
	Toolchains(ctx context.Context) (map[string]ToolchainInfo, error)
	// Cache exposes the build system's persistent configuration variables.
	Cache(ctx context.Context) (map[string]string, error)
	// ListFiles returns the build definition files that participated in
	// configuration, excluding generated and out-of-repo files.
	ListFiles(ctx context.Context) ([]string, error)
}
