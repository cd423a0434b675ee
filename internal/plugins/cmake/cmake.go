// Package cmakeplugin implements the build-system plugin contract over the
// CMake File API v1 reply set and the CTest JSON test listing.
package cmakeplugin

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/greenfuze/rig/internal/backtrace"
	"github.com/greenfuze/rig/internal/ctest"
	"github.com/greenfuze/rig/internal/fileapi"
	"github.com/greenfuze/rig/internal/ports"
)

// Plugin reads a configured CMake build tree. It never mutates the repository
// or the build tree.
type Plugin struct {
	repoRoot  string
	buildDir  string
	sourceDir string
	reply     *fileapi.Reply
	listCmd   []string
	log       ports.Logger
}

var _ ports.BuildSystemPlugin = (*Plugin)(nil)

// Option customizes plugin construction.
type Option func(*Plugin)

// WithTestCommand overrides the test listing invocation. Used by tests and by
// callers whose ctest lives outside PATH.
func WithTestCommand(command []string) Option {
	return func(p *Plugin) { p.listCmd = command }
}

// Discover loads the reply set of a configured build tree, failing fast when
// the tree has no File API reply.
func Discover(ctx context.Context, repoRoot, buildDir string, log ports.Logger, opts ...Option) (*Plugin, error) {
	reply, err := fileapi.Load(ctx, buildDir, log)
	if err != nil {
		return nil, err
	}

	sourceDir := reply.Codemodel.Paths.Source
	if sourceDir == "" {
		sourceDir = repoRoot
	}

	p := &Plugin{
		repoRoot:  filepath.Clean(repoRoot),
		buildDir:  filepath.Clean(buildDir),
		sourceDir: filepath.Clean(sourceDir),
		reply:     reply,
		listCmd:   ctest.DefaultCommand,
		log:       log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name identifies the build system.
func (p *Plugin) Name() string { return "cmake" }

// Version is the cmake version that wrote the reply.
func (p *Plugin) Version() string { return p.reply.CMakeVersion }

// Generator names the configured generator.
func (p *Plugin) Generator() string { return p.reply.Generator }

// BuildType is the configured CMAKE_BUILD_TYPE, empty for multi-config trees.
func (p *Plugin) BuildType() string { return p.reply.CacheValue("CMAKE_BUILD_TYPE") }

// Targets loads every target of the first configuration in name order.
func (p *Plugin) Targets(ctx context.Context) ([]ports.RawTarget, error) {
	pointers := p.reply.TargetPointers("")
	out := make([]ports.RawTarget, 0, len(pointers))
	for _, ptr := range pointers {
		target, err := p.reply.Target(ptr)
		if err != nil {
			return nil, err
		}
		out = append(out, p.convertTarget(target))
	}
	return out, nil
}

func (p *Plugin) convertTarget(t *fileapi.Target) ports.RawTarget {
	raw := ports.RawTarget{
		ID:             t.ID,
		Name:           t.Name,
		Type:           t.Type,
		NameOnDisk:     t.NameOnDisk,
		Backtrace:      t.Backtrace,
		BacktraceGraph: toSource(t.BacktraceGraph.Nodes, t.BacktraceGraph.Commands, t.BacktraceGraph.Files),
	}

	for _, artifact := range t.Artifacts {
		raw.Artifacts = append(raw.Artifacts, p.absBuild(artifact.Path))
	}

	for _, src := range t.Sources {
		// CMake materializes custom commands as .rule sources; their
		// presence is the only File API signal that a utility target
		// carries a command.
		if strings.HasSuffix(src.Path, ".rule") {
			raw.HasCommand = true
			continue
		}
		language := ""
		if src.CompileGroupIndex != nil && *src.CompileGroupIndex < len(t.CompileGroups) {
			language = t.CompileGroups[*src.CompileGroupIndex].Language
		}
		raw.Sources = append(raw.Sources, ports.RawSource{
			Path:      p.absSource(src.Path),
			Language:  language,
			Generated: src.IsGenerated,
		})
	}

	for _, cg := range t.CompileGroups {
		raw.CompileGroupLangs = append(raw.CompileGroupLangs, cg.Language)
	}

	for _, dep := range t.Dependencies {
		raw.Dependencies = append(raw.Dependencies, dep.ID)
	}

	if t.Link != nil {
		raw.LinkLanguage = t.Link.Language
		for _, frag := range t.Link.CommandFragments {
			raw.LinkFragments = append(raw.LinkFragments, ports.RawLinkFragment{
				Fragment: frag.Fragment,
				Role:     frag.Role,
			})
		}
	}

	if t.Install != nil {
		prefix := t.Install.Prefix.Path
		for _, dest := range t.Install.Destinations {
			path := dest.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(prefix, path)
			}
			raw.InstallDestinations = append(raw.InstallDestinations, ports.RawInstallDestination{
				Path:      filepath.Clean(path),
				Backtrace: dest.Backtrace,
			})
		}
	}

	return raw
}

// Tests runs the test listing command and converts its document.
func (p *Plugin) Tests(ctx context.Context) ([]ports.RawTest, error) {
	doc, err := ctest.Run(ctx, p.buildDir, p.listCmd, p.log)
	if err != nil {
		return nil, err
	}

	graph := ctestSource(doc.BacktraceGraph)
	out := make([]ports.RawTest, 0, len(doc.Tests))
	for _, tc := range doc.Tests {
		out = append(out, ports.RawTest{
			Name:           tc.Name,
			Command:        append([]string(nil), tc.Command...),
			Properties:     tc.PropertyMap(),
			Backtrace:      tc.Backtrace,
			BacktraceGraph: graph,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Toolchains maps language names to toolchain information.
func (p *Plugin) Toolchains(ctx context.Context) (map[string]ports.ToolchainInfo, error) {
	out := make(map[string]ports.ToolchainInfo)
	if p.reply.Toolchains == nil {
		return out, nil
	}
	for _, tc := range p.reply.Toolchains.Toolchains {
		out[tc.Language] = ports.ToolchainInfo{
			Language:        tc.Language,
			CompilerID:      tc.Compiler.ID,
			CompilerPath:    tc.Compiler.Path,
			CompilerVersion: tc.Compiler.Version,
		}
	}
	return out, nil
}

// Cache flattens the build cache into a string map.
func (p *Plugin) Cache(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	if p.reply.Cache == nil {
		return out, nil
	}
	for _, entry := range p.reply.Cache.Entries {
		out[entry.Name] = entry.Value
	}
	return out, nil
}

// ListFiles returns the in-repo, non-generated list files that participated
// in configuration, in sorted order.
func (p *Plugin) ListFiles(ctx context.Context) ([]string, error) {
	var out []string
	if p.reply.CMakeFiles == nil {
		return out, nil
	}
	for _, input := range p.reply.CMakeFiles.Inputs {
		if input.IsGenerated || input.IsExternal {
			continue
		}
		out = append(out, p.absSource(input.Path))
	}
	sort.Strings(out)
	return out, nil
}

func (p *Plugin) absBuild(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.buildDir, path)
	}
	return filepath.Clean(path)
}

func (p *Plugin) absSource(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.sourceDir, path)
	}
	return filepath.Clean(path)
}

func toSource(nodes []fileapi.BacktraceNode, commands, files []string) backtrace.Source {
	src := backtrace.Source{Commands: commands, Files: files}
	for _, n := range nodes {
		src.Nodes = append(src.Nodes, backtrace.Node{
			File:    n.File,
			Line:    n.Line,
			Command: n.Command,
			Parent:  n.Parent,
		})
	}
	return src
}

func ctestSource(g ctest.BacktraceGraph) backtrace.Source {
	src := backtrace.Source{Commands: g.Commands, Files: g.Files}
	for _, n := range g.Nodes {
		src.Nodes = append(src.Nodes, backtrace.Node{
			File:    n.File,
			Line:    n.Line,
			Command: n.Command,
			Parent:  n.Parent,
		})
	}
	return src
}
