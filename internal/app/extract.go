// Package app orchestrates the extraction pipeline: read raw targets and
// tests from the build-system plugin, classify them, resolve dependencies and
// external packages, link tests to components, assemble the frozen graph, and
// persist it.
package app

import (
	"context"
	"path/filepath"

	"github.com/greenfuze/rig/internal/backtrace"
	"github.com/greenfuze/rig/internal/classify"
	"github.com/greenfuze/rig/internal/config"
	"github.com/greenfuze/rig/internal/discover"
	"github.com/greenfuze/rig/internal/linker"
	"github.com/greenfuze/rig/internal/ports"
	"github.com/greenfuze/rig/internal/resolve"
	"github.com/greenfuze/rig/internal/rig"
	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

// Options parameterize one extraction run.
type Options struct {
	RepoRoot string
	BuildDir string
	Config   *config.Config
}

// Extractor runs the pipeline. It is single-use per graph; the stages are
// sequential and deterministic.
type Extractor struct {
	plugin ports.BuildSystemPlugin
	store  ports.Store
	log    ports.Logger
}

// NewExtractor wires an Extractor from its collaborators.
func NewExtractor(plugin ports.BuildSystemPlugin, store ports.Store, log ports.Logger) *Extractor {
	return &Extractor{plugin: plugin, store: store, log: log}
}

// Execute builds and persists the graph for one repository/build-tree pair.
// On any error nothing is persisted.
func (e *Extractor) Execute(ctx context.Context, opts Options) (*rig.Graph, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	repoRoot := filepath.Clean(opts.RepoRoot)
	buildDir := filepath.Clean(opts.BuildDir)

	targets, err := e.plugin.Targets(ctx)
	if err != nil {
		return nil, err
	}
	toolchains, err := e.plugin.Toolchains(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := e.plugin.Cache(ctx)
	if err != nil {
		return nil, err
	}
	rawTests, err := e.plugin.Tests(ctx)
	if err != nil {
		return nil, err
	}

	builder := rig.NewBuilder()
	builder.SetRepository(e.repository(repoRoot, buildDir, cfg))
	builder.SetBuildSystem(rig.BuildSystem{
		Name:      e.plugin.Name(),
		Version:   e.plugin.Version(),
		Generator: e.plugin.Generator(),
		BuildType: e.plugin.BuildType(),
	})

	resolver := resolve.New(cache, targets, repoRoot)

	// Node names by raw target id, for translating dependency edges. Targets
	// classified as interface/external/unknown never become nodes; edges to
	// them are dropped, edges to ids absent from the codemodel are fatal.
	nodeNames := make(map[string]string, len(targets))
	knownIDs := make(map[string]bool, len(targets))
	decisions := make(map[string]classify.Decision, len(targets))
	for _, target := range targets {
		knownIDs[target.ID] = true
		d := classify.Classify(target, toolchains)
		decisions[target.ID] = d
		switch d.NodeKind {
		case rig.NodeComponent, rig.NodeAggregator, rig.NodeRunner, rig.NodeUtility:
			nodeNames[target.ID] = target.Name
		}
	}

	var linkInfos []linker.ComponentInfo

	for _, target := range targets {
		d := decisions[target.ID]
		for _, warning := range d.Warnings {
			e.log.Warn(ctx, "classification conflict", "target", target.Name, "detail", warning)
		}

		deps, err := e.dependencyNames(target, nodeNames, knownIDs)
		if err != nil {
			return nil, err
		}

		switch d.NodeKind {
		case rig.NodeComponent:
			draft, info, err := e.componentDraft(target, d, deps, resolver, builder, repoRoot)
			if err != nil {
				return nil, err
			}
			if err := builder.AddComponent(draft); err != nil {
				return nil, err
			}
			linkInfos = append(linkInfos, info)

		case rig.NodeAggregator:
			ev, err := e.targetEvidence(target, repoRoot)
			if err != nil {
				return nil, err
			}
			if err := builder.AddAggregator(rig.AggregatorDraft{Name: target.Name, DependsOn: deps, Evidence: ev}); err != nil {
				return nil, err
			}

		case rig.NodeRunner:
			ev, err := e.targetEvidence(target, repoRoot)
			if err != nil {
				return nil, err
			}
			if err := builder.AddRunner(rig.RunnerDraft{Name: target.Name, DependsOn: deps, Evidence: ev}); err != nil {
				return nil, err
			}

		case rig.NodeUtility:
			// Signal-free utilities legitimately have no backtrace; keep
			// whatever evidence exists without failing on its absence.
			ev := rig.Evidence{}
			if target.Backtrace != nil {
				if walked, err := e.targetEvidence(target, repoRoot); err == nil {
					ev = walked
				}
			}
			if err := builder.AddUtility(rig.UtilityDraft{Name: target.Name, Evidence: ev}); err != nil {
				return nil, err
			}

		default:
			e.log.Debug(ctx, "target not represented as graph node",
				"target", target.Name, "kind", string(d.NodeKind))
		}
	}

	testLinker := linker.New(buildDir, linkInfos)
	for _, rawTest := range rawTests {
		draft, err := e.testDraft(ctx, rawTest, testLinker, repoRoot)
		if err != nil {
			return nil, err
		}
		if err := builder.AddTest(draft); err != nil {
			return nil, err
		}
	}

	graph, err := builder.Build()
	if err != nil {
		return nil, err
	}

	if err := e.store.Persist(ctx, graph); err != nil {
		return nil, err
	}

	e.log.Info(ctx, "extraction complete",
		"components", len(graph.Components),
		"tests", len(graph.Tests),
		"externals", len(graph.Externals))
	return graph, nil
}

func (e *Extractor) repository(repoRoot, buildDir string, cfg *config.Config) rig.Repository {
	info := discover.Repository(repoRoot)
	name := info.Name
	if cfg.Repository.Name != "" {
		name = cfg.Repository.Name
	}
	outputDir := buildDir
	if cfg.Repository.OutputDir != "" {
		outputDir = cfg.Repository.OutputDir
		if !filepath.IsAbs(outputDir) {
			outputDir = filepath.Join(repoRoot, outputDir)
		}
	}
	return rig.Repository{
		Name:         name,
		RootPath:     repoRoot,
		BuildDir:     buildDir,
		OutputDir:    outputDir,
		ConfigureCmd: cfg.Commands.Configure,
		BuildCmd:     cfg.Commands.Build,
		InstallCmd:   cfg.Commands.Install,
		TestCmd:      cfg.Commands.Test,
	}
}

func (e *Extractor) dependencyNames(target ports.RawTarget, nodeNames map[string]string, knownIDs map[string]bool) ([]string, error) {
	var deps []string
	for _, depID := range target.Dependencies {
		if name, ok := nodeNames[depID]; ok {
			deps = append(deps, name)
			continue
		}
		if !knownIDs[depID] {
			return nil, rigerrors.NewDanglingDependencyError(target.Name, depID)
		}
		// Known target that is not a graph node (interface library etc.);
		// the edge has nowhere to point.
	}
	return deps, nil
}

func (e *Extractor) targetEvidence(target ports.RawTarget, repoRoot string) (rig.Evidence, error) {
	if target.Backtrace == nil {
		return rig.Evidence{}, rigerrors.NewEvidenceMissingError(string(rig.NodeComponent), target.Name, "target has no backtrace")
	}
	return backtrace.Walk(*target.Backtrace, target.BacktraceGraph, repoRoot, target.Name)
}

func (e *Extractor) componentDraft(
	target ports.RawTarget,
	d classify.Decision,
	deps []string,
	resolver *resolve.Resolver,
	builder *rig.Builder,
	repoRoot string,
) (rig.ComponentDraft, linker.ComponentInfo, error) {
	ev, err := e.targetEvidence(target, repoRoot)
	if err != nil {
		return rig.ComponentDraft{}, linker.ComponentInfo{}, err
	}

	var outputPath, outputFilename string
	if len(target.Artifacts) > 0 {
		outputPath = target.Artifacts[0]
		outputFilename = filepath.Base(outputPath)
	}
	if target.NameOnDisk != "" {
		outputFilename = target.NameOnDisk
	}

	sources := make([]string, 0, len(target.Sources))
	var linkLibraries []string
	for _, src := range target.Sources {
		sources = append(sources, relativeTo(repoRoot, src.Path))
	}
	for _, frag := range target.LinkFragments {
		linkLibraries = append(linkLibraries, frag.Fragment)
	}

	var externalKeys []string
	for _, pkg := range resolver.Externals(target) {
		externalKeys = append(externalKeys, builder.AddExternal(pkg))
	}

	// The primary artifact is the canonical output; further artifacts and
	// install rules become additional locations.
	var locations []rig.ComponentLocation
	if outputPath != "" {
		locations = append(locations, rig.ComponentLocation{Path: outputPath, Action: rig.ActionBuild, Evidence: ev})
	}
	if len(target.Artifacts) > 1 {
		for _, artifact := range target.Artifacts[1:] {
			locations = append(locations, rig.ComponentLocation{Path: artifact, Action: rig.ActionBuild, Evidence: ev})
		}
	}
	for _, dest := range target.InstallDestinations {
		installEv := ev
		if dest.Backtrace != nil {
			if walked, err := backtrace.Walk(*dest.Backtrace, target.BacktraceGraph, repoRoot, target.Name); err == nil {
				installEv = walked
			}
		}
		locations = append(locations, rig.ComponentLocation{
			Path:           filepath.Join(dest.Path, outputFilename),
			Action:         rig.ActionInstall,
			SourceLocation: outputPath,
			Evidence:       installEv,
		})
	}

	draft := rig.ComponentDraft{
		Name:           target.Name,
		Kind:           d.ComponentKind,
		Language:       d.Language,
		Languages:      d.Languages,
		Runtime:        d.Runtime,
		OutputFilename: outputFilename,
		OutputPath:     outputPath,
		Sources:        sources,
		ExternalKeys:   externalKeys,
		DependsOn:      deps,
		Locations:      locations,
		Evidence:       ev,
	}
	info := linker.ComponentInfo{
		Name:           target.Name,
		OutputPath:     outputPath,
		OutputFilename: outputFilename,
		Sources:        sources,
		LinkLibraries:  linkLibraries,
	}
	return draft, info, nil
}

func (e *Extractor) testDraft(ctx context.Context, rawTest ports.RawTest, testLinker *linker.Linker, repoRoot string) (rig.TestDraft, error) {
	if rawTest.Backtrace == nil {
		return rig.TestDraft{}, rigerrors.NewEvidenceMissingError(string(rig.NodeTest), rawTest.Name, "test has no backtrace")
	}
	ev, err := backtrace.Walk(*rawTest.Backtrace, rawTest.BacktraceGraph, repoRoot, rawTest.Name)
	if err != nil {
		return rig.TestDraft{}, err
	}

	res := testLinker.Link(rawTest)
	if res.Ambiguous {
		e.log.Warn(ctx, "ambiguous test linkage left unlinked", "test", rawTest.Name)
	}

	return rig.TestDraft{
		Name:            rawTest.Name,
		Framework:       res.Framework,
		Command:         rawTest.Command,
		Properties:      rawTest.Properties,
		LinkedComponent: res.LinkedComponent,
		Evidence:        ev,
	}, nil
}

// relativeTo rewrites path relative to root when it lies inside it.
func relativeTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !filepath.IsAbs(rel) && rel != ".." && !hasDotDotPrefix(rel) {
		return rel
	}
	return path
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
