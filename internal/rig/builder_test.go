package rig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

func testEvidence(line int) Evidence {
	return Evidence{CallStack: []Frame{{File: "/repo/CMakeLists.txt", Line: line, Command: "add_executable"}}}
}

func newTestBuilder() *Builder {
	b := NewBuilder()
	b.SetRepository(Repository{
		Name:      "demo",
		RootPath:  "/repo",
		BuildDir:  "/repo/build",
		OutputDir: "/repo/build/out",
	})
	b.SetBuildSystem(BuildSystem{Name: "cmake", Version: "3.28.1", Generator: "Ninja"})
	return b
}

func TestBuildAssignsDeterministicIDs(t *testing.T) {
	t.Parallel()

	build := func() *Graph {
		b := newTestBuilder()
		zlibKey := b.AddExternal(ExternalPackage{Manager: ManagerSystem, Name: "z"})
		boostKey := b.AddExternal(ExternalPackage{Manager: ManagerVcpkg, Name: "boost_system", Version: "1_87"})
		require.NoError(t, b.AddComponent(ComponentDraft{
			Name: "app", Kind: ComponentExecutable, Language: LanguageCpp, Runtime: RuntimeClangLike,
			OutputPath: "/repo/build/out/app", OutputFilename: "app",
			DependsOn: []string{"core"}, ExternalKeys: []string{boostKey},
			Evidence: testEvidence(5),
		}))
		require.NoError(t, b.AddComponent(ComponentDraft{
			Name: "core", Kind: ComponentStaticLibrary, Language: LanguageCpp, Runtime: RuntimeClangLike,
			OutputPath: "/repo/build/out/libcore.a", OutputFilename: "libcore.a",
			ExternalKeys: []string{zlibKey},
			Evidence:     testEvidence(3),
		}))
		require.NoError(t, b.AddAggregator(AggregatorDraft{Name: "all_libs", DependsOn: []string{"core"}, Evidence: testEvidence(9)}))
		require.NoError(t, b.AddTest(TestDraft{
			Name: "app_test", Framework: FrameworkCTest,
			Command: []string{"/repo/build/out/app"}, LinkedComponent: "app",
			Evidence: testEvidence(12),
		}))
		g, err := b.Build()
		require.NoError(t, err)
		return g
	}

	first := build()
	second := build()

	require.Equal(t, first.Summary(), second.Summary())

	// Pre-order: repository, build system, externals (canonical sort),
	// components in topological order, aggregators, tests.
	assert.Equal(t, ID(1), first.Repository.ID)
	assert.Equal(t, ID(2), first.BuildSystem.ID)
	require.Len(t, first.Externals, 2)
	assert.Equal(t, ManagerSystem, first.Externals[0].Manager)
	assert.Equal(t, ID(3), first.Externals[0].ID)
	assert.Equal(t, ManagerVcpkg, first.Externals[1].Manager)
	assert.Equal(t, ID(4), first.Externals[1].ID)

	require.Len(t, first.Components, 2)
	assert.Equal(t, "core", first.Components[0].Name, "dependency ordered before dependent")
	assert.Equal(t, ID(5), first.Components[0].ID)
	assert.Equal(t, "app", first.Components[1].Name)
	assert.Equal(t, ID(6), first.Components[1].ID)
	assert.Equal(t, []ID{5}, first.Components[1].DependsOn)

	require.Len(t, first.Aggregators, 1)
	assert.Equal(t, ID(7), first.Aggregators[0].ID)
	assert.Equal(t, []ID{5}, first.Aggregators[0].DependsOn)

	require.Len(t, first.Tests, 1)
	test := first.Tests[0]
	assert.Equal(t, ID(8), test.ID)
	assert.Equal(t, first.Components[1].ID, test.LinkedComponent)
	assert.Equal(t, test.ID, first.Components[1].TestLink)
}

func TestBuildTopoTieBreakIsLexicographic(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, b.AddComponent(ComponentDraft{
			Name: name, Kind: ComponentStaticLibrary, Language: LanguageC, Runtime: RuntimeClangLike,
			OutputPath: "/repo/build/out/lib" + name + ".a", OutputFilename: "lib" + name + ".a",
			Evidence: testEvidence(2),
		}))
	}
	g, err := b.Build()
	require.NoError(t, err)

	names := []string{g.Components[0].Name, g.Components[1].Name, g.Components[2].Name}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestBuildRejectsCycleWithPath(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	require.NoError(t, b.AddComponent(ComponentDraft{
		Name: "A", Kind: ComponentStaticLibrary, OutputPath: "/repo/build/out/libA.a",
		DependsOn: []string{"B"}, Evidence: testEvidence(1),
	}))
	require.NoError(t, b.AddComponent(ComponentDraft{
		Name: "B", Kind: ComponentStaticLibrary, OutputPath: "/repo/build/out/libB.a",
		DependsOn: []string{"A"}, Evidence: testEvidence(2),
	}))

	_, err := b.Build()
	var cycErr *rigerrors.CyclicDependencyError
	require.ErrorAs(t, err, &cycErr)
	require.Len(t, cycErr.Path, 3)
	assert.Equal(t, cycErr.Path[0], cycErr.Path[len(cycErr.Path)-1])
	assert.Contains(t, cycErr.Path, "A")
	assert.Contains(t, cycErr.Path, "B")
}

func TestBuildRejectsDanglingDependency(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	require.NoError(t, b.AddComponent(ComponentDraft{
		Name: "app", Kind: ComponentExecutable, OutputPath: "/repo/build/out/app",
		DependsOn: []string{"missing"}, Evidence: testEvidence(1),
	}))

	_, err := b.Build()
	var dangErr *rigerrors.DanglingDependencyError
	require.ErrorAs(t, err, &dangErr)
	assert.Equal(t, "app", dangErr.Target)
	assert.Equal(t, "missing", dangErr.DependencyID)
}

func TestAddComponentRejectsDuplicates(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	draft := ComponentDraft{Name: "app", Kind: ComponentExecutable, OutputPath: "/x", Evidence: testEvidence(1)}
	require.NoError(t, b.AddComponent(draft))

	err := b.AddComponent(draft)
	var dupErr *rigerrors.DuplicateEntityError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "app", dupErr.EntityName)
}

func TestBuildRejectsEvidenceOutsideRoot(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	require.NoError(t, b.AddComponent(ComponentDraft{
		Name: "app", Kind: ComponentExecutable, OutputPath: "/repo/build/out/app",
		Evidence: Evidence{CallStack: []Frame{{File: "/usr/share/cmake/Modules/UseJava.cmake", Line: 974}}},
	}))

	_, err := b.Build()
	var evErr *rigerrors.EvidenceMissingError
	require.ErrorAs(t, err, &evErr)
	assert.Equal(t, "app", evErr.EntityName)
}

func TestBuildRejectsLocationEvidenceOutsideRoot(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	require.NoError(t, b.AddComponent(ComponentDraft{
		Name: "app", Kind: ComponentExecutable, OutputPath: "/repo/build/out/app",
		Locations: []ComponentLocation{{
			Path:     "/usr/local/bin/app",
			Action:   ActionInstall,
			Evidence: Evidence{CallStack: []Frame{{File: "/opt/vcpkg/scripts/ports.cmake", Line: 12}}},
		}},
		Evidence: testEvidence(5),
	}))

	_, err := b.Build()
	var evErr *rigerrors.EvidenceMissingError
	require.ErrorAs(t, err, &evErr)
	assert.Contains(t, evErr.EntityName, "/usr/local/bin/app")
}

func TestBuildRejectsLocationWithEmptyEvidence(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	require.NoError(t, b.AddComponent(ComponentDraft{
		Name: "app", Kind: ComponentExecutable, OutputPath: "/repo/build/out/app",
		Locations: []ComponentLocation{{Path: "/repo/build/out/app", Action: ActionBuild}},
		Evidence:  testEvidence(5),
	}))

	_, err := b.Build()
	var evErr *rigerrors.EvidenceMissingError
	require.ErrorAs(t, err, &evErr)
	assert.Equal(t, "component_location", evErr.EntityKind)
}

func TestBuildRejectsEmptyEvidence(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	require.NoError(t, b.AddComponent(ComponentDraft{
		Name: "app", Kind: ComponentExecutable, OutputPath: "/repo/build/out/app",
	}))

	_, err := b.Build()
	var evErr *rigerrors.EvidenceMissingError
	require.ErrorAs(t, err, &evErr)
}

func TestBuildAllowsUtilityWithoutEvidence(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	require.NoError(t, b.AddUtility(UtilityDraft{Name: "phony"}))

	g, err := b.Build()
	require.NoError(t, err)
	require.Len(t, g.Utilities, 1)
	assert.True(t, g.Utilities[0].Evidence.Empty())
}

func TestAddExternalDeduplicates(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	k1 := b.AddExternal(ExternalPackage{Manager: ManagerVcpkg, Name: "boost_system", Version: "1_87"})
	k2 := b.AddExternal(ExternalPackage{Manager: ManagerVcpkg, Name: "boost_system", Version: "1_87"})
	assert.Equal(t, k1, k2)

	k3 := b.AddExternal(ExternalPackage{Manager: ManagerVcpkg, Name: "boost_system"})
	assert.NotEqual(t, k1, k3, "missing version is a distinct package")

	g, err := b.Build()
	require.NoError(t, err)
	require.Len(t, g.Externals, 2)
	assert.Equal(t, VersionUnknown, g.Externals[1].Version)
}

func TestWithinRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		root     string
		path     string
		expected bool
	}{
		{"inside", "/repo", "/repo/CMakeLists.txt", true},
		{"nested", "/repo", "/repo/src/main.cpp", true},
		{"equal", "/repo", "/repo", true},
		{"outside", "/repo", "/usr/share/cmake/Modules/UseJava.cmake", false},
		{"sibling prefix", "/repo", "/repository/file.txt", false},
		{"empty path", "/repo", "", false},
		{"unclean", "/repo", "/repo/src/../CMakeLists.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WithinRoot(tt.root, tt.path))
		})
	}
}

func TestEvidenceLeafAndString(t *testing.T) {
	t.Parallel()

	ev := Evidence{CallStack: []Frame{
		{File: "/repo/CMakeLists.txt", Line: 36, Command: "add_jar"},
		{File: "/repo/CMakeLists.txt", Line: 1},
	}}
	assert.Equal(t, 36, ev.Leaf().Line)
	assert.Equal(t, "/repo/CMakeLists.txt:36 <- /repo/CMakeLists.txt:1", ev.String())

	var empty Evidence
	assert.True(t, empty.Empty())
	assert.Equal(t, Frame{}, empty.Leaf())
}
