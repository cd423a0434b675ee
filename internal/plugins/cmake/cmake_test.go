package cmakeplugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfuze/rig/internal/backtrace"
	"github.com/greenfuze/rig/internal/logging"
	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

const testReplyDir = ".cmake/api/v1/reply"

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// writeFixtureTree lays out a configured build tree for a small C++ project:
// an executable linking a static library and boost from vcpkg, plus a utility
// target whose only source is a custom-command .rule file.
func writeFixtureTree(t *testing.T, repoRoot, buildDir string) {
	t.Helper()
	dir := filepath.Join(buildDir, testReplyDir)

	graph := map[string]any{
		"commands": []string{"add_executable", "add_library", "add_custom_target"},
		"files":    []string{"CMakeLists.txt"},
		"nodes": []any{
			map[string]any{"file": 0},
			map[string]any{"file": 0, "line": 5, "command": 0, "parent": 0},
			map[string]any{"file": 0, "line": 3, "command": 1, "parent": 0},
			map[string]any{"file": 0, "line": 9, "command": 2, "parent": 0},
		},
	}

	writeJSON(t, filepath.Join(dir, "target-hello.json"), map[string]any{
		"id":         "hello_world::@1",
		"name":       "hello_world",
		"type":       "EXECUTABLE",
		"nameOnDisk": "hello_world",
		"artifacts":  []any{map[string]string{"path": "out/hello_world"}},
		"backtrace":  1,
		"backtraceGraph": graph,
		"sources": []any{
			map[string]any{"path": "src/main.cpp", "compileGroupIndex": 0},
		},
		"compileGroups": []any{
			map[string]any{"language": "CXX", "sourceIndexes": []int{0}},
		},
		"dependencies": []any{map[string]any{"id": "core::@1"}},
		"link": map[string]any{
			"language": "CXX",
			"commandFragments": []any{
				map[string]string{"fragment": "out/libcore.a", "role": "libraries"},
				map[string]string{"fragment": "/opt/vcpkg/installed/x64-linux/lib/libboost_system-1_87.a", "role": "libraries"},
			},
		},
		"install": map[string]any{
			"prefix":       map[string]string{"path": "/usr/local"},
			"destinations": []any{map[string]any{"path": "bin", "backtrace": 1}},
		},
	})
	writeJSON(t, filepath.Join(dir, "target-core.json"), map[string]any{
		"id":         "core::@1",
		"name":       "core",
		"type":       "STATIC_LIBRARY",
		"nameOnDisk": "libcore.a",
		"artifacts":  []any{map[string]string{"path": "out/libcore.a"}},
		"backtrace":  2,
		"backtraceGraph": graph,
		"sources": []any{
			map[string]any{"path": "src/core.cpp", "compileGroupIndex": 0},
		},
		"compileGroups": []any{
			map[string]any{"language": "CXX", "sourceIndexes": []int{0}},
		},
	})
	writeJSON(t, filepath.Join(dir, "target-docs.json"), map[string]any{
		"id":        "docs::@1",
		"name":      "docs",
		"type":      "UTILITY",
		"backtrace": 3,
		"backtraceGraph": graph,
		"sources": []any{
			map[string]any{"path": "CMakeFiles/docs.rule", "isGenerated": true},
		},
	})

	writeJSON(t, filepath.Join(dir, "codemodel-v2-0000.json"), map[string]any{
		"version": map[string]int{"major": 2, "minor": 7},
		"paths":   map[string]string{"source": repoRoot, "build": buildDir},
		"configurations": []any{map[string]any{
			"name": "Debug",
			"targets": []any{
				map[string]any{"id": "hello_world::@1", "name": "hello_world", "jsonFile": "target-hello.json"},
				map[string]any{"id": "core::@1", "name": "core", "jsonFile": "target-core.json"},
				map[string]any{"id": "docs::@1", "name": "docs", "jsonFile": "target-docs.json"},
			},
		}},
	})
	writeJSON(t, filepath.Join(dir, "toolchains-v1-0000.json"), map[string]any{
		"version": map[string]int{"major": 1, "minor": 0},
		"toolchains": []any{map[string]any{
			"language": "CXX",
			"compiler": map[string]string{"id": "GNU", "path": "/usr/bin/c++", "version": "13.2.0"},
		}},
	})
	writeJSON(t, filepath.Join(dir, "cache-v2-0000.json"), map[string]any{
		"version": map[string]int{"major": 2, "minor": 0},
		"entries": []any{
			map[string]any{"name": "CMAKE_BUILD_TYPE", "type": "STRING", "value": "Debug"},
			map[string]any{"name": "CMAKE_GENERATOR", "type": "INTERNAL", "value": "Ninja"},
		},
	})
	writeJSON(t, filepath.Join(dir, "cmakeFiles-v1-0000.json"), map[string]any{
		"version": map[string]int{"major": 1, "minor": 0},
		"inputs": []any{
			map[string]any{"path": "CMakeLists.txt"},
			map[string]any{"path": "build/generated.cmake", "isGenerated": true},
			map[string]any{"path": "/usr/share/cmake/Modules/CMakeCXXInformation.cmake", "isExternal": true},
		},
	})
	writeJSON(t, filepath.Join(dir, "index-0000.json"), map[string]any{
		"cmake": map[string]any{
			"generator": map[string]string{"name": "Ninja"},
			"version":   map[string]string{"string": "3.28.1"},
		},
		"objects": []any{
			map[string]any{"kind": "codemodel", "version": map[string]int{"major": 2, "minor": 7}, "jsonFile": "codemodel-v2-0000.json"},
			map[string]any{"kind": "toolchains", "version": map[string]int{"major": 1, "minor": 0}, "jsonFile": "toolchains-v1-0000.json"},
			map[string]any{"kind": "cache", "version": map[string]int{"major": 2, "minor": 0}, "jsonFile": "cache-v2-0000.json"},
			map[string]any{"kind": "cmakeFiles", "version": map[string]int{"major": 1, "minor": 0}, "jsonFile": "cmakeFiles-v1-0000.json"},
		},
	})
}

func discoverFixture(t *testing.T) (*Plugin, string, string) {
	t.Helper()
	repoRoot := t.TempDir()
	buildDir := filepath.Join(repoRoot, "build")
	writeFixtureTree(t, repoRoot, buildDir)

	plugin, err := Discover(context.Background(), repoRoot, buildDir, logging.NewNoOp())
	require.NoError(t, err)
	return plugin, repoRoot, buildDir
}

func TestDiscoverFailsWithoutReply(t *testing.T) {
	t.Parallel()

	_, err := Discover(context.Background(), t.TempDir(), t.TempDir(), logging.NewNoOp())
	var nrfErr *rigerrors.NoReplyFoundError
	require.ErrorAs(t, err, &nrfErr)
}

func TestPluginIdentity(t *testing.T) {
	t.Parallel()

	plugin, _, _ := discoverFixture(t)
	assert.Equal(t, "cmake", plugin.Name())
	assert.Equal(t, "3.28.1", plugin.Version())
	assert.Equal(t, "Ninja", plugin.Generator())
	assert.Equal(t, "Debug", plugin.BuildType())
}

func TestTargetsConversion(t *testing.T) {
	t.Parallel()

	plugin, repoRoot, buildDir := discoverFixture(t)
	targets, err := plugin.Targets(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 3)

	// Name order from the reply reader.
	assert.Equal(t, "core", targets[0].Name)
	assert.Equal(t, "docs", targets[1].Name)
	assert.Equal(t, "hello_world", targets[2].Name)

	hello := targets[2]
	assert.Equal(t, "EXECUTABLE", hello.Type)
	require.Len(t, hello.Artifacts, 1)
	assert.Equal(t, filepath.Join(buildDir, "out/hello_world"), hello.Artifacts[0])
	require.Len(t, hello.Sources, 1)
	assert.Equal(t, filepath.Join(repoRoot, "src/main.cpp"), hello.Sources[0].Path)
	assert.Equal(t, "CXX", hello.Sources[0].Language)
	assert.Equal(t, []string{"core::@1"}, hello.Dependencies)
	require.Len(t, hello.LinkFragments, 2)
	require.Len(t, hello.InstallDestinations, 1)
	assert.Equal(t, "/usr/local/bin", hello.InstallDestinations[0].Path)
	assert.False(t, hello.HasCommand)

	docs := targets[1]
	assert.True(t, docs.HasCommand, "a .rule source marks a custom command")
	assert.Empty(t, docs.Sources, "rule files are not real sources")

	// The backtrace graph is walkable.
	ev, err := backtrace.Walk(*hello.Backtrace, hello.BacktraceGraph, repoRoot, hello.Name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(repoRoot, "CMakeLists.txt"), ev.Leaf().File)
	assert.Equal(t, 5, ev.Leaf().Line)
}

func TestToolchainsCacheAndListFiles(t *testing.T) {
	t.Parallel()

	plugin, repoRoot, _ := discoverFixture(t)

	toolchains, err := plugin.Toolchains(context.Background())
	require.NoError(t, err)
	require.Contains(t, toolchains, "CXX")
	assert.Equal(t, "GNU", toolchains["CXX"].CompilerID)

	cache, err := plugin.Cache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Debug", cache["CMAKE_BUILD_TYPE"])

	files, err := plugin.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1, "generated and external list files are excluded")
	assert.Equal(t, filepath.Join(repoRoot, "CMakeLists.txt"), files[0])
}

func TestTestsViaListingCommand(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("fixture scripts require a POSIX shell")
	}

	repoRoot := t.TempDir()
	buildDir := filepath.Join(repoRoot, "build")
	writeFixtureTree(t, repoRoot, buildDir)

	listing := map[string]any{
		"kind": "ctestInfo",
		"backtraceGraph": map[string]any{
			"commands": []string{"add_test"},
			"files":    []string{"CMakeLists.txt"},
			"nodes": []any{
				map[string]any{"file": 0},
				map[string]any{"file": 0, "line": 12, "command": 0, "parent": 0},
			},
		},
		"tests": []any{
			map[string]any{
				"name":      "zz_last",
				"command":   []string{filepath.Join(buildDir, "out/hello_world")},
				"backtrace": 1,
				"properties": []any{
					map[string]any{"name": "LABELS", "value": []string{"unit"}},
				},
			},
			map[string]any{
				"name":      "aa_first",
				"command":   []string{filepath.Join(buildDir, "out/hello_world")},
				"backtrace": 1,
			},
		},
	}
	writeJSON(t, filepath.Join(buildDir, "listing.json"), listing)

	plugin, err := Discover(context.Background(), repoRoot, buildDir, logging.NewNoOp(),
		WithTestCommand([]string{"cat", "listing.json"}))
	require.NoError(t, err)

	tests, err := plugin.Tests(context.Background())
	require.NoError(t, err)
	require.Len(t, tests, 2)
	assert.Equal(t, "aa_first", tests[0].Name, "tests are returned in name order")
	assert.Equal(t, "unit", tests[1].Properties["LABELS"])

	ev, err := backtrace.Walk(*tests[1].Backtrace, tests[1].BacktraceGraph, repoRoot, tests[1].Name)
	require.NoError(t, err)
	assert.Equal(t, 12, ev.Leaf().Line)
}
