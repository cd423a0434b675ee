package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfuze/rig/internal/logging"
	"github.com/greenfuze/rig/internal/rig"
)

func sampleGraph(t *testing.T) *rig.Graph {
	t.Helper()

	ev := func(line int) rig.Evidence {
		return rig.Evidence{CallStack: []rig.Frame{{File: "/repo/CMakeLists.txt", Line: line, Command: "add_executable"}}}
	}

	b := rig.NewBuilder()
	b.SetRepository(rig.Repository{
		Name: "demo", RootPath: "/repo", BuildDir: "/repo/build", OutputDir: "/repo/build/out",
		ConfigureCmd: "cmake -S . -B build", BuildCmd: "cmake --build build", TestCmd: "ctest --test-dir build",
	})
	b.SetBuildSystem(rig.BuildSystem{Name: "cmake", Version: "3.28.1", Generator: "Ninja", BuildType: "Debug"})

	boost := b.AddExternal(rig.ExternalPackage{Manager: rig.ManagerVcpkg, Name: "boost_system", Version: "1_87"})

	require.NoError(t, b.AddComponent(rig.ComponentDraft{
		Name: "core", Kind: rig.ComponentStaticLibrary, Language: rig.LanguageCpp, Runtime: rig.RuntimeClangLike,
		OutputFilename: "libcore.a", OutputPath: "/repo/build/out/libcore.a",
		Sources: []string{"src/core.cpp"}, Evidence: ev(3),
	}))
	require.NoError(t, b.AddComponent(rig.ComponentDraft{
		Name: "app", Kind: rig.ComponentExecutable, Language: rig.LanguageCpp, Runtime: rig.RuntimeClangLike,
		OutputFilename: "app", OutputPath: "/repo/build/out/app",
		Sources: []string{"src/main.cpp"}, DependsOn: []string{"core"}, ExternalKeys: []string{boost},
		Locations: []rig.ComponentLocation{
			{Path: "/repo/build/out/app", Action: rig.ActionBuild, Evidence: ev(5)},
			{Path: "/usr/local/bin/app", Action: rig.ActionInstall, SourceLocation: "/repo/build/out/app", Evidence: ev(7)},
		},
		Evidence: ev(5),
	}))
	require.NoError(t, b.AddAggregator(rig.AggregatorDraft{Name: "everything", DependsOn: []string{"app", "core"}, Evidence: ev(9)}))
	require.NoError(t, b.AddRunner(rig.RunnerDraft{Name: "format", Command: []string{"clang-format", "-i"}, DependsOn: []string{"core"}, Evidence: ev(11)}))
	require.NoError(t, b.AddUtility(rig.UtilityDraft{Name: "phony"}))
	require.NoError(t, b.AddTest(rig.TestDraft{
		Name: "app_test", Framework: rig.FrameworkCTest,
		Command: []string{"/repo/build/out/app"}, LinkedComponent: "app",
		Properties: map[string]string{"TIMEOUT": "30"}, SourceFiles: []string{"src/main.cpp"},
		Evidence: ev(12),
	}))

	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rig.db")
	s, err := Open(path, logging.NewNoOp())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestPersistWritesWholeGraph(t *testing.T) {
	t.Parallel()

	s, _ := openStore(t)
	g := sampleGraph(t)
	require.NoError(t, s.Persist(context.Background(), g))

	db := s.db
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM rig_metadata"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM repository_info"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM build_system_info"))
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM components"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM aggregators"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM runners"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM utilities"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM tests"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM external_packages"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM component_dependencies"))
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM aggregator_dependencies"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM runner_dependencies"))
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM component_locations"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM component_locations_rel"))
	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM component_source_files"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM test_source_files"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM test_components"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM component_external_packages"))

	// Test back-reference both ways.
	var testID sql.NullInt64
	require.NoError(t, db.QueryRow("SELECT test_id FROM components WHERE name = 'app'").Scan(&testID))
	require.True(t, testID.Valid)
	var componentID sql.NullInt64
	require.NoError(t, db.QueryRow("SELECT component_id FROM tests WHERE name = 'app_test'").Scan(&componentID))
	require.True(t, componentID.Valid)

	// Evidence call stacks serialize as ordered "file:line" arrays.
	var callStack string
	require.NoError(t, db.QueryRow(
		"SELECT call_stack_json FROM evidence WHERE entity_kind = 'test' AND entity_name = 'app_test'").Scan(&callStack))
	var frames []string
	require.NoError(t, json.Unmarshal([]byte(callStack), &frames))
	assert.Equal(t, []string{"/repo/CMakeLists.txt:12"}, frames)

	// A utility with no signals has no evidence row.
	var utilityEvidence sql.NullInt64
	require.NoError(t, db.QueryRow("SELECT evidence_id FROM utilities WHERE name = 'phony'").Scan(&utilityEvidence))
	assert.False(t, utilityEvidence.Valid)
}

func TestPersistPolymorphicEdgeShape(t *testing.T) {
	t.Parallel()

	s, _ := openStore(t)
	require.NoError(t, s.Persist(context.Background(), sampleGraph(t)))

	// Every dependency row has exactly one non-null target column.
	bad := count(t, s.db, `SELECT COUNT(*) FROM aggregator_dependencies WHERE
		(depends_on_component_id IS NOT NULL) +
		(depends_on_aggregator_id IS NOT NULL) +
		(depends_on_runner_id IS NOT NULL) +
		(depends_on_utility_id IS NOT NULL) != 1`)
	assert.Zero(t, bad)

	components := count(t, s.db,
		"SELECT COUNT(*) FROM aggregator_dependencies WHERE depends_on_component_id IS NOT NULL")
	assert.Equal(t, 2, components, "aggregator depends on two components")
}

func TestPersistTwiceIsContentIdempotent(t *testing.T) {
	t.Parallel()

	s, _ := openStore(t)
	require.NoError(t, s.Persist(context.Background(), sampleGraph(t)))
	require.NoError(t, s.Persist(context.Background(), sampleGraph(t)))

	assert.Equal(t, 2, count(t, s.db, "SELECT COUNT(*) FROM rig_metadata"))
	assert.Equal(t, 4, count(t, s.db, "SELECT COUNT(*) FROM components"))

	// Per-rig content is identical.
	names := func(rigID int) []string {
		rows, err := s.db.Query("SELECT name FROM components WHERE rig_id = ? ORDER BY name", rigID)
		require.NoError(t, err)
		defer rows.Close()
		var out []string
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			out = append(out, name)
		}
		return out
	}
	assert.Equal(t, names(1), names(2))
}

func TestOpenRefusesNewerSchema(t *testing.T) {
	t.Parallel()

	s, path := openStore(t)
	_, err := s.db.Exec("INSERT INTO rig_metadata (schema_version, created_at) VALUES (?, ?)", SchemaVersion+10, "2026-01-01T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path, logging.NewNoOp())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer")
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "rig.db")
	s, err := Open(path, logging.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
