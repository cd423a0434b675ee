package backtrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

func intp(v int) *int { return &v }

func TestWalkDirectUserCall(t *testing.T) {
	t.Parallel()

	// add_executable(hello_world ...) called straight from the top-level list file.
	src := Source{
		Files:    []string{"CMakeLists.txt"},
		Commands: []string{"add_executable"},
		Nodes: []Node{
			{File: 0},
			{File: 0, Line: 5, Command: intp(0), Parent: intp(0)},
		},
	}

	ev, err := Walk(1, src, "/repo", "hello_world")
	require.NoError(t, err)
	require.Len(t, ev.CallStack, 1)
	assert.Equal(t, "/repo/CMakeLists.txt", ev.Leaf().File)
	assert.Equal(t, 5, ev.Leaf().Line)
	assert.Equal(t, "add_executable", ev.Leaf().Command)
}

func TestWalkSkipsHelperImplementationFrames(t *testing.T) {
	t.Parallel()

	// add_jar is implemented in UseJava.cmake outside the repository; the
	// user frame is the add_jar call in the repository's list file.
	src := Source{
		Files:    []string{"/usr/share/cmake/Modules/UseJava.cmake", "CMakeLists.txt"},
		Commands: []string{"add_custom_target", "add_jar"},
		Nodes: []Node{
			{File: 1},
			{File: 1, Line: 36, Command: intp(1), Parent: intp(0)},
			{File: 0, Line: 974, Command: intp(0), Parent: intp(1)},
		},
	}

	ev, err := Walk(2, src, "/repo", "java_hello_lib")
	require.NoError(t, err)
	require.Len(t, ev.CallStack, 1)
	assert.Equal(t, "/repo/CMakeLists.txt", ev.Leaf().File)
	assert.Equal(t, 36, ev.Leaf().Line)
	assert.Equal(t, "add_jar", ev.Leaf().Command)
}

func TestWalkAppendsAncestorContextFrames(t *testing.T) {
	t.Parallel()

	// A macro defined inside the repository: both the macro body frame and
	// the call site are in-repo, leaf first.
	src := Source{
		Files:    []string{"cmake/helpers.cmake", "CMakeLists.txt"},
		Commands: []string{"add_library", "declare_component", "include"},
		Nodes: []Node{
			{File: 1},
			{File: 1, Line: 3, Command: intp(2), Parent: intp(0)},
			{File: 1, Line: 12, Command: intp(1), Parent: intp(0)},
			{File: 0, Line: 7, Command: intp(0), Parent: intp(2)},
		},
	}

	ev, err := Walk(3, src, "/repo", "core")
	require.NoError(t, err)
	require.Len(t, ev.CallStack, 2)
	assert.Equal(t, "/repo/cmake/helpers.cmake", ev.CallStack[0].File)
	assert.Equal(t, 7, ev.CallStack[0].Line)
	assert.Equal(t, "/repo/CMakeLists.txt", ev.CallStack[1].File)
	assert.Equal(t, 12, ev.CallStack[1].Line)
}

func TestWalkNoUserFrame(t *testing.T) {
	t.Parallel()

	src := Source{
		Files:    []string{"/opt/vcpkg/scripts/buildsystems/vcpkg.cmake"},
		Commands: []string{"add_custom_target"},
		Nodes: []Node{
			{File: 0},
			{File: 0, Line: 100, Command: intp(0), Parent: intp(0)},
		},
	}

	_, err := Walk(1, src, "/repo", "vcpkg_glue")
	var nufErr *rigerrors.NoUserFrameError
	require.ErrorAs(t, err, &nufErr)
	assert.Equal(t, "vcpkg_glue", nufErr.Subject)
}

func TestWalkDetectsCycle(t *testing.T) {
	t.Parallel()

	src := Source{
		Files:    []string{"CMakeLists.txt"},
		Commands: []string{"add_executable"},
		Nodes: []Node{
			{File: 0, Line: 1, Command: intp(0), Parent: intp(1)},
			{File: 0, Line: 2, Command: intp(0), Parent: intp(0)},
		},
	}

	_, err := Walk(0, src, "/repo", "looped")
	var mbErr *rigerrors.MalformedBacktraceError
	require.ErrorAs(t, err, &mbErr)
	assert.Contains(t, mbErr.Reason, "cycle")
}

func TestWalkRejectsOutOfRangeIndexes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		index int
		src   Source
	}{
		{
			name:  "node index",
			index: 5,
			src:   Source{Files: []string{"CMakeLists.txt"}, Nodes: []Node{{File: 0}}},
		},
		{
			name:  "file index",
			index: 0,
			src:   Source{Files: []string{"CMakeLists.txt"}, Nodes: []Node{{File: 3, Line: 1}}},
		},
		{
			name:  "command index",
			index: 0,
			src: Source{
				Files: []string{"CMakeLists.txt"},
				Nodes: []Node{{File: 0, Line: 1, Command: intp(9)}},
			},
		},
		{
			name:  "parent index",
			index: 0,
			src: Source{
				Files:    []string{"/elsewhere/file.cmake"},
				Commands: []string{"x"},
				Nodes:    []Node{{File: 0, Line: 1, Parent: intp(7)}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Walk(tt.index, tt.src, "/repo", "subject")
			var mbErr *rigerrors.MalformedBacktraceError
			require.ErrorAs(t, err, &mbErr)
		})
	}
}

func TestWalkLeafRequiresCommand(t *testing.T) {
	t.Parallel()

	// The file-level frame has a line but no command; it cannot be the user
	// frame, and with nothing else in-repo the walk has no attribution.
	src := Source{
		Files: []string{"CMakeLists.txt"},
		Nodes: []Node{
			{File: 0, Line: 1},
		},
	}

	_, err := Walk(0, src, "/repo", "bare")
	var nufErr *rigerrors.NoUserFrameError
	require.ErrorAs(t, err, &nufErr)
}
