// Package backtrace resolves build-system backtrace graphs into evidence call
// stacks. The codemodel and the test listing emit structurally identical
// graphs, so both feed the same walker through the Source type.
package backtrace

import (
	"path/filepath"

	"github.com/greenfuze/rig/internal/rig"
	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

// maxDepth bounds the parent-chain walk. Fifty frames is far beyond any sane
// nesting of build helper functions; hitting it means the graph is cyclic or
// corrupt.
const maxDepth = 50

// Node is one entry of a backtrace graph. File indexes Source.Files; Command
// indexes Source.Commands when present. Parent is nil at the root.
type Node struct {
	File    int
	Line    int
	Command *int
	Parent  *int
}

// Source is a backtrace graph: parallel tables of nodes, files, and commands.
type Source struct {
	Nodes    []Node
	Commands []string
	Files    []string
}

// Walk resolves the backtrace starting at index into an Evidence whose leaf is
// the first frame within repoRoot encountered while following parent links
// upward. Frames outside the repository (build-system modules, toolchain
// files) are skipped without terminating the walk. Subject names the entity
// the backtrace belongs to, for error reporting only.
func Walk(index int, src Source, repoRoot, subject string) (rig.Evidence, error) {
	if index < 0 || index >= len(src.Nodes) {
		return rig.Evidence{}, rigerrors.NewMalformedBacktraceError(subject, "node index out of range")
	}

	visited := make(map[int]bool, maxDepth)
	var frames []rig.Frame

	current := index
	for depth := 0; ; depth++ {
		if depth >= maxDepth {
			return rig.Evidence{}, rigerrors.NewMalformedBacktraceError(subject, "walk exceeded maximum depth")
		}
		if visited[current] {
			return rig.Evidence{}, rigerrors.NewMalformedBacktraceError(subject, "cycle in parent chain")
		}
		visited[current] = true

		node := src.Nodes[current]
		if node.File < 0 || node.File >= len(src.Files) {
			return rig.Evidence{}, rigerrors.NewMalformedBacktraceError(subject, "file index out of range")
		}
		file := normalize(src.Files[node.File], repoRoot)

		if rig.WithinRoot(repoRoot, file) && node.Line >= 1 {
			command := ""
			if node.Command != nil {
				if *node.Command < 0 || *node.Command >= len(src.Commands) {
					return rig.Evidence{}, rigerrors.NewMalformedBacktraceError(subject, "command index out of range")
				}
				command = src.Commands[*node.Command]
			}
			if len(frames) > 0 || command != "" {
				frames = append(frames, rig.Frame{File: file, Line: node.Line, Command: command})
			}
		}

		if node.Parent == nil {
			break
		}
		next := *node.Parent
		if next < 0 || next >= len(src.Nodes) {
			return rig.Evidence{}, rigerrors.NewMalformedBacktraceError(subject, "parent index out of range")
		}
		current = next
	}

	if len(frames) == 0 {
		return rig.Evidence{}, rigerrors.NewNoUserFrameError(subject, repoRoot)
	}
	return rig.Evidence{CallStack: frames}, nil
}

// normalize resolves a possibly-relative file against the repository root and
// cleans it. The File API emits source-tree files relative to the top-level
// source directory.
func normalize(file, repoRoot string) string {
	if file == "" {
		return file
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(repoRoot, file)
	}
	return filepath.Clean(file)
}
