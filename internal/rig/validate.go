package rig

import (
	"path/filepath"
	"strings"

	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

// validate runs the freeze-time invariant checks. It never mutates the graph;
// any violation aborts the build with a structured error naming the offending
// entities.
func validate(g *Graph) error {
	if err := validateEvidence(g); err != nil {
		return err
	}
	if err := validateComponentDAG(g); err != nil {
		return err
	}
	if err := validateBackReferences(g); err != nil {
		return err
	}
	if err := validateExternalRefs(g); err != nil {
		return err
	}
	return validateArtifacts(g)
}

func validateEvidence(g *Graph) error {
	root := g.Repository.RootPath
	check := func(kind, name string, ev Evidence) error {
		if ev.Empty() {
			return rigerrors.NewEvidenceMissingError(kind, name, "empty call stack")
		}
		for _, frame := range ev.CallStack {
			if frame.Line < 1 {
				return rigerrors.NewEvidenceMissingError(kind, name, "frame with non-positive line")
			}
			if !WithinRoot(root, frame.File) {
				return rigerrors.NewEvidenceMissingError(kind, name, "frame outside repository root: "+frame.File)
			}
		}
		return nil
	}

	for _, c := range g.Components {
		if err := check(string(NodeComponent), c.Name, c.Evidence); err != nil {
			return err
		}
		for _, loc := range c.Locations {
			if err := check("component_location", c.Name+" -> "+loc.Path, loc.Evidence); err != nil {
				return err
			}
		}
	}
	for _, a := range g.Aggregators {
		if err := check(string(NodeAggregator), a.Name, a.Evidence); err != nil {
			return err
		}
	}
	for _, r := range g.Runners {
		if err := check(string(NodeRunner), r.Name, r.Evidence); err != nil {
			return err
		}
	}
	// Utilities without signals legitimately carry no evidence; a non-empty
	// call stack still has to be well formed.
	for _, u := range g.Utilities {
		if u.Evidence.Empty() {
			continue
		}
		if err := check(string(NodeUtility), u.Name, u.Evidence); err != nil {
			return err
		}
	}
	for _, t := range g.Tests {
		if err := check(string(NodeTest), t.Name, t.Evidence); err != nil {
			return err
		}
	}
	return nil
}

// validateComponentDAG re-runs Kahn's algorithm over the id-resolved component
// subgraph. The builder already ordered components topologically, so a failure
// here means the builder itself is broken, not the input.
func validateComponentDAG(g *Graph) error {
	byID := make(map[ID]*Component, len(g.Components))
	for _, c := range g.Components {
		byID[c.ID] = c
	}

	indegree := make(map[ID]int, len(g.Components))
	adjacency := make(map[ID][]ID, len(g.Components))
	for _, c := range g.Components {
		indegree[c.ID] += 0
		for _, dep := range c.DependsOn {
			if _, ok := byID[dep]; !ok {
				continue
			}
			indegree[c.ID]++
			adjacency[dep] = append(adjacency[dep], c.ID)
		}
	}

	var queue []ID
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		for _, dependent := range adjacency[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if processed != len(g.Components) {
		names := make([]string, 0)
		for id, deg := range indegree {
			if deg > 0 {
				names = append(names, byID[id].Name)
			}
		}
		return rigerrors.NewCyclicDependencyError(names)
	}
	return nil
}

func validateBackReferences(g *Graph) error {
	for _, t := range g.Tests {
		if t.LinkedComponent == 0 {
			continue
		}
		comp := g.ComponentByID(t.LinkedComponent)
		if comp == nil || comp.TestLink != t.ID {
			name := ""
			if comp != nil {
				name = comp.Name
			}
			return rigerrors.NewBackReferenceMismatchError(name, t.Name)
		}
	}
	for _, c := range g.Components {
		if c.TestLink == 0 {
			continue
		}
		var linked *Test
		for _, t := range g.Tests {
			if t.ID == c.TestLink {
				linked = t
				break
			}
		}
		if linked == nil || linked.LinkedComponent != c.ID {
			name := ""
			if linked != nil {
				name = linked.Name
			}
			return rigerrors.NewBackReferenceMismatchError(c.Name, name)
		}
	}
	return nil
}

func validateExternalRefs(g *Graph) error {
	known := make(map[ID]bool, len(g.Externals))
	for _, p := range g.Externals {
		known[p.ID] = true
	}
	for _, c := range g.Components {
		for _, id := range c.Externals {
			if !known[id] {
				return rigerrors.NewDanglingDependencyError(c.Name, "external package id")
			}
		}
	}
	return nil
}

func validateArtifacts(g *Graph) error {
	for _, c := range g.Components {
		switch c.Kind {
		case ComponentExecutable, ComponentSharedLibrary, ComponentStaticLibrary,
			ComponentModuleLibrary, ComponentObjectLibrary, ComponentVM:
			if c.OutputPath == "" {
				return rigerrors.NewEvidenceMissingError(string(NodeComponent), c.Name, "artifact component without output path")
			}
		}
	}
	return nil
}

// WithinRoot reports whether path lies under root after cleaning. Both paths
// are compared textually; no filesystem access happens here.
func WithinRoot(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
