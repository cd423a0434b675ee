package rig

import (
	"fmt"
	"sort"
	"strings"
)

// Summary renders a deterministic textual digest of the graph: entity counts
// per kind, edge counts per kind, and canonically sorted names. Two runs over
// the same inputs produce byte-identical summaries.
func (g *Graph) Summary() string {
	var sb strings.Builder

	componentEdges := 0
	for _, c := range g.Components {
		componentEdges += len(c.DependsOn)
	}
	aggregatorEdges := 0
	for _, a := range g.Aggregators {
		aggregatorEdges += len(a.DependsOn)
	}
	runnerEdges := 0
	for _, r := range g.Runners {
		runnerEdges += len(r.DependsOn)
	}
	externalEdges := 0
	for _, c := range g.Components {
		externalEdges += len(c.Externals)
	}
	testLinks := 0
	for _, t := range g.Tests {
		if t.LinkedComponent != 0 {
			testLinks++
		}
	}

	fmt.Fprintf(&sb, "repository %s\n", g.Repository.Name)
	fmt.Fprintf(&sb, "build_system %s %s\n", g.BuildSystem.Name, g.BuildSystem.Version)
	fmt.Fprintf(&sb, "components %d edges %d\n", len(g.Components), componentEdges)
	fmt.Fprintf(&sb, "aggregators %d edges %d\n", len(g.Aggregators), aggregatorEdges)
	fmt.Fprintf(&sb, "runners %d edges %d\n", len(g.Runners), runnerEdges)
	fmt.Fprintf(&sb, "utilities %d\n", len(g.Utilities))
	fmt.Fprintf(&sb, "tests %d linked %d\n", len(g.Tests), testLinks)
	fmt.Fprintf(&sb, "externals %d refs %d\n", len(g.Externals), externalEdges)

	writeNames := func(label string, names []string) {
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "%s %s\n", label, name)
		}
	}

	componentNames := make([]string, 0, len(g.Components))
	for _, c := range g.Components {
		componentNames = append(componentNames, c.Name)
	}
	writeNames("component", componentNames)

	aggregatorNames := make([]string, 0, len(g.Aggregators))
	for _, a := range g.Aggregators {
		aggregatorNames = append(aggregatorNames, a.Name)
	}
	writeNames("aggregator", aggregatorNames)

	runnerNames := make([]string, 0, len(g.Runners))
	for _, r := range g.Runners {
		runnerNames = append(runnerNames, r.Name)
	}
	writeNames("runner", runnerNames)

	utilityNames := make([]string, 0, len(g.Utilities))
	for _, u := range g.Utilities {
		utilityNames = append(utilityNames, u.Name)
	}
	writeNames("utility", utilityNames)

	testNames := make([]string, 0, len(g.Tests))
	for _, t := range g.Tests {
		testNames = append(testNames, t.Name)
	}
	writeNames("test", testNames)

	externalNames := make([]string, 0, len(g.Externals))
	for _, p := range g.Externals {
		externalNames = append(externalNames, p.Key())
	}
	writeNames("external", externalNames)

	return sb.String()
}
