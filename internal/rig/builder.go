package rig

import (
	"sort"

	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

// ComponentDraft is the builder-side shape of a component. Dependencies and
// external packages are referenced by name/key and resolved to stable ids at
// Build time.
type ComponentDraft struct {
	Name           string
	Kind           ComponentKind
	Language       Language
	Languages      []Language
	Runtime        Runtime
	OutputFilename string
	OutputPath     string
	Sources        []string
	ExternalKeys   []string
	DependsOn      []string
	Locations      []ComponentLocation
	Evidence       Evidence
}

// AggregatorDraft is the builder-side shape of an aggregator.
type AggregatorDraft struct {
	Name      string
	DependsOn []string
	Evidence  Evidence
}

// RunnerDraft is the builder-side shape of a runner.
type RunnerDraft struct {
	Name      string
	Command   []string
	DependsOn []string
	Evidence  Evidence
}

// UtilityDraft is the builder-side shape of a utility.
type UtilityDraft struct {
	Name     string
	Evidence Evidence
}

// TestDraft is the builder-side shape of a test. LinkedComponent names the
// component the test exercises; empty means unlinked.
type TestDraft struct {
	Name            string
	Framework       TestFramework
	Type            string
	Command         []string
	Properties      map[string]string
	LinkedComponent string
	SourceFiles     []string
	Evidence        Evidence
}

// Builder accumulates classified entities and produces a frozen Graph with
// deterministic stable ids. It is single-writer and not safe for concurrent
// use; the pipeline feeding it is sequential.
type Builder struct {
	repo        Repository
	buildSystem BuildSystem

	components  map[string]*ComponentDraft
	aggregators map[string]*AggregatorDraft
	runners     map[string]*RunnerDraft
	utilities   map[string]*UtilityDraft
	tests       map[string]*TestDraft
	externals   map[string]ExternalPackage
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		components:  make(map[string]*ComponentDraft),
		aggregators: make(map[string]*AggregatorDraft),
		runners:     make(map[string]*RunnerDraft),
		utilities:   make(map[string]*UtilityDraft),
		tests:       make(map[string]*TestDraft),
		externals:   make(map[string]ExternalPackage),
	}
}

// SetRepository records the repository singleton.
func (b *Builder) SetRepository(repo Repository) { b.repo = repo }

// SetBuildSystem records the build system singleton.
func (b *Builder) SetBuildSystem(bs BuildSystem) { b.buildSystem = bs }

// AddExternal registers an external package, deduplicating by
// (manager, name, version), and returns the canonical key for later reference.
func (b *Builder) AddExternal(pkg ExternalPackage) string {
	if pkg.Version == "" {
		pkg.Version = VersionUnknown
	}
	key := pkg.Key()
	if _, ok := b.externals[key]; !ok {
		b.externals[key] = pkg
	}
	return key
}

// AddComponent registers a component draft. A second component with the same
// name is a DuplicateEntity error.
func (b *Builder) AddComponent(d ComponentDraft) error {
	if _, ok := b.components[d.Name]; ok {
		return rigerrors.NewDuplicateEntityError(string(NodeComponent), d.Name)
	}
	b.components[d.Name] = &d
	return nil
}

// AddAggregator registers an aggregator draft.
func (b *Builder) AddAggregator(d AggregatorDraft) error {
	if _, ok := b.aggregators[d.Name]; ok {
		return rigerrors.NewDuplicateEntityError(string(NodeAggregator), d.Name)
	}
	b.aggregators[d.Name] = &d
	return nil
}

// AddRunner registers a runner draft.
func (b *Builder) AddRunner(d RunnerDraft) error {
	if _, ok := b.runners[d.Name]; ok {
		return rigerrors.NewDuplicateEntityError(string(NodeRunner), d.Name)
	}
	b.runners[d.Name] = &d
	return nil
}

// AddUtility registers a utility draft.
func (b *Builder) AddUtility(d UtilityDraft) error {
	if _, ok := b.utilities[d.Name]; ok {
		return rigerrors.NewDuplicateEntityError(string(NodeUtility), d.Name)
	}
	b.utilities[d.Name] = &d
	return nil
}

// AddTest registers a test draft.
func (b *Builder) AddTest(d TestDraft) error {
	if _, ok := b.tests[d.Name]; ok {
		return rigerrors.NewDuplicateEntityError(string(NodeTest), d.Name)
	}
	b.tests[d.Name] = &d
	return nil
}

// Build assigns stable ids in deterministic pre-order (repository, build
// system, external packages in canonical sort, components in topological
// order with lexicographic tie-break, aggregators, runners, utilities, tests
// in name order), resolves all name references, validates the invariants, and
// returns the frozen graph. No partial graph is ever returned.
func (b *Builder) Build() (*Graph, error) {
	componentOrder, err := b.topoSortComponents()
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Repository:  b.repo,
		BuildSystem: b.buildSystem,
	}

	next := ID(1)
	assign := func() ID {
		id := next
		next++
		return id
	}

	g.Repository.ID = assign()
	g.BuildSystem.ID = assign()

	externalKeys := make([]string, 0, len(b.externals))
	for key := range b.externals {
		externalKeys = append(externalKeys, key)
	}
	sort.Strings(externalKeys)
	externalIDs := make(map[string]ID, len(externalKeys))
	for _, key := range externalKeys {
		pkg := b.externals[key]
		pkg.ID = assign()
		externalIDs[key] = pkg.ID
		g.Externals = append(g.Externals, &pkg)
	}

	nodeIDs := make(map[string]ID)
	for _, name := range componentOrder {
		draft := b.components[name]
		id := assign()
		nodeIDs[name] = id
		g.Components = append(g.Components, &Component{
			ID:             id,
			Name:           draft.Name,
			Kind:           draft.Kind,
			Language:       draft.Language,
			Languages:      append([]Language(nil), draft.Languages...),
			Runtime:        draft.Runtime,
			OutputFilename: draft.OutputFilename,
			OutputPath:     draft.OutputPath,
			Sources:        sortedCopy(draft.Sources),
			Locations:      append([]ComponentLocation(nil), draft.Locations...),
			Evidence:       draft.Evidence,
		})
	}
	for _, name := range sortedKeys(b.aggregators) {
		id := assign()
		nodeIDs[name] = id
		g.Aggregators = append(g.Aggregators, &Aggregator{
			ID:       id,
			Name:     name,
			Evidence: b.aggregators[name].Evidence,
		})
	}
	for _, name := range sortedKeys(b.runners) {
		draft := b.runners[name]
		id := assign()
		nodeIDs[name] = id
		g.Runners = append(g.Runners, &Runner{
			ID:       id,
			Name:     name,
			Command:  append([]string(nil), draft.Command...),
			Evidence: draft.Evidence,
		})
	}
	for _, name := range sortedKeys(b.utilities) {
		id := assign()
		nodeIDs[name] = id
		g.Utilities = append(g.Utilities, &Utility{
			ID:       id,
			Name:     name,
			Evidence: b.utilities[name].Evidence,
		})
	}

	for _, comp := range g.Components {
		draft := b.components[comp.Name]
		deps, err := resolveDeps(comp.Name, draft.DependsOn, nodeIDs)
		if err != nil {
			return nil, err
		}
		comp.DependsOn = deps
		externals := make([]ID, 0, len(draft.ExternalKeys))
		seen := make(map[ID]bool, len(draft.ExternalKeys))
		for _, key := range draft.ExternalKeys {
			id, ok := externalIDs[key]
			if !ok {
				return nil, rigerrors.NewDanglingDependencyError(comp.Name, key)
			}
			if !seen[id] {
				seen[id] = true
				externals = append(externals, id)
			}
		}
		sort.Slice(externals, func(i, j int) bool { return externals[i] < externals[j] })
		comp.Externals = externals
	}
	for _, agg := range g.Aggregators {
		deps, err := resolveDeps(agg.Name, b.aggregators[agg.Name].DependsOn, nodeIDs)
		if err != nil {
			return nil, err
		}
		agg.DependsOn = deps
	}
	for _, run := range g.Runners {
		deps, err := resolveDeps(run.Name, b.runners[run.Name].DependsOn, nodeIDs)
		if err != nil {
			return nil, err
		}
		run.DependsOn = deps
	}

	for _, name := range sortedKeys(b.tests) {
		draft := b.tests[name]
		test := &Test{
			ID:          assign(),
			Name:        name,
			Framework:   draft.Framework,
			Type:        draft.Type,
			Command:     append([]string(nil), draft.Command...),
			Properties:  copyProperties(draft.Properties),
			SourceFiles: sortedCopy(draft.SourceFiles),
			Evidence:    draft.Evidence,
		}
		if draft.LinkedComponent != "" {
			comp := g.ComponentByName(draft.LinkedComponent)
			if comp == nil {
				return nil, rigerrors.NewDanglingDependencyError(name, draft.LinkedComponent)
			}
			test.LinkedComponent = comp.ID
			comp.TestLink = test.ID
		}
		g.Tests = append(g.Tests, test)
	}

	if err := validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// topoSortComponents orders component names topologically over the
// component-to-component subset of their dependency edges, breaking ties
// lexicographically. A cycle is reported with its concrete path.
func (b *Builder) topoSortComponents() ([]string, error) {
	indegree := make(map[string]int, len(b.components))
	adjacency := make(map[string][]string, len(b.components))
	for name := range b.components {
		indegree[name] = 0
	}
	for name, draft := range b.components {
		for _, dep := range draft.DependsOn {
			if _, ok := b.components[dep]; !ok {
				continue
			}
			indegree[name]++
			adjacency[dep] = append(adjacency[dep], name)
		}
	}

	var queue []string
	for name, deg := range indegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(b.components))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		next := make([]string, 0)
		for _, dependent := range adjacency[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				next = append(next, dependent)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
		sort.Strings(queue)
	}

	if len(order) != len(b.components) {
		return nil, rigerrors.NewCyclicDependencyError(b.findComponentCycle())
	}
	return order, nil
}

// findComponentCycle walks the component graph depth-first and returns one
// concrete cycle path, closed by repeating the entry node.
func (b *Builder) findComponentCycle() []string {
	visiting := make(map[string]bool, len(b.components))
	visited := make(map[string]bool, len(b.components))
	var stack []string
	var cycle []string

	var dfs func(string) bool
	dfs = func(node string) bool {
		visiting[node] = true
		stack = append(stack, node)

		deps := append([]string(nil), b.components[node].DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := b.components[dep]; !ok {
				continue
			}
			if visiting[dep] {
				idx := 0
				for i, v := range stack {
					if v == dep {
						idx = i
						break
					}
				}
				cycle = append([]string{}, stack[idx:]...)
				cycle = append(cycle, dep)
				return true
			}
			if !visited[dep] && dfs(dep) {
				return true
			}
		}

		visiting[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		return false
	}

	names := sortedKeys(b.components)
	for _, name := range names {
		if visited[name] {
			continue
		}
		if dfs(name) {
			break
		}
	}
	return cycle
}

func resolveDeps(owner string, names []string, nodeIDs map[string]ID) ([]ID, error) {
	ids := make([]ID, 0, len(names))
	seen := make(map[ID]bool, len(names))
	for _, dep := range names {
		id, ok := nodeIDs[dep]
		if !ok {
			return nil, rigerrors.NewDanglingDependencyError(owner, dep)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func copyProperties(props map[string]string) map[string]string {
	if props == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
