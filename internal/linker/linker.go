// Package linker maps each test's resolved command executable onto a project
// component and detects the test framework from labels, command patterns, and
// linked libraries, in that order.
package linker

import (
	"path/filepath"
	"strings"

	"github.com/greenfuze/rig/internal/ports"
	"github.com/greenfuze/rig/internal/rig"
)

// ComponentInfo is the slice of component data the linker needs.
type ComponentInfo struct {
	Name           string
	OutputPath     string
	OutputFilename string
	Sources        []string
	LinkLibraries  []string
}

// Result is the linking outcome for one test.
type Result struct {
	LinkedComponent string
	Ambiguous       bool
	Framework       rig.TestFramework
}

// interpreters are command basenames that run a payload passed as an
// argument rather than being the tested artifact themselves.
var interpreters = map[string]bool{
	"python":  true,
	"python3": true,
	"node":    true,
	"java":    true,
	"sh":      true,
	"bash":    true,
}

// Linker resolves test commands against a fixed component set.
type Linker struct {
	buildDir   string
	components []ComponentInfo
}

// New creates a Linker over the given components.
func New(buildDir string, components []ComponentInfo) *Linker {
	return &Linker{buildDir: buildDir, components: components}
}

// Link resolves the test's command to a component and detects its framework.
// When the command resolves to several components and the test's own source
// files cannot disambiguate, the result is marked ambiguous and left unlinked
// rather than guessed.
func (l *Linker) Link(test ports.RawTest) Result {
	res := Result{Framework: rig.FrameworkUnknown}
	if len(test.Command) == 0 {
		return res
	}

	subject := test.Command[0]
	if interpreters[strings.TrimSuffix(strings.ToLower(filepath.Base(subject)), ".exe")] {
		subject = payloadArgument(test.Command[1:])
	}

	var linked *ComponentInfo
	if subject != "" {
		linked, res.Ambiguous = l.match(subject, test)
	}
	if linked != nil {
		res.LinkedComponent = linked.Name
	}

	res.Framework = l.framework(test, linked)
	return res
}

// match finds the component owning the given command path. Exact output-path
// equality wins; otherwise basename candidates are narrowed using the test's
// source files.
func (l *Linker) match(subject string, test ports.RawTest) (*ComponentInfo, bool) {
	normalized := l.normalize(subject)

	for i := range l.components {
		c := &l.components[i]
		if c.OutputPath != "" && filepath.Clean(c.OutputPath) == normalized {
			return c, false
		}
	}

	base := filepath.Base(normalized)
	var candidates []*ComponentInfo
	for i := range l.components {
		c := &l.components[i]
		if c.OutputFilename != "" && c.OutputFilename == base {
			candidates = append(candidates, c)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, false
	case 1:
		return candidates[0], false
	}

	testSources := make(map[string]bool, len(test.Properties))
	for _, prop := range []string{"SOURCES", "SOURCE_FILES"} {
		for _, s := range strings.Split(test.Properties[prop], ";") {
			if s != "" {
				testSources[filepath.Clean(s)] = true
			}
		}
	}
	if len(testSources) > 0 {
		var bySource []*ComponentInfo
		for _, c := range candidates {
			for _, src := range c.Sources {
				if testSources[filepath.Clean(src)] {
					bySource = append(bySource, c)
					break
				}
			}
		}
		if len(bySource) == 1 {
			return bySource[0], false
		}
	}
	return nil, true
}

// normalize resolves a command path to absolute, cleaned form.
func (l *Linker) normalize(subject string) string {
	if !filepath.IsAbs(subject) {
		subject = filepath.Join(l.buildDir, subject)
	}
	return filepath.Clean(subject)
}

// payloadArgument returns the first argument that looks like the interpreted
// payload: not a flag and not the value of -cp or -classpath. Values of other
// flags are not recognised as such and can be returned.
func payloadArgument(args []string) string {
	skipNext := false
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.HasPrefix(arg, "-") {
			// Options with separate values: -jar foo.jar passes the payload
			// as the value, which is what we want next.
			if arg == "-jar" || arg == "-cp" || arg == "-classpath" {
				if arg != "-jar" {
					skipNext = true
				}
			}
			continue
		}
		return arg
	}
	return ""
}

type frameworkPattern struct {
	needle    string
	framework rig.TestFramework
}

var labelPatterns = []frameworkPattern{
	{"gtest", rig.FrameworkGTest},
	{"googletest", rig.FrameworkGTest},
	{"catch2", rig.FrameworkCatch2},
	{"boost", rig.FrameworkBoostTest},
	{"pytest", rig.FrameworkPytest},
	{"jest", rig.FrameworkJest},
	{"cargo", rig.FrameworkCargoTest},
	{"junit", rig.FrameworkJUnit},
}

var commandPatterns = []frameworkPattern{
	{"--gtest_", rig.FrameworkGTest},
	{"pytest", rig.FrameworkPytest},
	{"py.test", rig.FrameworkPytest},
	{"jest", rig.FrameworkJest},
	{"cargo", rig.FrameworkCargoTest},
	{"junit", rig.FrameworkJUnit},
}

var libraryPatterns = []frameworkPattern{
	{"gtest", rig.FrameworkGTest},
	{"gmock", rig.FrameworkGTest},
	{"catch2", rig.FrameworkCatch2},
	{"boost_unit_test", rig.FrameworkBoostTest},
	{"boost_test", rig.FrameworkBoostTest},
}

// framework detects the test framework: labels first, then command text,
// then the linked component's libraries. A test registered with no further
// signals is a plain CTest test.
func (l *Linker) framework(test ports.RawTest, linked *ComponentInfo) rig.TestFramework {
	labels := strings.ToLower(test.Properties["LABELS"])
	for _, p := range labelPatterns {
		if strings.Contains(labels, p.needle) {
			return p.framework
		}
	}

	command := strings.ToLower(strings.Join(test.Command, " "))
	for _, p := range commandPatterns {
		if strings.Contains(command, p.needle) {
			return p.framework
		}
	}

	if linked != nil {
		for _, lib := range linked.LinkLibraries {
			lower := strings.ToLower(lib)
			for _, p := range libraryPatterns {
				if strings.Contains(lower, p.needle) {
					return p.framework
				}
			}
		}
	}

	return rig.FrameworkCTest
}
