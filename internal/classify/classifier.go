// Package classify maps raw build targets to graph node variants. The
// decision procedure is a pure function of its inputs; identical inputs yield
// identical outputs across runs.
package classify

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/greenfuze/rig/internal/ports"
	"github.com/greenfuze/rig/internal/rig"
)

// Decision is the classification outcome for one raw target.
type Decision struct {
	NodeKind      rig.NodeKind
	ComponentKind rig.ComponentKind
	Language      rig.Language
	Languages     []rig.Language
	Runtime       rig.Runtime
	Warnings      []string
}

// Classify determines the node kind and, for components, the component kind,
// language, and runtime of a raw target.
func Classify(target ports.RawTarget, toolchains map[string]ports.ToolchainInfo) Decision {
	d := Decision{NodeKind: nodeKind(target)}
	if d.NodeKind != rig.NodeComponent {
		return d
	}

	d.ComponentKind, d.Warnings = componentKind(target)
	d.Language, d.Languages = languages(target, toolchains)
	d.Runtime = runtime(d.Language, compilerID(d.Language, toolchains), d.ComponentKind)
	return d
}

// nodeKind applies the ordered node-kind rules; the first match wins.
func nodeKind(t ports.RawTarget) rig.NodeKind {
	switch t.Type {
	case "EXECUTABLE", "SHARED_LIBRARY", "STATIC_LIBRARY", "MODULE_LIBRARY", "OBJECT_LIBRARY":
		return rig.NodeComponent
	case "UTILITY":
		switch {
		case len(t.Artifacts) > 0:
			return rig.NodeComponent
		case t.HasCommand:
			return rig.NodeRunner
		case len(t.Dependencies) > 0:
			return rig.NodeAggregator
		default:
			return rig.NodeUtility
		}
	case "INTERFACE_LIBRARY":
		return rig.NodeInterface
	case "IMPORTED":
		return rig.NodeExternalComponent
	default:
		return rig.NodeUnknown
	}
}

var typeKinds = map[string]rig.ComponentKind{
	"EXECUTABLE":     rig.ComponentExecutable,
	"SHARED_LIBRARY": rig.ComponentSharedLibrary,
	"STATIC_LIBRARY": rig.ComponentStaticLibrary,
	"MODULE_LIBRARY": rig.ComponentModuleLibrary,
	"OBJECT_LIBRARY": rig.ComponentObjectLibrary,
}

var extensionKinds = map[string]rig.ComponentKind{
	".exe":   rig.ComponentExecutable,
	".out":   rig.ComponentExecutable,
	".app":   rig.ComponentExecutable,
	".dll":   rig.ComponentSharedLibrary,
	".so":    rig.ComponentSharedLibrary,
	".dylib": rig.ComponentSharedLibrary,
	".a":     rig.ComponentStaticLibrary,
	".lib":   rig.ComponentStaticLibrary,
	".jar":   rig.ComponentVM,
	".war":   rig.ComponentVM,
	".ear":   rig.ComponentVM,
	".py":    rig.ComponentInterpreted,
	".js":    rig.ComponentInterpreted,
	".mjs":   rig.ComponentInterpreted,
	".ts":    rig.ComponentInterpreted,
}

// componentKind prefers the target type when definitive and falls back to the
// first artifact's extension. A conflict between the two resolves in favor of
// the target type and surfaces as a warning.
func componentKind(t ports.RawTarget) (rig.ComponentKind, []string) {
	extKind := rig.ComponentUnknown
	if len(t.Artifacts) > 0 {
		ext := strings.ToLower(filepath.Ext(t.Artifacts[0]))
		if k, ok := extensionKinds[ext]; ok {
			extKind = k
		}
	}

	if typed, ok := typeKinds[t.Type]; ok {
		if extKind != rig.ComponentUnknown && extKind != typed {
			return typed, []string{
				"artifact extension suggests " + string(extKind) + " but target type is " + t.Type,
			}
		}
		return typed, nil
	}
	return extKind, nil
}

var compileLanguages = map[string]rig.Language{
	"C":       rig.LanguageC,
	"CXX":     rig.LanguageCpp,
	"CSharp":  rig.LanguageCSharp,
	"Java":    rig.LanguageJava,
	"Go":      rig.LanguageGo,
	"Rust":    rig.LanguageRust,
	"Fortran": rig.LanguageFortran,
	"Swift":   rig.LanguageSwift,
	"OBJC":    rig.LanguageObjC,
	"OBJCXX":  rig.LanguageObjCpp,
}

var extensionLanguages = map[string]rig.Language{
	".c":     rig.LanguageC,
	".cc":    rig.LanguageCpp,
	".cpp":   rig.LanguageCpp,
	".cxx":   rig.LanguageCpp,
	".cs":    rig.LanguageCSharp,
	".java":  rig.LanguageJava,
	".go":    rig.LanguageGo,
	".py":    rig.LanguagePython,
	".rs":    rig.LanguageRust,
	".js":    rig.LanguageJavaScript,
	".mjs":   rig.LanguageJavaScript,
	".ts":    rig.LanguageTypeScript,
	".f":     rig.LanguageFortran,
	".f90":   rig.LanguageFortran,
	".swift": rig.LanguageSwift,
	".m":     rig.LanguageObjC,
	".mm":    rig.LanguageObjCpp,
}

// languages derives the primary language and the full set. Preference order:
// first non-empty compile-group language, then source-language majority, then
// the link language, then the toolchain's language when exactly one toolchain
// exists, then unknown. In the majority step the language with the most source
// files wins; ties break on the lexicographically smallest source path
// claiming each language.
func languages(t ports.RawTarget, toolchains map[string]ports.ToolchainInfo) (rig.Language, []rig.Language) {
	all := make(map[rig.Language]bool)

	counts := make(map[rig.Language]int)
	smallest := make(map[rig.Language]string)
	record := func(lang rig.Language, path string) {
		all[lang] = true
		counts[lang]++
		if cur, ok := smallest[lang]; !ok || path < cur {
			smallest[lang] = path
		}
	}
	for _, src := range t.Sources {
		if src.Language != "" {
			if lang, ok := compileLanguages[src.Language]; ok {
				record(lang, src.Path)
				continue
			}
		}
		if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(src.Path))]; ok {
			record(lang, src.Path)
		}
	}

	var primary rig.Language
	for _, cg := range t.CompileGroupLangs {
		if lang, ok := compileLanguages[cg]; ok && cg != "" {
			primary = lang
			all[lang] = true
			break
		}
	}
	if primary == "" {
		primary = majority(counts, smallest)
	}
	if primary == "" {
		if lang, ok := compileLanguages[t.LinkLanguage]; ok {
			primary = lang
			all[lang] = true
		}
	}
	if primary == "" && len(toolchains) == 1 {
		names := make([]string, 0, 1)
		for name := range toolchains {
			names = append(names, name)
		}
		if lang, ok := compileLanguages[names[0]]; ok {
			primary = lang
			all[lang] = true
		}
	}
	if primary == "" {
		primary = rig.LanguageUnknown
	}

	set := make([]rig.Language, 0, len(all))
	for lang := range all {
		set = append(set, lang)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	if len(set) == 0 {
		set = []rig.Language{primary}
	}
	return primary, set
}

func majority(counts map[rig.Language]int, smallest map[rig.Language]string) rig.Language {
	var best rig.Language
	bestCount := 0
	for lang, count := range counts {
		switch {
		case count > bestCount:
			best, bestCount = lang, count
		case count == bestCount && count > 0 && smallest[lang] < smallest[best]:
			best = lang
		}
	}
	return best
}

func compilerID(lang rig.Language, toolchains map[string]ports.ToolchainInfo) string {
	for name, info := range toolchains {
		if compileLanguages[name] == lang {
			return info.CompilerID
		}
	}
	return ""
}

// runtime derives the execution environment from the fixed
// (language, compiler id, component kind) table.
func runtime(lang rig.Language, compiler string, kind rig.ComponentKind) rig.Runtime {
	if lang == rig.LanguageJava || kind == rig.ComponentVM {
		return rig.RuntimeJVM
	}
	switch lang {
	case rig.LanguageCSharp:
		return rig.RuntimeDotNet
	case rig.LanguageGo:
		return rig.RuntimeGo
	case rig.LanguagePython:
		return rig.RuntimePython
	case rig.LanguageJavaScript, rig.LanguageTypeScript:
		return rig.RuntimeNodeJS
	case rig.LanguageC, rig.LanguageCpp, rig.LanguageObjC, rig.LanguageObjCpp:
		switch {
		case strings.Contains(compiler, "MSVC"):
			if lang == rig.LanguageC {
				return rig.RuntimeMSVCC
			}
			return rig.RuntimeMSVCCPP
		case compiler == "GNU" || strings.Contains(compiler, "Clang"):
			return rig.RuntimeClangLike
		default:
			return rig.RuntimeUnknown
		}
	default:
		return rig.RuntimeUnknown
	}
}
