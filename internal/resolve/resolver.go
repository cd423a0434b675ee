// Package resolve turns link command fragments into external package records
// and separates them from intra-project dependencies. Every decision is
// evidence-based: package names and versions come from the fragment text and
// the build cache, never from guesses.
package resolve

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/greenfuze/rig/internal/ports"
	"github.com/greenfuze/rig/internal/rig"
)

var versionPattern = regexp.MustCompile(`^\d+([._]\d+)*$`)

// libraryExtensions are the suffixes treated as linkable libraries. Versioned
// shared objects (libfoo.so.1.2) are handled separately.
var libraryExtensions = map[string]bool{
	".lib":   true,
	".a":     true,
	".so":    true,
	".dylib": true,
	".dll":   true,
}

// Resolver classifies link fragments against the project's own artifacts and
// the package-manager signals found in the build cache.
type Resolver struct {
	repoRoot       string
	vcpkgRoot      string
	defaultManager rig.PackageManager
	artifactPaths  map[string]bool
	artifactStems  map[string]bool
}

// New builds a Resolver from the cache and the full raw target list. Cache
// entries CMAKE_TOOLCHAIN_FILE, VCPKG_ROOT, and VCPKG_TARGET_TRIPLET are
// inspected once to derive the default manager hint used when a library path
// carries no manager signal of its own. Without a hint the default stays
// unknown; a manager is never guessed.
func New(cache map[string]string, targets []ports.RawTarget, repoRoot string) *Resolver {
	r := &Resolver{
		repoRoot:       repoRoot,
		defaultManager: rig.ManagerUnknown,
		artifactPaths:  make(map[string]bool),
		artifactStems:  make(map[string]bool),
	}

	toolchainFile := cache["CMAKE_TOOLCHAIN_FILE"]
	switch {
	case strings.Contains(toolchainFile, "vcpkg"):
		r.defaultManager = rig.ManagerVcpkg
	case strings.Contains(toolchainFile, "conan"):
		r.defaultManager = rig.ManagerConan
	}
	if root := cache["VCPKG_ROOT"]; root != "" {
		r.vcpkgRoot = filepath.Clean(root)
		r.defaultManager = rig.ManagerVcpkg
	}
	if cache["VCPKG_TARGET_TRIPLET"] != "" {
		r.defaultManager = rig.ManagerVcpkg
	}

	for _, t := range targets {
		for _, artifact := range t.Artifacts {
			r.artifactPaths[filepath.Clean(artifact)] = true
			r.artifactStems[libraryStem(filepath.Base(artifact))] = true
		}
	}
	return r
}

// Externals extracts the external packages referenced by the target's link
// step. Fragments resolving to intra-project artifacts are skipped; a
// fragment is never both a dependency edge and an external package.
func (r *Resolver) Externals(target ports.RawTarget) []rig.ExternalPackage {
	var out []rig.ExternalPackage
	for _, frag := range target.LinkFragments {
		if frag.Role != "libraries" && frag.Role != "linker" {
			continue
		}
		pkg, ok := r.resolveFragment(strings.TrimSpace(frag.Fragment))
		if ok {
			out = append(out, pkg)
		}
	}
	return out
}

func (r *Resolver) resolveFragment(fragment string) (rig.ExternalPackage, bool) {
	if fragment == "" || strings.HasPrefix(fragment, "-L") || strings.HasPrefix(fragment, "-Wl,") {
		return rig.ExternalPackage{}, false
	}

	if name, ok := strings.CutPrefix(fragment, "-l"); ok {
		if r.artifactStems[name] {
			return rig.ExternalPackage{}, false
		}
		return rig.ExternalPackage{Manager: rig.ManagerSystem, Name: name, Version: rig.VersionUnknown}, true
	}
	if strings.HasPrefix(fragment, "-") {
		return rig.ExternalPackage{}, false
	}

	if !isLibraryFile(fragment) {
		return rig.ExternalPackage{}, false
	}

	path := filepath.Clean(fragment)
	if r.artifactPaths[path] {
		return rig.ExternalPackage{}, false
	}
	base := filepath.Base(path)
	stem := libraryStem(base)
	if r.artifactStems[stem] {
		return rig.ExternalPackage{}, false
	}

	name, version := splitNameVersion(stem)
	manager := r.managerForPath(path)
	return rig.ExternalPackage{Manager: manager, Name: name, Version: version}, true
}

// managerForPath reads the manager from the path's own signals, falling back
// to the cache-derived hint. A path with neither stays unknown.
func (r *Resolver) managerForPath(path string) rig.PackageManager {
	lower := strings.ToLower(filepath.ToSlash(path))
	switch {
	case strings.Contains(lower, "/vcpkg/installed/") || strings.Contains(lower, "/vcpkg_installed/"):
		return rig.ManagerVcpkg
	case r.vcpkgRoot != "" && rig.WithinRoot(r.vcpkgRoot, path):
		return rig.ManagerVcpkg
	case strings.Contains(lower, "/.conan/") || strings.Contains(lower, "/.conan2/") || strings.Contains(lower, "conan"):
		return rig.ManagerConan
	default:
		return r.defaultManager
	}
}

// isLibraryFile reports whether the fragment names a linkable library,
// including versioned shared objects like libfoo.so.1.2.
func isLibraryFile(fragment string) bool {
	base := filepath.Base(fragment)
	if libraryExtensions[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	return strings.Contains(base, ".so.")
}

// libraryStem strips the extension and any "lib" prefix from a library file
// name: "libcore.a" -> "core", "boost_system-....lib" -> "boost_system-...".
func libraryStem(base string) string {
	if idx := strings.Index(base, ".so."); idx >= 0 {
		base = base[:idx]
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return strings.TrimPrefix(base, "lib")
}

// splitNameVersion separates a library stem into package name and version.
// The name is the first "-"-separated segment; the version is the trailing
// segment when it is purely numeric with . or _ separators, otherwise unknown.
func splitNameVersion(stem string) (string, string) {
	segments := strings.Split(stem, "-")
	name := segments[0]
	version := rig.VersionUnknown
	if len(segments) > 1 {
		last := segments[len(segments)-1]
		if versionPattern.MatchString(last) {
			version = last
		}
	}
	return name, version
}
