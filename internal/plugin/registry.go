// Package plugin keeps the registry of build-system plugins. The reference
// CMake plugin registers itself at startup; additional build systems register
// their own Discover functions under their name.
package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/greenfuze/rig/internal/ports"
	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

// DiscoverFunc probes a repository/build-tree pair and returns a ready plugin.
// It fails fast when the build tree was not configured by its build system.
type DiscoverFunc func(ctx context.Context, repoRoot, buildDir string, log ports.Logger) (ports.BuildSystemPlugin, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DiscoverFunc)
)

// Register adds a build-system plugin factory under its name.
func Register(name string, discover DiscoverFunc) error {
	if discover == nil {
		return rigerrors.NewValidationError("plugin", fmt.Sprintf("discover function for %q is nil", name), nil)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		return rigerrors.NewDuplicateEntityError("plugin", name)
	}

	registry[name] = discover
	return nil
}

// Get retrieves a registered plugin factory by name.
func Get(name string) (DiscoverFunc, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	discover, ok := registry[name]
	if !ok {
		return nil, rigerrors.NewValidationError("plugin", fmt.Sprintf("no build-system plugin registered for %q", name), nil)
	}
	return discover, nil
}

// Names lists the registered plugin names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all registrations (for tests).
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]DiscoverFunc)
}
