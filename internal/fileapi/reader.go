package fileapi

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/greenfuze/rig/internal/ports"
	rigerrors "github.com/greenfuze/rig/pkg/errors"
)

// replyDir is the File API v1 reply location relative to the build directory.
const replyDir = ".cmake/api/v1/reply"

const (
	codemodelMajor  = 2
	toolchainsMajor = 1
)

var structValidator = validator.New()

// Reply is a loaded reply set. Target objects are loaded lazily, at most once
// each, and cached by target id.
type Reply struct {
	IndexPath    string
	Generator    string
	CMakeVersion string
	Codemodel    *Codemodel
	Toolchains   *Toolchains
	Cache        *Cache
	CMakeFiles   *CMakeFiles

	dir     string
	targets map[string]*Target
	log     ports.Logger
}

// Load locates the newest index under <buildDir>/.cmake/api/v1/reply, parses
// it, and resolves every referenced object except per-target files, which are
// deferred to Target. The only side effects are file reads.
func Load(ctx context.Context, buildDir string, log ports.Logger) (*Reply, error) {
	dir := filepath.Join(buildDir, replyDir)
	indexPath, err := newestIndex(dir, buildDir)
	if err != nil {
		return nil, err
	}

	log.Debug(ctx, "loading file api reply", "index", indexPath)

	var index Index
	if err := readJSON(indexPath, &index); err != nil {
		return nil, err
	}
	if err := structValidator.Struct(&index); err != nil {
		return nil, rigerrors.NewParseError(indexPath, 0, err)
	}

	reply := &Reply{
		IndexPath:    indexPath,
		Generator:    index.CMake.Generator.Name,
		CMakeVersion: index.CMake.Version.String,
		dir:          dir,
		targets:      make(map[string]*Target),
		log:          log,
	}

	for _, obj := range index.Objects {
		path := filepath.Join(dir, obj.JSONFile)
		switch obj.Kind {
		case "codemodel":
			if obj.Version.Major != codemodelMajor {
				return nil, rigerrors.NewSchemaMismatchError("codemodel", obj.Version.Major, codemodelMajor)
			}
			var cm Codemodel
			if err := readReplyObject(indexPath, path, &cm); err != nil {
				return nil, err
			}
			if err := structValidator.Struct(&cm); err != nil {
				return nil, rigerrors.NewParseError(path, 0, err)
			}
			reply.Codemodel = &cm
		case "toolchains":
			if obj.Version.Major != toolchainsMajor {
				return nil, rigerrors.NewSchemaMismatchError("toolchains", obj.Version.Major, toolchainsMajor)
			}
			var tc Toolchains
			if err := readReplyObject(indexPath, path, &tc); err != nil {
				return nil, err
			}
			reply.Toolchains = &tc
		case "cache":
			var cache Cache
			if err := readReplyObject(indexPath, path, &cache); err != nil {
				return nil, err
			}
			reply.Cache = &cache
		case "cmakeFiles":
			var files CMakeFiles
			if err := readReplyObject(indexPath, path, &files); err != nil {
				return nil, err
			}
			reply.CMakeFiles = &files
		default:
			log.Debug(ctx, "ignoring reply object", "kind", obj.Kind)
		}
	}

	if reply.Codemodel == nil {
		return nil, rigerrors.NewNoReplyFoundError(buildDir)
	}
	return reply, nil
}

// TargetPointers returns all target references of the named configuration, or
// of the first configuration when name is empty. Pointers are returned in
// name order for deterministic iteration.
func (r *Reply) TargetPointers(configuration string) []TargetPointer {
	var cfg *CodemodelConfiguration
	for i := range r.Codemodel.Configurations {
		c := &r.Codemodel.Configurations[i]
		if configuration == "" || c.Name == configuration {
			cfg = c
			break
		}
	}
	if cfg == nil {
		return nil
	}
	pointers := append([]TargetPointer(nil), cfg.Targets...)
	sort.Slice(pointers, func(i, j int) bool { return pointers[i].Name < pointers[j].Name })
	return pointers
}

// Target loads the per-target reply object behind ptr, caching by target id.
func (r *Reply) Target(ptr TargetPointer) (*Target, error) {
	if t, ok := r.targets[ptr.ID]; ok {
		return t, nil
	}
	path := filepath.Join(r.dir, ptr.JSONFile)
	var target Target
	if err := readReplyObject(r.IndexPath, path, &target); err != nil {
		return nil, err
	}
	r.targets[ptr.ID] = &target
	return &target, nil
}

// CacheValue returns the value of a cache entry, or "" when absent.
func (r *Reply) CacheValue(name string) string {
	if r.Cache == nil {
		return ""
	}
	for _, e := range r.Cache.Entries {
		if e.Name == name {
			return e.Value
		}
	}
	return ""
}

// newestIndex picks the most recently modified index-*.json in dir.
func newestIndex(dir, buildDir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", rigerrors.NewNoReplyFoundError(buildDir)
	}

	var newest string
	var newestMod int64 = -1
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "index-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > newestMod {
			newestMod = mod
			newest = filepath.Join(dir, name)
		}
	}
	if newest == "" {
		return "", rigerrors.NewNoReplyFoundError(buildDir)
	}
	return newest, nil
}

// readReplyObject reads a file referenced by the index, translating a missing
// file into StaleReply.
func readReplyObject(indexPath, path string, out any) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return rigerrors.NewStaleReplyError(indexPath, path)
		}
		return err
	}
	return readJSON(path, out)
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return rigerrors.NewParseError(path, 0, err)
	}
	return nil
}
