// Package fileapi reads CMake File API v1 reply sets into validated in-memory
// structures. All downstream stages consume these types; nothing else in the
// module touches the reply directory.
package fileapi

// Index is the reply index object (index-*.json).
type Index struct {
	CMake   IndexCMake    `json:"cmake"`
	Objects []IndexObject `json:"objects" validate:"required,min=1,dive"`
}

// IndexCMake carries generator and version information from the index.
type IndexCMake struct {
	Generator IndexGenerator `json:"generator"`
	Version   IndexVersion   `json:"version"`
}

// IndexGenerator names the generator used to configure the build tree.
type IndexGenerator struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

// IndexVersion is the cmake version block of the index.
type IndexVersion struct {
	String string `json:"string"`
}

// IndexObject references one reply object file.
type IndexObject struct {
	Kind     string        `json:"kind" validate:"required"`
	Version  ObjectVersion `json:"version"`
	JSONFile string        `json:"jsonFile" validate:"required"`
}

// ObjectVersion is the major/minor version of a reply object.
type ObjectVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// Codemodel is the codemodel-v2 object.
type Codemodel struct {
	Version        ObjectVersion            `json:"version"`
	Paths          CodemodelPaths           `json:"paths"`
	Configurations []CodemodelConfiguration `json:"configurations" validate:"required,min=1"`
}

// CodemodelPaths carries the source and build directories.
type CodemodelPaths struct {
	Source string `json:"source"`
	Build  string `json:"build"`
}

// CodemodelConfiguration is one build configuration with its target list.
type CodemodelConfiguration struct {
	Name    string          `json:"name"`
	Targets []TargetPointer `json:"targets"`
}

// TargetPointer references a per-target reply file.
type TargetPointer struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	JSONFile string `json:"jsonFile" validate:"required"`
}

// Target is a target-<hash>.json object.
type Target struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Type                string         `json:"type"`
	NameOnDisk          string         `json:"nameOnDisk"`
	Paths               CodemodelPaths `json:"paths"`
	IsGeneratorProvided bool           `json:"isGeneratorProvided"`
	Artifacts           []Artifact     `json:"artifacts"`
	Sources             []Source       `json:"sources"`
	CompileGroups       []CompileGroup `json:"compileGroups"`
	Dependencies        []Dependency   `json:"dependencies"`
	Link                *Link          `json:"link"`
	Install             *Install       `json:"install"`
	Backtrace           *int           `json:"backtrace"`
	BacktraceGraph      BacktraceGraph `json:"backtraceGraph"`
}

// Artifact is one build output of a target.
type Artifact struct {
	Path string `json:"path"`
}

// Source is one source file of a target.
type Source struct {
	Path              string `json:"path"`
	Backtrace         *int   `json:"backtrace"`
	CompileGroupIndex *int   `json:"compileGroupIndex"`
	IsGenerated       bool   `json:"isGenerated"`
}

// CompileGroup groups sources compiled with the same settings.
type CompileGroup struct {
	Language      string `json:"language"`
	SourceIndexes []int  `json:"sourceIndexes"`
}

// Dependency is an edge to another codemodel target.
type Dependency struct {
	ID        string `json:"id"`
	Backtrace *int   `json:"backtrace"`
}

// Link describes the link step of a target.
type Link struct {
	Language         string            `json:"language"`
	CommandFragments []CommandFragment `json:"commandFragments"`
}

// CommandFragment is one piece of the link command line.
type CommandFragment struct {
	Fragment string `json:"fragment"`
	Role     string `json:"role"`
}

// Install describes install rules attached to a target.
type Install struct {
	Prefix       InstallPrefix        `json:"prefix"`
	Destinations []InstallDestination `json:"destinations"`
}

// InstallPrefix is the configured install prefix.
type InstallPrefix struct {
	Path string `json:"path"`
}

// InstallDestination is one install destination of a target.
type InstallDestination struct {
	Path      string `json:"path"`
	Backtrace *int   `json:"backtrace"`
}

// BacktraceGraph mirrors the File API backtrace graph tables.
type BacktraceGraph struct {
	Nodes    []BacktraceNode `json:"nodes"`
	Commands []string        `json:"commands"`
	Files    []string        `json:"files"`
}

// BacktraceNode is one node of a backtrace graph.
type BacktraceNode struct {
	File    int  `json:"file"`
	Line    int  `json:"line"`
	Command *int `json:"command"`
	Parent  *int `json:"parent"`
}

// Toolchains is the toolchains-v1 object.
type Toolchains struct {
	Version    ObjectVersion `json:"version"`
	Toolchains []Toolchain   `json:"toolchains"`
}

// Toolchain describes the compiler for one language.
type Toolchain struct {
	Language string            `json:"language"`
	Compiler ToolchainCompiler `json:"compiler"`
}

// ToolchainCompiler carries the compiler identity for a toolchain.
type ToolchainCompiler struct {
	Path    string `json:"path"`
	ID      string `json:"id"`
	Version string `json:"version"`
}

// Cache is the cache-v2 object.
type Cache struct {
	Version ObjectVersion `json:"version"`
	Entries []CacheEntry  `json:"entries"`
}

// CacheEntry is one CMake cache variable.
type CacheEntry struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// CMakeFiles is the cmakeFiles-v1 object.
type CMakeFiles struct {
	Version ObjectVersion   `json:"version"`
	Inputs  []CMakeFileItem `json:"inputs"`
}

// CMakeFileItem is one list file that participated in configuration.
type CMakeFileItem struct {
	Path        string `json:"path"`
	IsGenerated bool   `json:"isGenerated"`
	IsExternal  bool   `json:"isExternal"`
	IsCMake     bool   `json:"isCMake"`
}
