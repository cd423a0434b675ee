// Package config loads the optional .rig.yaml settings file found at a
// repository root. Everything in it is an override; extraction works with an
// entirely absent file.
package config

// DefaultFileName is the settings file looked up at the repository root.
const DefaultFileName = ".rig.yaml"

// Config is the full settings document.
type Config struct {
	Version    string     `yaml:"version" validate:"omitempty,config_version"`
	Repository Repository `yaml:"repository"`
	Commands   Commands   `yaml:"commands"`
	Database   Database   `yaml:"database"`
	LogLevel   string     `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Repository overrides repository identity facts that cannot be derived from
// the worktree.
type Repository struct {
	Name      string `yaml:"name" validate:"omitempty,entity_name"`
	OutputDir string `yaml:"output_dir"`
}

// Commands records the commands a developer uses to drive the build. They are
// stored on the repository row verbatim; the extractor never runs them.
type Commands struct {
	Configure string `yaml:"configure"`
	Build     string `yaml:"build"`
	Install   string `yaml:"install"`
	Test      string `yaml:"test"`
}

// Database configures the persistence target.
type Database struct {
	Path string `yaml:"path"`
}
