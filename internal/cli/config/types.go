// Package config provides configuration management for the vaultgen CLI.
//
// It extends the shared project configuration of internal/config with
// CLI-specific fields. The shared types are re-exported here via type
// aliases for convenience.
package config

import (
	sharedcfg "github.com/leapstack-labs/vaultgen/internal/config"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = sharedcfg.TargetConfig

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot  string               `koanf:"-"`
	File         string               `koanf:"-"` // config file read, if any
	MetadataDir  string               `koanf:"metadata_dir"`
	MappingsDir  string               `koanf:"mappings_dir"`
	MacrosDir    string               `koanf:"macros_dir"`
	TemplatesDir string               `koanf:"templates_dir"`
	OutputDir    string               `koanf:"output_dir"`
	StatePath    string               `koanf:"state_path"`
	Dialect      string               `koanf:"dialect"`
	Environment  string               `koanf:"environment"`
	Schema       string               `koanf:"schema"`
	Targets      []string             `koanf:"targets"`
	Concurrency  int                  `koanf:"concurrency"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Target       *TargetConfig        `koanf:"target"`
	Vars         map[string]any       `koanf:"vars"`
	Environments map[string]EnvConfig `koanf:"environments"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	MetadataDir string         `koanf:"metadata_dir"`
	MappingsDir string         `koanf:"mappings_dir"`
	OutputDir   string         `koanf:"output_dir"`
	Schema      string         `koanf:"schema"`
	Target      *TargetConfig  `koanf:"target"`
	Vars        map[string]any `koanf:"vars"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultMetadataDir = sharedcfg.DefaultMetadataDir
	DefaultMappingsDir = sharedcfg.DefaultMappingsDir
	DefaultMacrosDir   = sharedcfg.DefaultMacrosDir
	DefaultOutputDir   = sharedcfg.DefaultOutputDir
	DefaultDialect     = sharedcfg.DefaultDialect
	DefaultStateFile   = ".vaultgen/state.db"
	DefaultEnv         = "dev"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Project returns the shared project view of c.
func (c *Config) Project() *sharedcfg.ProjectConfig {
	return &sharedcfg.ProjectConfig{
		MetadataDir:  c.MetadataDir,
		MappingsDir:  c.MappingsDir,
		MacrosDir:    c.MacrosDir,
		TemplatesDir: c.TemplatesDir,
		OutputDir:    c.OutputDir,
		Dialect:      c.Dialect,
		Schema:       c.Schema,
		Targets:      c.Targets,
		Target:       c.Target,
		Vars:         c.Vars,
	}
}
