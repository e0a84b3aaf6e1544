package config

import "github.com/leapstack-labs/vaultgen/internal/generator"

// Default configuration values.
const (
	DefaultMetadataDir = "metadata"
	DefaultMappingsDir = "mappings"
	DefaultMacrosDir   = "macros"
	DefaultOutputDir   = "generated"
	DefaultDialect     = generator.DefaultDialect
)

// ApplyDefaults fills the unset directories and dialect of c.
func (c *ProjectConfig) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.MetadataDir == "" {
		c.MetadataDir = DefaultMetadataDir
	}
	if c.MappingsDir == "" {
		c.MappingsDir = DefaultMappingsDir
	}
	if c.MacrosDir == "" {
		c.MacrosDir = DefaultMacrosDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Dialect == "" {
		c.Dialect = DefaultDialect
	}
	c.Target.ApplyDefaults(c.Dialect)
}

// ApplyDefaults sets the target dialect to dialect when unset.
func (t *TargetConfig) ApplyDefaults(dialect string) {
	if t == nil {
		return
	}
	if t.Dialect == "" {
		t.Dialect = dialect
	}
}
