// Package config provides the shared project configuration types of vaultgen.
// It is decoupled from CLI concerns so any tool that needs to locate and read
// a project can use it.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/vaultgen/internal/generator"
	starctx "github.com/leapstack-labs/vaultgen/internal/starlark"
)

// TargetConfig describes the warehouse the generated SQL is meant for. It is
// exposed to templates as the target global.
type TargetConfig struct {
	Dialect  string `koanf:"dialect"`
	Schema   string `koanf:"schema"`
	Database string `koanf:"database"`
}

// ToTargetInfo converts TargetConfig to a starlark.TargetInfo for template rendering.
func (t *TargetConfig) ToTargetInfo() *starctx.TargetInfo {
	if t == nil {
		return nil
	}
	return &starctx.TargetInfo{
		Dialect:  t.Dialect,
		Schema:   t.Schema,
		Database: t.Database,
	}
}

// Validate checks that the target dialect has an embedded template set.
func (t *TargetConfig) Validate() error {
	if t == nil || t.Dialect == "" {
		return nil
	}
	dialects, err := generator.Dialects()
	if err != nil {
		return err
	}
	for _, d := range dialects {
		if strings.EqualFold(d, t.Dialect) {
			return nil
		}
	}
	return fmt.Errorf("unknown dialect %q (available: %s)", t.Dialect, strings.Join(dialects, ", "))
}

// ProjectConfig holds the project layout and generation settings.
type ProjectConfig struct {
	MetadataDir  string         `koanf:"metadata_dir"`
	MappingsDir  string         `koanf:"mappings_dir"`
	MacrosDir    string         `koanf:"macros_dir"`
	TemplatesDir string         `koanf:"templates_dir"`
	OutputDir    string         `koanf:"output_dir"`
	Dialect      string         `koanf:"dialect"`
	Schema       string         `koanf:"schema"`
	Targets      []string       `koanf:"targets"`
	Target       *TargetConfig  `koanf:"target"`
	Vars         map[string]any `koanf:"vars"`
}
