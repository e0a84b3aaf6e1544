package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	sharedcfg "github.com/leapstack-labs/vaultgen/internal/config"
)

// maxUpwardSearchLevels bounds the search for vaultgen.yaml above the working directory.
const maxUpwardSearchLevels = 10

const envPrefix = "VAULTGEN_"

// flagKeys maps flag names whose config key is not the snake_case flag name.
var flagKeys = map[string]string{
	"state": "state_path",
	"env":   "environment",
}

// pathFlags are the flags holding paths. When set they are resolved against
// the working directory instead of the project root.
var pathFlags = []string{"metadata-dir", "mappings-dir", "macros-dir", "templates-dir", "output-dir", "state"}

var defaults = map[string]any{
	"metadata_dir": DefaultMetadataDir,
	"mappings_dir": DefaultMappingsDir,
	"macros_dir":   DefaultMacrosDir,
	"output_dir":   DefaultOutputDir,
	"state_path":   DefaultStateFile,
	"dialect":      DefaultDialect,
	"environment":  DefaultEnv,
	"verbose":      false,
	"output":       DefaultOutput,
}

// LoadConfig builds the configuration from, lowest precedence first, the
// defaults, the config file, VAULTGEN_* environment variables and the flags
// that were set. The overrides of the selected environment apply on top of
// everything but flags. cfgFile may be empty to use the vaultgen.yaml of the
// project root.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	l := &layers{k: koanf.New("."), flags: flags}

	root := inferProjectRoot(flags)
	if cfgFile != "" && !l.changed("project-dir") {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			root = filepath.Dir(abs)
		}
	}
	if cfgFile == "" {
		cfgFile = sharedcfg.FindConfigFile(root)
	}

	if err := l.load(cfgFile); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := l.k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = root
	cfg.File = cfgFile

	cfg.applyEnvironment(l.changed)
	if err := l.resolvePaths(cfg); err != nil {
		return nil, err
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	cfg.Target.ApplyDefaults(cfg.Dialect)
	cfg.Target.Schema = expandEnvVars(cfg.Target.Schema)
	cfg.Target.Database = expandEnvVars(cfg.Target.Database)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// layers merges the configuration sources of one LoadConfig call.
type layers struct {
	k     *koanf.Koanf
	flags *pflag.FlagSet
}

func (l *layers) changed(name string) bool {
	return l.flags != nil && l.flags.Changed(name)
}

func (l *layers) load(cfgFile string) error {
	if err := l.k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}
	if cfgFile != "" {
		if err := l.k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// VAULTGEN_METADATA_DIR -> metadata_dir
	if err := l.k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return fmt.Errorf("failed to load env vars: %w", err)
	}

	if l.flags == nil {
		return nil
	}
	if err := l.k.Load(posflag.ProviderWithFlag(l.flags, ".", l.k, func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		return key, posflag.FlagVal(l.flags, f)
	}), nil); err != nil {
		return fmt.Errorf("failed to load flags: %w", err)
	}
	return nil
}

// resolvePaths expands ${VAR} in the configured paths and makes them
// absolute. Flag values are relative to the working directory, everything
// else to the project root.
func (l *layers) resolvePaths(cfg *Config) error {
	paths := map[string]*string{
		"metadata-dir":  &cfg.MetadataDir,
		"mappings-dir":  &cfg.MappingsDir,
		"macros-dir":    &cfg.MacrosDir,
		"templates-dir": &cfg.TemplatesDir,
		"output-dir":    &cfg.OutputDir,
		"state":         &cfg.StatePath,
	}
	for _, name := range pathFlags {
		p := paths[name]
		if l.changed(name) {
			if v, _ := l.flags.GetString(name); v != "" {
				abs, err := filepath.Abs(v)
				if err != nil {
					return fmt.Errorf("invalid --%s: %w", name, err)
				}
				*p = abs
				continue
			}
		}
		*p = expandEnvVars(*p)
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(cfg.ProjectRoot, *p)
		}
	}
	return nil
}

// inferProjectRoot picks the project root, in order: --project-dir, the
// parent of --metadata-dir when it holds vaultgen.yaml or the metadata dir is
// named "metadata", the nearest directory above the working directory with a
// vaultgen.yaml, and finally the working directory itself.
func inferProjectRoot(flags *pflag.FlagSet) string {
	if flags != nil {
		if dir, _ := flags.GetString("project-dir"); dir != "" && flags.Changed("project-dir") {
			if abs, err := filepath.Abs(dir); err == nil {
				return abs
			}
			return filepath.Clean(dir)
		}
		if dir, _ := flags.GetString("metadata-dir"); dir != "" && flags.Changed("metadata-dir") {
			if abs, err := filepath.Abs(dir); err == nil {
				parent := filepath.Dir(abs)
				if sharedcfg.FindConfigFile(parent) != "" || filepath.Base(abs) == DefaultMetadataDir {
					return parent
				}
			}
		}
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := sharedcfg.FindProjectRoot(cwd, maxUpwardSearchLevels); root != "" {
		return root
	}
	return cwd
}

// applyEnvironment merges the overrides of the selected environment into c.
// Settings whose flag was set are left alone.
func (c *Config) applyEnvironment(flagSet func(name string) bool) {
	envCfg, ok := c.Environments[c.Environment]
	if !ok {
		return
	}
	override := func(dst *string, v, flag string) {
		if v != "" && !flagSet(flag) {
			*dst = v
		}
	}
	override(&c.MetadataDir, envCfg.MetadataDir, "metadata-dir")
	override(&c.MappingsDir, envCfg.MappingsDir, "mappings-dir")
	override(&c.OutputDir, envCfg.OutputDir, "output-dir")
	override(&c.Schema, envCfg.Schema, "schema")

	if envCfg.Target != nil {
		c.Target = MergeTargetConfig(c.Target, envCfg.Target)
	}
	if len(envCfg.Vars) > 0 {
		vars := make(map[string]any, len(c.Vars)+len(envCfg.Vars))
		maps.Copy(vars, c.Vars)
		maps.Copy(vars, envCfg.Vars)
		c.Vars = vars
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with its value. Unset variables are kept as
// written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// MergeTargetConfig returns base with the non-empty fields of override. Neither
// argument is modified.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	if override.Dialect != "" {
		merged.Dialect = override.Dialect
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	return &merged
}
