package config

import (
	"fmt"
	"os"
	"slices"
)

// validOutputs are the accepted values of the output key.
var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MetadataDir == "" {
		return fmt.Errorf("metadata_dir is required")
	}
	if c.OutputFormat != "" && !slices.Contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output %q: expected one of auto, text, markdown, json", c.OutputFormat)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return c.Target.Validate()
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.MetadataDir); os.IsNotExist(err) {
		return fmt.Errorf("metadata directory does not exist: %s\nHint: Create the directory or use --metadata-dir to specify a different path", c.MetadataDir)
	}
	return nil
}
