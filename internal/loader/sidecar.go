package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Sidecar is the optional YAML file next to a metadata CSV.
// Unknown fields cause parse errors.
type Sidecar struct {
	Description string            `yaml:"description"`
	Properties  map[string]string `yaml:"properties"`
}

// sidecarExts are tried in order; the first existing file wins.
var sidecarExts = []string{".yaml", ".yml"}

// loadSidecar reads <base>.yaml or <base>.yml and returns its properties.
// A missing sidecar yields nil.
func (l *Loader) loadSidecar(base string) (map[string]string, error) {
	for _, ext := range sidecarExts {
		path := base + ext
		content, err := os.ReadFile(path) //#nosec G304 -- path comes from the project's metadata directory
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read sidecar: %w", err)
		}

		sc, err := ParseSidecar(content)
		if err != nil {
			return nil, &FileError{File: path, Err: err}
		}
		return sc.Properties, nil
	}
	return nil, nil
}

// ParseSidecar parses sidecar YAML with strict field checking.
func ParseSidecar(content []byte) (*Sidecar, error) {
	sc := &Sidecar{}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(sc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid sidecar: %w", err)
	}
	return sc, nil
}
