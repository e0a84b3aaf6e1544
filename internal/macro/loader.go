// Package macro loads the project's Starlark helper macros. Each .star file in
// the macros directory becomes a namespace named after the file, callable from
// SQL templates as namespace.fn(...).
package macro

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// fileOptions is the Starlark dialect of macro files. It matches template
// expressions, so a helper may use set() wherever a template could.
var fileOptions = &syntax.FileOptions{Set: true}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Loader executes the .star files of a macros directory.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a loader for dir. print() output of macro files is
// logged at debug level. A nil logger discards it.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{dir: dir, logger: logger}
}

// LoadedModule is an executed macro file.
type LoadedModule struct {
	Namespace string              // file name without .star, e.g. "hash"
	Path      string              // path of the .star file
	Exports   starlark.StringDict // frozen globals not starting with _
}

// Load executes every macro file, in file name order. A missing directory
// yields no modules.
func (l *Loader) Load() ([]*LoadedModule, error) {
	files, err := starFiles(l.dir)
	if err != nil {
		return nil, err
	}

	modules := make([]*LoadedModule, 0, len(files))
	for _, file := range files {
		m, err := l.load(file)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	l.logger.Debug("loaded macros", "dir", l.dir, "namespaces", len(modules))
	return modules, nil
}

func (l *Loader) load(path string) (*LoadedModule, error) {
	namespace, err := namespaceOf(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	src, err := os.ReadFile(path) //nolint:gosec // G304: path is a .star file of the macros directory
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	thread := &starlark.Thread{
		Name: "macro " + namespace,
		Print: func(_ *starlark.Thread, msg string) {
			l.logger.Debug("macro print", "namespace", namespace, "message", msg)
		},
	}
	globals, err := starlark.ExecFileOptions(fileOptions, thread, path, src, nil)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	exports := make(starlark.StringDict, len(globals))
	for name, v := range globals {
		if !strings.HasPrefix(name, "_") {
			exports[name] = v
		}
	}
	return &LoadedModule{Namespace: namespace, Path: path, Exports: exports}, nil
}

// starFiles returns the .star files of dir sorted by name.
func starFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("macros directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("macros directory %s is not a directory", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// namespaceOf derives the namespace of a macro file. It must be usable as a
// Starlark identifier in templates.
func namespaceOf(path string) (string, error) {
	ns := strings.TrimSuffix(filepath.Base(path), ".star")
	if !identifier.MatchString(ns) {
		return "", fmt.Errorf("namespace %q is not a valid identifier", ns)
	}
	return ns, nil
}

// LoadError is a macro file that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("macro %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
