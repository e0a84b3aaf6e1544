package generator

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"sort"
)

//go:embed templates
var embedded embed.FS

// Embedded returns the built-in template tree, one directory per dialect.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

func dirFS(dir string) fs.FS { return os.DirFS(dir) }

// Overlay returns a file system where files of upper shadow files of lower.
// Directory listings are merged.
func Overlay(upper, lower fs.FS) fs.FS {
	return &overlayFS{upper: upper, lower: lower}
}

type overlayFS struct {
	upper, lower fs.FS
}

var (
	_ fs.ReadDirFS  = (*overlayFS)(nil)
	_ fs.ReadFileFS = (*overlayFS)(nil)
	_ fs.StatFS     = (*overlayFS)(nil)
)

func (o *overlayFS) Open(name string) (fs.File, error) {
	f, err := o.upper.Open(name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return o.lower.Open(name)
}

func (o *overlayFS) ReadFile(name string) ([]byte, error) {
	b, err := fs.ReadFile(o.upper, name)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return fs.ReadFile(o.lower, name)
}

func (o *overlayFS) Stat(name string) (fs.FileInfo, error) {
	info, err := fs.Stat(o.upper, name)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return fs.Stat(o.lower, name)
}

func (o *overlayFS) ReadDir(name string) ([]fs.DirEntry, error) {
	upper, upperErr := fs.ReadDir(o.upper, name)
	lower, lowerErr := fs.ReadDir(o.lower, name)
	if upperErr != nil && lowerErr != nil {
		return nil, lowerErr
	}

	byName := make(map[string]fs.DirEntry, len(upper)+len(lower))
	for _, e := range lower {
		byName[e.Name()] = e
	}
	for _, e := range upper {
		byName[e.Name()] = e
	}

	out := make([]fs.DirEntry, 0, len(byName))
	for _, e := range byName {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Dialects lists the embedded template sets.
func Dialects() ([]string, error) {
	entries, err := fs.ReadDir(Embedded(), ".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
