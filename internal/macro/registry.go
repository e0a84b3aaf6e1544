package macro

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
)

// ReservedNamespaces are template globals a macro file may not shadow.
var ReservedNamespaces = []string{"config", "env", "target", "target_table", "mappings", "loop"}

// Registry holds loaded macro modules by namespace.
type Registry struct {
	modules map[string]*LoadedModule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*LoadedModule)}
}

// Register adds a module. Reserved and duplicate namespaces are rejected.
func (r *Registry) Register(m *LoadedModule) error {
	for _, reserved := range ReservedNamespaces {
		if m.Namespace == reserved {
			return &RegistryError{Namespace: m.Namespace, Message: "namespace is reserved"}
		}
	}
	if existing, ok := r.modules[m.Namespace]; ok {
		return &RegistryError{
			Namespace: m.Namespace,
			Message:   fmt.Sprintf("already defined in %s", existing.Path),
		}
	}
	r.modules[m.Namespace] = m
	return nil
}

// RegisterAll registers modules in order and stops at the first error.
func (r *Registry) RegisterAll(modules []*LoadedModule) error {
	for _, m := range modules {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether namespace is registered.
func (r *Registry) Has(namespace string) bool {
	_, ok := r.modules[namespace]
	return ok
}

// Get returns the module for namespace, or nil.
func (r *Registry) Get(namespace string) *LoadedModule {
	return r.modules[namespace]
}

// Len returns the number of registered modules.
func (r *Registry) Len() int { return len(r.modules) }

// Namespaces returns the registered namespaces sorted.
func (r *Registry) Namespaces() []string {
	out := make([]string, 0, len(r.modules))
	for ns := range r.modules {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// ToStarlarkDict exposes every module as a global named after its namespace.
func (r *Registry) ToStarlarkDict() starlark.StringDict {
	dict := make(starlark.StringDict, len(r.modules))
	for ns, m := range r.modules {
		dict[ns] = &starlarkModule{name: ns, exports: m.Exports}
	}
	return dict
}

// LoadAndRegister loads every macro file in dir into a new registry. A missing
// directory yields an empty registry.
func LoadAndRegister(dir string) (*Registry, error) {
	modules, err := NewLoader(dir, nil).Load()
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	if err := r.RegisterAll(modules); err != nil {
		return nil, err
	}
	return r, nil
}

// RegistryError reports a namespace that cannot be registered.
type RegistryError struct {
	Namespace string
	Message   string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("macro namespace %q: %s", e.Namespace, e.Message)
}

// starlarkModule is a macro namespace as a Starlark value: utils.fn(...).
type starlarkModule struct {
	name    string
	exports starlark.StringDict
}

var _ starlark.HasAttrs = (*starlarkModule)(nil)

func (m *starlarkModule) String() string        { return "<module " + m.name + ">" }
func (m *starlarkModule) Type() string          { return "module" }
func (m *starlarkModule) Freeze()               { m.exports.Freeze() }
func (m *starlarkModule) Truth() starlark.Bool  { return starlark.True }
func (m *starlarkModule) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: module") }

func (m *starlarkModule) Attr(name string) (starlark.Value, error) {
	if v, ok := m.exports[name]; ok {
		return v, nil
	}
	return nil, starlark.NoSuchAttrError(fmt.Sprintf("module %s has no attribute %s", m.name, name))
}

func (m *starlarkModule) AttrNames() []string { return m.exports.Keys() }
