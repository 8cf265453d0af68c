package tool

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the bijective name -> capability mapping for one run. It is
// constructed once at startup and read-only afterwards; lookups need no
// synchronization beyond publication at construction.
type Registry struct {
	ordered []*Descriptor
	byName  map[string]*Descriptor
	sealed  bool
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register adds a descriptor. It fails with DuplicateNameError when the name
// is taken, and rejects descriptors missing a name, schema or capability.
func (r *Registry) Register(d *Descriptor) error {
	if r.sealed {
		return fmt.Errorf("registry is sealed, no registration after startup")
	}
	if d == nil {
		return fmt.Errorf("nil tool descriptor")
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return fmt.Errorf("tool descriptor requires a name")
	}
	if d.Capability == nil {
		return fmt.Errorf("tool %q has no capability", name)
	}
	if d.Schema == nil {
		return fmt.Errorf("tool %q has no input schema", name)
	}
	if _, exists := r.byName[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	r.byName[name] = d
	r.ordered = append(r.ordered, d)
	return nil
}

// MustRegister panics on registration failure; used for the static builtin
// table where a duplicate is a programming error.
func (r *Registry) MustRegister(d *Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Seal marks construction finished. Later Register calls fail.
func (r *Registry) Seal() {
	r.sealed = true
}

// Resolve returns the descriptor for name, or UnknownToolError listing every
// registered name.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	if d, ok := r.byName[strings.TrimSpace(name)]; ok {
		return d, nil
	}
	return nil, &UnknownToolError{Name: name, Registered: r.Names()}
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all descriptors in registration order.
func (r *Registry) List() []*Descriptor {
	out := make([]*Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Specs renders the registry as the tools array for a chat completion call.
func (r *Registry) Specs() []map[string]any {
	specs := make([]map[string]any, 0, len(r.ordered))
	for _, d := range r.ordered {
		specs = append(specs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  d.Schema.Document(),
			},
		})
	}
	return specs
}
