package agent

import (
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/finsight/finsight/pkg/adapters/llm"
)

// Registry is the static catalog of capabilities offered to the model.
// Registration order is preserved so the model sees an identical tool surface
// on every request.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   map[string]Tool{},
		schemas: map[string]*jsonschema.Schema{},
	}
}

// Register adds a capability. The descriptor's schema is compiled here so a
// malformed schema fails at startup, not at dispatch. Duplicate names are
// rejected.
func (r *Registry) Register(t Tool) error {
	desc := t.Descriptor()
	if desc.Name == "" {
		return fmt.Errorf("agent: empty capability name")
	}
	sch, err := compileSchema(desc.InputSchema)
	if err != nil {
		return fmt.Errorf("agent: capability %q has invalid schema: %w", desc.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("agent: capability %q already registered", desc.Name)
	}
	r.order = append(r.order, desc.Name)
	r.tools[desc.Name] = t
	r.schemas[desc.Name] = sch
	return nil
}

// MustRegister panics on registration failure; capabilities are wired at
// process start where a bad descriptor is a programming error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// schema returns the compiled schema for name; nil means unconstrained.
func (r *Registry) schema(name string) *jsonschema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[name]
}

// Describe returns all descriptors in registration order.
func (r *Registry) Describe() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Descriptor())
	}
	return out
}

// Names returns all capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions renders the catalog in the completion provider's wire form.
func (r *Registry) Definitions() []llm.ToolDefinition {
	descs := r.Describe()
	out := make([]llm.ToolDefinition, len(descs))
	for i, d := range descs {
		out[i] = llm.ToolDefinition{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
	}
	return out
}
