package field

import (
	"fmt"
	"sort"
)

// Parser builds a field definition from named command arguments.
type Parser func(m *Module, args *Args) (Definition, error)

// Registry maps field type names to their parsers. Each module owns one;
// field type packages populate it at startup.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser for typeName.
func (r *Registry) Register(typeName string, p Parser) error {
	if typeName == "" || p == nil {
		return fmt.Errorf("%w: register %q", ErrInvalidArgument, typeName)
	}
	if _, exists := r.parsers[typeName]; exists {
		return fmt.Errorf("%w: field type %q", ErrNameInUse, typeName)
	}
	r.parsers[typeName] = p
	return nil
}

// Lookup returns the parser for typeName.
func (r *Registry) Lookup(typeName string) (Parser, bool) {
	p, ok := r.parsers[typeName]
	return p, ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Parse builds a definition of the named type from args. Unused arguments
// are an error.
func (m *Module) Parse(typeName string, args *Args) (Definition, error) {
	p, ok := m.registry.Lookup(typeName)
	if !ok {
		return Definition{}, fmt.Errorf("%w: field type %q", ErrNotFound, typeName)
	}
	def, err := p(m, args)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", typeName, err)
	}
	if err := args.Check(); err != nil {
		return Definition{}, fmt.Errorf("%s: %w", typeName, err)
	}
	return def, nil
}
