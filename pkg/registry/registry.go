// Package registry defines the read-only component definition registry the
// graph store consults when nodes are created. Definitions describe what can
// be placed on the canvas; the registry never learns about placed nodes.
package registry

import "sort"

// Definition describes a single (category, subtype) component type.
type Definition struct {
	// Name is the human-readable display name
	Name string `json:"name"`

	// Icon is the glyph identifier shown on the canvas
	Icon string `json:"icon,omitempty"`

	// Category is the functional role of the component
	Category string `json:"category"`

	// Subtype identifies the concrete implementation within the category
	Subtype string `json:"subtype"`

	// Description explains what the component does
	Description string `json:"description,omitempty"`

	// DefaultConfig seeds the configuration of newly created nodes
	DefaultConfig map[string]any `json:"defaultConfig,omitempty"`

	// RequiredFields lists configuration keys that must be non-empty before
	// a node of this type counts as configured
	RequiredFields []string `json:"requiredFields,omitempty"`

	// Inputs is the number of input ports a node of this type declares
	Inputs int `json:"inputs"`

	// Outputs is the number of output ports a node of this type declares
	Outputs int `json:"outputs"`
}

// Registry supplies component definitions. Implementations must be safe for
// concurrent readers; the core only ever reads from a registry.
type Registry interface {
	// Lookup returns the definition for a (category, subtype) pair
	Lookup(category, subtype string) (Definition, bool)

	// Definitions returns all known definitions sorted by category, then subtype
	Definitions() []Definition
}

// definitionKey identifies a definition within a Static registry
type definitionKey struct {
	category string
	subtype  string
}

// Static is an immutable in-memory Registry backed by a fixed set of
// definitions. The zero value is an empty registry.
type Static struct {
	defs map[definitionKey]Definition
}

// NewStatic builds a Static registry from the given definitions. A later
// definition for the same (category, subtype) pair replaces an earlier one.
func NewStatic(defs ...Definition) *Static {
	s := &Static{defs: make(map[definitionKey]Definition, len(defs))}
	for _, def := range defs {
		s.defs[definitionKey{category: def.Category, subtype: def.Subtype}] = def
	}
	return s
}

// Lookup returns the definition for a (category, subtype) pair
func (s *Static) Lookup(category, subtype string) (Definition, bool) {
	def, found := s.defs[definitionKey{category: category, subtype: subtype}]
	return def, found
}

// Definitions returns all definitions sorted by category, then subtype
func (s *Static) Definitions() []Definition {
	out := make([]Definition, 0, len(s.defs))
	for _, def := range s.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Subtype < out[j].Subtype
	})
	return out
}

// Categories returns the distinct categories present in the registry, sorted
func (s *Static) Categories() []string {
	seen := make(map[string]bool)
	for key := range s.defs {
		seen[key.category] = true
	}
	out := make([]string, 0, len(seen))
	for category := range seen {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of definitions in the registry
func (s *Static) Len() int {
	return len(s.defs)
}
