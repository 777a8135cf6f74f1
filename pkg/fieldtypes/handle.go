package fieldtypes

import (
	"github.com/chazu/cmgui/pkg/field"
)

// Handle is a typed view of a field whose core is C. A nil *Handle is
// valid and yields a nil Field.
type Handle[C field.Core] struct {
	f *field.Field
}

// Field returns the underlying field, or nil for a nil handle.
func (h *Handle[C]) Field() *field.Field {
	if h == nil {
		return nil
	}
	return h.f
}

// Core returns the typed core.
func (h *Handle[C]) Core() C {
	var zero C
	if h == nil {
		return zero
	}
	c, _ := h.f.Core().(C)
	return c
}

func as[C field.Core](f *field.Field) *Handle[C] {
	if f == nil {
		return nil
	}
	if _, ok := f.Core().(C); !ok {
		return nil
	}
	return &Handle[C]{f: f}
}

func create(m *field.Module, name string, def field.Definition, err error) (*field.Field, error) {
	if err != nil {
		return nil, err
	}
	return m.Create(name, def)
}

// derivativesWanted reports whether derivatives should be computed from
// the given source caches.
func derivativesWanted(c *field.Cache, srcs ...*field.ValueCache) bool {
	if !c.DerivativesRequested() {
		return false
	}
	for _, s := range srcs {
		if !s.DerivativesValid {
			return false
		}
	}
	return true
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
