package fieldtypes

import (
	"fmt"

	"github.com/chazu/cmgui/pkg/field"
)

// TimeLookupCore evaluates its source at the time given by a scalar time
// field, keeping the rest of the location.
type TimeLookupCore struct {
	field.CoreBase

	// defined owns the extra cache used by IsDefinedAt, leaving the
	// field's value cache alone.
	defined field.ValueCache
}

func (c *TimeLookupCore) TypeString() string { return "time_lookup" }

func (c *TimeLookupCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	t, ok := c.Source(1).Evaluate(cache)
	if !ok {
		return false
	}
	extra := vc.ExtraCache(cache, cache.Location().WithTime(t.Values[0]))
	s, ok := c.Source(0).Evaluate(extra)
	if !ok {
		return false
	}
	copy(vc.Values, s.Values)
	if derivativesWanted(cache, s) {
		copy(vc.Derivatives, s.Derivatives)
		vc.DerivativesValid = true
	}
	return true
}

func (c *TimeLookupCore) IsDefinedAt(cache *field.Cache) bool {
	tf := c.Source(1)
	if !tf.IsDefinedAt(cache) {
		return false
	}
	t, ok := tf.Evaluate(cache)
	if !ok {
		return false
	}
	extra := c.defined.ExtraCache(cache, cache.Location().WithTime(t.Values[0]))
	return c.Source(0).IsDefinedAt(extra)
}

// HasMultipleTimes reports whether the looked up time can vary.
func (c *TimeLookupCore) HasMultipleTimes() bool { return c.Source(1).HasMultipleTimes() }

func (c *TimeLookupCore) Compare(o field.Core) bool { _, ok := o.(*TimeLookupCore); return ok }

func (c *TimeLookupCore) CommandString() string {
	return field.NewCommand("time_lookup").
		Field("field", c.Source(0)).
		Field("time_field", c.Source(1)).
		Build()
}

// TimeLookup is a typed view of a time_lookup field.
type TimeLookup = Handle[*TimeLookupCore]

// NewTimeLookup defines source evaluated at the time given by timeField.
func NewTimeLookup(source, timeField *field.Field) (field.Definition, error) {
	if err := checkSources("time_lookup", source, timeField); err != nil {
		return field.Definition{}, err
	}
	if timeField.NumberOfComponents() != 1 {
		return field.Definition{}, fmt.Errorf("%w: time_lookup time field must be scalar", field.ErrInvalidArgument)
	}
	return field.Definition{
		Core:               &TimeLookupCore{},
		Sources:            []*field.Field{source, timeField},
		NumberOfComponents: source.NumberOfComponents(),
		CoordinateSystem:   source.CoordinateSystem(),
	}, nil
}

// CreateTimeLookup creates a time_lookup field in m.
func CreateTimeLookup(m *field.Module, name string, source, timeField *field.Field) (*field.Field, error) {
	def, err := NewTimeLookup(source, timeField)
	return create(m, name, def, err)
}

// AsTimeLookup returns a typed view of f, or nil.
func AsTimeLookup(f *field.Field) *TimeLookup { return as[*TimeLookupCore](f) }

func parseTimeLookup(_ *field.Module, args *field.Args) (field.Definition, error) {
	src, err := args.Field("field")
	if err != nil {
		return field.Definition{}, err
	}
	tf, err := args.Field("time_field")
	if err != nil {
		return field.Definition{}, err
	}
	return NewTimeLookup(src, tf)
}
