package fieldtypes

import (
	"fmt"

	"github.com/chazu/cmgui/pkg/field"
)

// ConstantCore returns the same values everywhere.
type ConstantCore struct {
	field.CoreBase
	values []float64
}

func (c *ConstantCore) TypeString() string { return "constant" }

func (c *ConstantCore) Evaluate(_ *field.Cache, vc *field.ValueCache) bool {
	copy(vc.Values, c.values)
	vc.ZeroDerivatives()
	return true
}

func (c *ConstantCore) IsDefinedAt(*field.Cache) bool { return true }

func (c *ConstantCore) Compare(o field.Core) bool {
	oc, ok := o.(*ConstantCore)
	return ok && equalFloats(c.values, oc.values)
}

func (c *ConstantCore) CommandString() string {
	return field.NewCommand("constant").Floats("values", c.values).Build()
}

// SetValuesAt replaces the constant values.
func (c *ConstantCore) SetValuesAt(_ *field.Cache, values []float64) bool {
	copy(c.values, values)
	return true
}

// Values returns a copy of the constant values.
func (c *ConstantCore) Values() []float64 { return append([]float64(nil), c.values...) }

// Constant is a typed view of a constant field.
type Constant = Handle[*ConstantCore]

// NewConstant defines a field with the given values.
func NewConstant(values []float64) (field.Definition, error) {
	if len(values) == 0 {
		return field.Definition{}, fmt.Errorf("%w: constant needs at least one value", field.ErrInvalidArgument)
	}
	return field.Definition{
		Core:               &ConstantCore{values: append([]float64(nil), values...)},
		NumberOfComponents: len(values),
		CoordinateSystem:   field.RC,
	}, nil
}

// CreateConstant creates a constant field in m.
func CreateConstant(m *field.Module, name string, values []float64) (*field.Field, error) {
	def, err := NewConstant(values)
	return create(m, name, def, err)
}

// AsConstant returns a typed view of f, or nil if f is not a constant.
func AsConstant(f *field.Field) *Constant { return as[*ConstantCore](f) }

func parseConstant(_ *field.Module, args *field.Args) (field.Definition, error) {
	values, err := args.Floats("values")
	if err != nil {
		return field.Definition{}, err
	}
	return NewConstant(values)
}

// TimeValueCore returns the time of the evaluation location.
type TimeValueCore struct {
	field.CoreBase
}

func (c *TimeValueCore) TypeString() string { return "time_value" }

func (c *TimeValueCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	vc.Values[0] = cache.Location().Time()
	vc.ZeroDerivatives()
	return true
}

func (c *TimeValueCore) IsDefinedAt(*field.Cache) bool { return true }

func (c *TimeValueCore) Compare(o field.Core) bool { _, ok := o.(*TimeValueCore); return ok }

func (c *TimeValueCore) CommandString() string { return field.NewCommand("time_value").Build() }

func (c *TimeValueCore) HasMultipleTimes() bool { return true }

// TimeValue is a typed view of a time_value field.
type TimeValue = Handle[*TimeValueCore]

// NewTimeValue defines a scalar field equal to the evaluation time.
func NewTimeValue() (field.Definition, error) {
	return field.Definition{Core: &TimeValueCore{}, NumberOfComponents: 1}, nil
}

// CreateTimeValue creates a time_value field in m.
func CreateTimeValue(m *field.Module, name string) (*field.Field, error) {
	def, err := NewTimeValue()
	return create(m, name, def, err)
}

// AsTimeValue returns a typed view of f, or nil.
func AsTimeValue(f *field.Field) *TimeValue { return as[*TimeValueCore](f) }

func parseTimeValue(*field.Module, *field.Args) (field.Definition, error) {
	return NewTimeValue()
}

// XiCore returns the element xi, padded to three components, with unit xi
// derivatives. It is undefined away from elements.
type XiCore struct {
	field.CoreBase
}

func (c *XiCore) TypeString() string { return "xi" }

func (c *XiCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	loc := cache.Location()
	if loc.Kind() != field.LocationElementXi {
		return false
	}
	xi := loc.Xi()
	dim := len(xi)
	for i := range vc.Values {
		vc.Values[i] = 0
		if i < dim {
			vc.Values[i] = xi[i]
		}
	}
	if cache.DerivativesRequested() {
		vc.ZeroDerivatives()
		for i := 0; i < dim && i < len(vc.Values); i++ {
			vc.Derivatives[i*dim+i] = 1
		}
	}
	return true
}

func (c *XiCore) IsDefinedAt(cache *field.Cache) bool {
	return cache.Location().Kind() == field.LocationElementXi
}

func (c *XiCore) Compare(o field.Core) bool { _, ok := o.(*XiCore); return ok }

func (c *XiCore) CommandString() string { return field.NewCommand("xi").Build() }

// Xi is a typed view of an xi field.
type Xi = Handle[*XiCore]

// NewXi defines the three component element xi field.
func NewXi() (field.Definition, error) {
	return field.Definition{Core: &XiCore{}, NumberOfComponents: 3, CoordinateSystem: field.RC}, nil
}

// CreateXi creates an xi field in m.
func CreateXi(m *field.Module, name string) (*field.Field, error) {
	def, err := NewXi()
	return create(m, name, def, err)
}

// AsXi returns a typed view of f, or nil.
func AsXi(f *field.Field) *Xi { return as[*XiCore](f) }

func parseXi(*field.Module, *field.Args) (field.Definition, error) {
	return NewXi()
}
