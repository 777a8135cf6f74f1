package fieldtypes

import (
	"fmt"

	"github.com/chazu/cmgui/pkg/field"
	"gonum.org/v1/gonum/spatial/r3"
)

// CoordinateTransformationCore converts its source from the source's
// coordinate system into the field's own coordinate system, going through
// rectangular Cartesian.
type CoordinateTransformationCore struct {
	field.CoreBase
}

func (c *CoordinateTransformationCore) TypeString() string { return "coordinate_transformation" }

func (c *CoordinateTransformationCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	src := c.Source(0)
	s, ok := src.Evaluate(cache)
	if !ok {
		return false
	}
	from := src.CoordinateSystem()
	to := c.Field().CoordinateSystem()
	var rc r3.Vec
	var drc []float64
	dim := vc.Dimension()
	derivs := derivativesWanted(cache, s)
	if derivs {
		rc, drc = from.ToRCWithDerivatives(s.Values, s.Derivatives, dim)
	} else {
		rc = from.ToRC(s.Values)
	}
	x := to.FromRC(rc)
	copy(vc.Values, x[:])
	if derivs {
		d, ok := to.FromRCDerivatives(x[:], drc, dim)
		if ok {
			copy(vc.Derivatives, d)
			vc.DerivativesValid = true
		}
	}
	return true
}

func (c *CoordinateTransformationCore) Compare(o field.Core) bool {
	_, ok := o.(*CoordinateTransformationCore)
	return ok
}

func (c *CoordinateTransformationCore) CommandString() string {
	return field.NewCommand("coordinate_transformation").Field("field", c.Source(0)).Build()
}

// CoordinateTransformation is a typed view of a coordinate_transformation
// field.
type CoordinateTransformation = Handle[*CoordinateTransformationCore]

// NewCoordinateTransformation defines source expressed in cs.
func NewCoordinateTransformation(source *field.Field, cs field.CoordinateSystem) (field.Definition, error) {
	if err := checkSources("coordinate_transformation", source); err != nil {
		return field.Definition{}, err
	}
	if n := source.NumberOfComponents(); n > 3 {
		return field.Definition{}, fmt.Errorf("%w: coordinate_transformation source has %d components, at most 3 allowed",
			field.ErrInvalidArgument, n)
	}
	return field.Definition{
		Core:               &CoordinateTransformationCore{},
		Sources:            []*field.Field{source},
		NumberOfComponents: 3,
		CoordinateSystem:   cs,
	}, nil
}

// CreateCoordinateTransformation creates a coordinate_transformation field.
func CreateCoordinateTransformation(m *field.Module, name string, source *field.Field, cs field.CoordinateSystem) (*field.Field, error) {
	def, err := NewCoordinateTransformation(source, cs)
	return create(m, name, def, err)
}

// AsCoordinateTransformation returns a typed view of f, or nil.
func AsCoordinateTransformation(f *field.Field) *CoordinateTransformation {
	return as[*CoordinateTransformationCore](f)
}

// parseCoordinateTransformation targets RC; a script names another target
// with the :coordinate_system option of define_field.
func parseCoordinateTransformation(_ *field.Module, args *field.Args) (field.Definition, error) {
	src, err := args.Field("field")
	if err != nil {
		return field.Definition{}, err
	}
	return NewCoordinateTransformation(src, field.RC)
}
