package fieldtypes

import (
	"fmt"
	"math"

	"github.com/chazu/cmgui/pkg/field"
	"gonum.org/v1/gonum/spatial/r3"
)

const degenerateLength = 1e-12

// FibreAxesCore builds an orthonormal fibre, sheet and normal frame from the
// xi derivatives of a coordinate field, rotated by up to three fibre angles:
// the fibre angle about the normal, then the imbrication angle about the
// sheet, then the sheet angle about the fibre. The nine components are
// fibre, sheet and normal vectors in rectangular Cartesian coordinates.
type FibreAxesCore struct {
	field.CoreBase
}

func (c *FibreAxesCore) TypeString() string { return "fibre_axes" }

func (c *FibreAxesCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	loc := cache.Location()
	if loc.Kind() != field.LocationElementXi || loc.Element() == nil {
		return false
	}
	top, topXi := loc.Element().TopLevel(loc.Xi())
	dim := top.Dimension()
	if dim < 2 {
		return false
	}

	coordinate := c.Source(1)
	extra := vc.ExtraCache(cache, field.AtElementXi(top, topXi, loc.Time()))
	extra.RequestDerivatives(true)
	x, ok := coordinate.Evaluate(extra)
	if !ok || !x.DerivativesValid {
		return false
	}
	_, drc := coordinate.CoordinateSystem().ToRCWithDerivatives(x.Values, x.Derivatives, dim)
	col := func(d int) r3.Vec {
		return r3.Vec{X: drc[d], Y: drc[dim+d], Z: drc[2*dim+d]}
	}

	a, b := col(0), col(1)
	if r3.Norm(a) < degenerateLength {
		return false
	}
	a = r3.Unit(a)
	n := r3.Cross(a, b)
	if r3.Norm(n) < degenerateLength {
		return false
	}
	n = r3.Unit(n)
	b = r3.Cross(n, a)

	angles, ok := c.Source(0).Evaluate(cache)
	if !ok {
		return false
	}
	var alpha, beta, gamma float64
	switch len(angles.Values) {
	case 3:
		gamma = angles.Values[2]
		fallthrough
	case 2:
		beta = angles.Values[1]
		fallthrough
	case 1:
		alpha = angles.Values[0]
	}

	f, g := rotate(a, b, alpha)
	f, n = rotate(f, n, beta)
	g, n = rotate(g, n, gamma)

	for i, v := range []r3.Vec{f, g, n} {
		vc.Values[3*i], vc.Values[3*i+1], vc.Values[3*i+2] = v.X, v.Y, v.Z
	}
	return true
}

// rotate turns u towards v by angle within their plane, returning the
// rotated pair.
func rotate(u, v r3.Vec, angle float64) (r3.Vec, r3.Vec) {
	if angle == 0 {
		return u, v
	}
	cs, sn := math.Cos(angle), math.Sin(angle)
	return r3.Add(r3.Scale(cs, u), r3.Scale(sn, v)),
		r3.Add(r3.Scale(-sn, u), r3.Scale(cs, v))
}

func (c *FibreAxesCore) IsDefinedAt(cache *field.Cache) bool {
	loc := cache.Location()
	if loc.Kind() != field.LocationElementXi || loc.Element() == nil {
		return false
	}
	if top, _ := loc.Element().TopLevel(loc.Xi()); top.Dimension() < 2 {
		return false
	}
	return c.CoreBase.IsDefinedAt(cache)
}

func (c *FibreAxesCore) Compare(o field.Core) bool { _, ok := o.(*FibreAxesCore); return ok }

func (c *FibreAxesCore) CommandString() string {
	return field.NewCommand("fibre_axes").
		Field("fibre", c.Source(0)).
		Field("coordinate", c.Source(1)).
		Build()
}

// FibreAxes is a typed view of a fibre_axes field.
type FibreAxes = Handle[*FibreAxesCore]

// NewFibreAxes defines the fibre frame of coordinate rotated by the angles
// in fibre. Both sources must have at most three components.
func NewFibreAxes(fibre, coordinate *field.Field) (field.Definition, error) {
	if err := checkSources("fibre_axes", fibre, coordinate); err != nil {
		return field.Definition{}, err
	}
	if fibre.NumberOfComponents() > 3 {
		return field.Definition{}, fmt.Errorf("%w: fibre_axes fibre field has %d components, at most 3 allowed",
			field.ErrInvalidArgument, fibre.NumberOfComponents())
	}
	if coordinate.NumberOfComponents() > 3 {
		return field.Definition{}, fmt.Errorf("%w: fibre_axes coordinate field has %d components, at most 3 allowed",
			field.ErrInvalidArgument, coordinate.NumberOfComponents())
	}
	return field.Definition{
		Core:               &FibreAxesCore{},
		Sources:            []*field.Field{fibre, coordinate},
		NumberOfComponents: 9,
		CoordinateSystem:   field.RC,
	}, nil
}

// CreateFibreAxes creates a fibre_axes field in m.
func CreateFibreAxes(m *field.Module, name string, fibre, coordinate *field.Field) (*field.Field, error) {
	def, err := NewFibreAxes(fibre, coordinate)
	return create(m, name, def, err)
}

// AsFibreAxes returns a typed view of f, or nil.
func AsFibreAxes(f *field.Field) *FibreAxes { return as[*FibreAxesCore](f) }

func parseFibreAxes(_ *field.Module, args *field.Args) (field.Definition, error) {
	fibre, err := args.Field("fibre")
	if err != nil {
		return field.Definition{}, err
	}
	coordinate, err := args.Field("coordinate")
	if err != nil {
		return field.Definition{}, err
	}
	return NewFibreAxes(fibre, coordinate)
}
