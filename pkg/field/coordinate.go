package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// CoordinateSystemType names a coordinate system. The zero value is
// rectangular Cartesian.
type CoordinateSystemType int

const (
	RectangularCartesian CoordinateSystemType = iota
	CylindricalPolar
	SphericalPolar
	ProlateSpheroidal
	OblateSpheroidal
	Fibre
)

func (t CoordinateSystemType) String() string {
	switch t {
	case RectangularCartesian:
		return "rectangular_cartesian"
	case CylindricalPolar:
		return "cylindrical_polar"
	case SphericalPolar:
		return "spherical_polar"
	case ProlateSpheroidal:
		return "prolate_spheroidal"
	case OblateSpheroidal:
		return "oblate_spheroidal"
	case Fibre:
		return "fibre"
	default:
		return fmt.Sprintf("CoordinateSystemType(%d)", int(t))
	}
}

// ParseCoordinateSystemType returns the type named s.
func ParseCoordinateSystemType(s string) (CoordinateSystemType, error) {
	for t := RectangularCartesian; t <= Fibre; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown coordinate system %q", ErrInvalidArgument, s)
}

// CoordinateSystem is a coordinate system type plus the focus used by the
// spheroidal systems.
type CoordinateSystem struct {
	Type  CoordinateSystemType
	Focus float64
}

// RC is the rectangular Cartesian coordinate system.
var RC = CoordinateSystem{Type: RectangularCartesian}

func (cs CoordinateSystem) String() string {
	if cs.Type == ProlateSpheroidal || cs.Type == OblateSpheroidal {
		return fmt.Sprintf("%s focus %g", cs.Type, cs.Focus)
	}
	return cs.Type.String()
}

// IsRC reports whether values need no conversion to rectangular Cartesian.
// Fibre coordinates are angles and are passed through unchanged.
func (cs CoordinateSystem) IsRC() bool {
	return cs.Type == RectangularCartesian || cs.Type == Fibre
}

func pad3(x []float64) [3]float64 {
	var p [3]float64
	copy(p[:], x)
	return p
}

// ToRC converts up to three coordinates in cs to rectangular Cartesian.
func (cs CoordinateSystem) ToRC(x []float64) r3.Vec {
	p := pad3(x)
	a := cs.Focus
	switch cs.Type {
	case CylindricalPolar:
		return r3.Vec{X: p[0] * math.Cos(p[1]), Y: p[0] * math.Sin(p[1]), Z: p[2]}
	case SphericalPolar:
		return r3.Vec{
			X: p[0] * math.Cos(p[1]) * math.Cos(p[2]),
			Y: p[0] * math.Sin(p[1]) * math.Cos(p[2]),
			Z: p[0] * math.Sin(p[2]),
		}
	case ProlateSpheroidal:
		return r3.Vec{
			X: a * math.Cosh(p[0]) * math.Cos(p[1]),
			Y: a * math.Sinh(p[0]) * math.Sin(p[1]) * math.Cos(p[2]),
			Z: a * math.Sinh(p[0]) * math.Sin(p[1]) * math.Sin(p[2]),
		}
	case OblateSpheroidal:
		return r3.Vec{
			X: a * math.Cosh(p[0]) * math.Cos(p[1]) * math.Cos(p[2]),
			Y: a * math.Sinh(p[0]) * math.Sin(p[1]),
			Z: -a * math.Cosh(p[0]) * math.Cos(p[1]) * math.Sin(p[2]),
		}
	default:
		return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
}

// FromRC converts a rectangular Cartesian point into cs.
func (cs CoordinateSystem) FromRC(v r3.Vec) [3]float64 {
	a := cs.Focus
	switch cs.Type {
	case CylindricalPolar:
		return [3]float64{math.Hypot(v.X, v.Y), math.Atan2(v.Y, v.X), v.Z}
	case SphericalPolar:
		r := r3.Norm(v)
		phi := 0.0
		if r > 0 {
			phi = math.Asin(v.Z / r)
		}
		return [3]float64{r, math.Atan2(v.Y, v.X), phi}
	case ProlateSpheroidal:
		rho := math.Hypot(v.Y, v.Z)
		lambda, mu := spheroidal(a, v.X, rho)
		return [3]float64{lambda, mu, math.Atan2(v.Z, v.Y)}
	case OblateSpheroidal:
		rho := math.Hypot(v.X, v.Z)
		lambda, mu := spheroidal(a, rho, math.Abs(v.Y))
		if v.Y < 0 {
			mu = -mu
		}
		return [3]float64{lambda, mu, math.Atan2(-v.Z, v.X)}
	default:
		return [3]float64{v.X, v.Y, v.Z}
	}
}

// spheroidal solves u = a cosh(l) cos(m), w = a sinh(l) sin(m) with w >= 0.
func spheroidal(a, u, w float64) (lambda, mu float64) {
	if a == 0 {
		return 0, 0
	}
	d1 := math.Hypot(u+a, w)
	d2 := math.Hypot(u-a, w)
	ch := (d1 + d2) / (2 * a)
	cm := (d1 - d2) / (2 * a)
	if ch < 1 {
		ch = 1
	}
	cm = math.Max(-1, math.Min(1, cm))
	return math.Acosh(ch), math.Acos(cm)
}

// Jacobian returns d(RC)/d(x) for coordinates x in cs, row i being the
// derivatives of RC component i.
func (cs CoordinateSystem) Jacobian(x []float64) [3][3]float64 {
	p := pad3(x)
	a := cs.Focus
	switch cs.Type {
	case CylindricalPolar:
		c, s := math.Cos(p[1]), math.Sin(p[1])
		return [3][3]float64{
			{c, -p[0] * s, 0},
			{s, p[0] * c, 0},
			{0, 0, 1},
		}
	case SphericalPolar:
		ct, st := math.Cos(p[1]), math.Sin(p[1])
		cp, sp := math.Cos(p[2]), math.Sin(p[2])
		r := p[0]
		return [3][3]float64{
			{ct * cp, -r * st * cp, -r * ct * sp},
			{st * cp, r * ct * cp, -r * st * sp},
			{sp, 0, r * cp},
		}
	case ProlateSpheroidal:
		chl, shl := math.Cosh(p[0]), math.Sinh(p[0])
		cm, sm := math.Cos(p[1]), math.Sin(p[1])
		ct, st := math.Cos(p[2]), math.Sin(p[2])
		return [3][3]float64{
			{a * shl * cm, -a * chl * sm, 0},
			{a * chl * sm * ct, a * shl * cm * ct, -a * shl * sm * st},
			{a * chl * sm * st, a * shl * cm * st, a * shl * sm * ct},
		}
	case OblateSpheroidal:
		chl, shl := math.Cosh(p[0]), math.Sinh(p[0])
		cm, sm := math.Cos(p[1]), math.Sin(p[1])
		ct, st := math.Cos(p[2]), math.Sin(p[2])
		return [3][3]float64{
			{a * shl * cm * ct, -a * chl * sm * ct, -a * chl * cm * st},
			{a * chl * sm, a * shl * cm, 0},
			{-a * shl * cm * st, a * chl * sm * st, -a * chl * cm * ct},
		}
	default:
		return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
}

// ToRCWithDerivatives converts x and its xi derivatives to rectangular
// Cartesian. dxdxi holds derivative of component i with respect to xi j at
// i*dim+j for up to three components; the result uses the same layout with
// three rows.
func (cs CoordinateSystem) ToRCWithDerivatives(x []float64, dxdxi []float64, dim int) (r3.Vec, []float64) {
	ncomp := len(x)
	if ncomp > 3 {
		ncomp = 3
	}
	out := make([]float64, 3*dim)
	if cs.IsRC() {
		for i := 0; i < ncomp; i++ {
			copy(out[i*dim:(i+1)*dim], dxdxi[i*dim:(i+1)*dim])
		}
		return cs.ToRC(x), out
	}
	jac := cs.Jacobian(x)
	for i := 0; i < 3; i++ {
		for j := 0; j < dim; j++ {
			sum := 0.0
			for k := 0; k < ncomp; k++ {
				sum += jac[i][k] * dxdxi[k*dim+j]
			}
			out[i*dim+j] = sum
		}
	}
	return cs.ToRC(x), out
}

// FromRCDerivatives converts RC xi derivatives into cs at the point x
// (already expressed in cs) by inverting the Jacobian. It fails where the
// coordinate system is singular, e.g. on the axis of a polar system.
func (cs CoordinateSystem) FromRCDerivatives(x []float64, drc []float64, dim int) ([]float64, bool) {
	if cs.IsRC() || dim <= 0 {
		return append([]float64(nil), drc...), true
	}
	jac := cs.Jacobian(x)
	j := mat.NewDense(3, 3, []float64{
		jac[0][0], jac[0][1], jac[0][2],
		jac[1][0], jac[1][1], jac[1][2],
		jac[2][0], jac[2][1], jac[2][2],
	})
	var inv mat.Dense
	if err := inv.Inverse(j); err != nil {
		return nil, false
	}
	d := mat.NewDense(3, dim, append([]float64(nil), drc...))
	var res mat.Dense
	res.Mul(&inv, d)
	return append([]float64(nil), res.RawMatrix().Data...), true
}
