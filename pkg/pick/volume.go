// Package pick resolves an interaction volume to the scene objects, and
// through them the mesh nodes and elements, drawn inside it. Scenes are
// replayed through a renderer that emulates GL selection mode; the hit
// records it writes are decoded and mapped back through scene positions.
package pick

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// InteractionVolume is a pick region: model-view and projection matrices
// taking world coordinates to normalised device coordinates, and a
// rectangle in NDC x and y. NDC z must lie in [-1, 1]. Projections are
// affine, so orthographic.
type InteractionVolume struct {
	modelView  sdf.M44
	projection sdf.M44
	centre     [2]float64
	half       [2]float64
}

// NewInteractionVolume returns a volume picking the width by height NDC
// rectangle centred on (centreX, centreY).
func NewInteractionVolume(modelView, projection sdf.M44, centreX, centreY, width, height float64) (*InteractionVolume, error) {
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("pick: interaction volume size %gx%g", width, height)
	}
	return &InteractionVolume{
		modelView:  modelView,
		projection: projection,
		centre:     [2]float64{centreX, centreY},
		half:       [2]float64{width / 2, height / 2},
	}, nil
}

// Ray returns a cylindrical volume of the given radius starting at origin
// and extending depth along direction.
func Ray(origin, direction r3.Vec, radius, depth float64) (*InteractionVolume, error) {
	length := r3.Norm(direction)
	if length == 0 || !(radius > 0) || !(depth > 0) {
		return nil, fmt.Errorf("pick: ray needs a direction, radius and depth")
	}
	d := r3.Scale(1/length, direction)
	// Rotate d onto the xz plane, then onto -z.
	phi := math.Atan2(d.Y, d.X)
	alpha := math.Atan2(math.Hypot(d.X, d.Y), d.Z)
	view := sdf.RotateY(math.Pi - alpha).
		Mul(sdf.RotateZ(-phi)).
		Mul(sdf.Translate3d(v3.Vec{X: -origin.X, Y: -origin.Y, Z: -origin.Z}))
	projection := sdf.Translate3d(v3.Vec{Z: -1}).
		Mul(sdf.Scale3d(v3.Vec{X: 1 / radius, Y: 1 / radius, Z: -2 / depth}))
	return NewInteractionVolume(view, projection, 0, 0, 2, 2)
}

// Box returns an axis-aligned box volume viewed down -z, so points with
// larger z are nearer.
func Box(min, max r3.Vec) (*InteractionVolume, error) {
	size := r3.Sub(max, min)
	if !(size.X > 0) || !(size.Y > 0) || !(size.Z > 0) {
		return nil, fmt.Errorf("pick: box %v to %v is empty", min, max)
	}
	centre := r3.Scale(0.5, r3.Add(min, max))
	projection := sdf.Scale3d(v3.Vec{X: 2 / size.X, Y: 2 / size.Y, Z: -2 / size.Z}).
		Mul(sdf.Translate3d(v3.Vec{X: -centre.X, Y: -centre.Y, Z: -centre.Z}))
	return NewInteractionVolume(sdf.Identity3d(), projection, 0, 0, 2, 2)
}

// Transform returns projection * model-view.
func (v *InteractionVolume) Transform() sdf.M44 {
	return v.projection.Mul(v.modelView)
}

// Project maps a world point to NDC.
func (v *InteractionVolume) Project(p r3.Vec) r3.Vec {
	q := v.Transform().MulPosition(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
	return r3.Vec{X: q.X, Y: q.Y, Z: q.Z}
}

// Contains reports whether a world point lies inside the volume.
func (v *InteractionVolume) Contains(p r3.Vec) bool {
	q := v.Project(p)
	lo, hi := v.bounds()
	return inside([3]float64{q.X, q.Y, q.Z}, lo, hi)
}

// bounds returns the clip box in NDC.
func (v *InteractionVolume) bounds() (lo, hi [3]float64) {
	lo = [3]float64{v.centre[0] - v.half[0], v.centre[1] - v.half[1], -1}
	hi = [3]float64{v.centre[0] + v.half[0], v.centre[1] + v.half[1], 1}
	return lo, hi
}

func inside(p, lo, hi [3]float64) bool {
	for k := 0; k < 3; k++ {
		if p[k] < lo[k] || p[k] > hi[k] {
			return false
		}
	}
	return true
}

// clipSegment clips a to b against the box, returning the surviving
// segment.
func clipSegment(a, b, lo, hi [3]float64) ([3]float64, [3]float64, bool) {
	t0, t1 := 0.0, 1.0
	for k := 0; k < 3; k++ {
		d := b[k] - a[k]
		for _, pq := range [2][2]float64{{-d, a[k] - lo[k]}, {d, hi[k] - a[k]}} {
			p, q := pq[0], pq[1]
			if p == 0 {
				if q < 0 {
					return a, b, false
				}
				continue
			}
			r := q / p
			if p < 0 {
				if r > t1 {
					return a, b, false
				}
				t0 = max(t0, r)
			} else {
				if r < t0 {
					return a, b, false
				}
				t1 = min(t1, r)
			}
		}
	}
	var ca, cb [3]float64
	for k := 0; k < 3; k++ {
		ca[k] = a[k] + t0*(b[k]-a[k])
		cb[k] = a[k] + t1*(b[k]-a[k])
	}
	return ca, cb, true
}

// clipPolygon clips a convex polygon against the box one plane at a time.
func clipPolygon(poly [][3]float64, lo, hi [3]float64) [][3]float64 {
	for k := 0; k < 3 && len(poly) > 0; k++ {
		poly = clipPlane(poly, k, lo[k], 1)
		poly = clipPlane(poly, k, hi[k], -1)
	}
	return poly
}

// clipPlane keeps the part of poly where sign*(p[axis]-bound) >= 0.
func clipPlane(poly [][3]float64, axis int, bound, sign float64) [][3]float64 {
	var out [][3]float64
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		da, db := sign*(a[axis]-bound), sign*(b[axis]-bound)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			var p [3]float64
			for k := 0; k < 3; k++ {
				p[k] = a[k] + t*(b[k]-a[k])
			}
			out = append(out, p)
		}
	}
	return out
}
