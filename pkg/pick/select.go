package pick

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/cmgui/internal/logging"
	"github.com/chazu/cmgui/pkg/graphics"
)

// selectRenderer emulates GL selection mode. A hit record
// [name count, min depth, max depth, names...] is written whenever the
// name stack changes after a primitive intersected the volume, and once
// more when rendering finishes. Records that do not fit set the overflow
// flag; Finish then reports -1 like glRenderMode.
type selectRenderer struct {
	volume   *InteractionVolume
	buffer   []uint32
	used     int
	hits     int
	overflow bool

	names    []uint32
	matrices []sdf.M44

	hit        bool
	zmin, zmax float64
}

var _ graphics.Renderer = (*selectRenderer)(nil)

func newSelectRenderer(v *InteractionVolume, size int) *selectRenderer {
	r := &selectRenderer{
		volume:   v,
		buffer:   make([]uint32, size),
		matrices: []sdf.M44{sdf.Identity3d()},
	}
	r.resetDepth()
	return r
}

func (r *selectRenderer) resetDepth() {
	r.hit = false
	r.zmin, r.zmax = math.Inf(1), math.Inf(-1)
}

func (r *selectRenderer) PushName(name uint32) {
	r.flush()
	r.names = append(r.names, name)
}

func (r *selectRenderer) LoadName(name uint32) {
	r.flush()
	if len(r.names) == 0 {
		logging.Logger().Warn("pick: load name on empty name stack", "name", name)
		return
	}
	r.names[len(r.names)-1] = name
}

func (r *selectRenderer) PopName() {
	r.flush()
	if len(r.names) == 0 {
		logging.Logger().Warn("pick: pop name on empty name stack")
		return
	}
	r.names = r.names[:len(r.names)-1]
}

func (r *selectRenderer) PushMatrix(m sdf.M44) {
	r.matrices = append(r.matrices, r.matrices[len(r.matrices)-1].Mul(m))
}

func (r *selectRenderer) PopMatrix() {
	if len(r.matrices) == 1 {
		logging.Logger().Warn("pick: pop matrix on empty matrix stack")
		return
	}
	r.matrices = r.matrices[:len(r.matrices)-1]
}

func (r *selectRenderer) Light(*graphics.Light) {}

func (r *selectRenderer) Draw(p *graphics.Primitive) {
	m := r.volume.Transform().Mul(r.matrices[len(r.matrices)-1])
	ndc := make([][3]float64, len(p.Vertices))
	for i, v := range p.Vertices {
		q := m.MulPosition(v3.Vec{X: v.X, Y: v.Y, Z: v.Z})
		ndc[i] = [3]float64{q.X, q.Y, q.Z}
	}
	lo, hi := r.volume.bounds()
	switch p.Kind {
	case graphics.Points:
		for _, q := range ndc {
			if inside(q, lo, hi) {
				r.record(q[2])
			}
		}
	case graphics.Lines:
		for i := 0; i+1 < len(ndc); i += 2 {
			if a, b, ok := clipSegment(ndc[i], ndc[i+1], lo, hi); ok {
				r.record(a[2])
				r.record(b[2])
			}
		}
	case graphics.Triangles:
		for i := 0; i+2 < len(ndc); i += 3 {
			for _, q := range clipPolygon(ndc[i:i+3:i+3], lo, hi) {
				r.record(q[2])
			}
		}
	}
}

func (r *selectRenderer) record(z float64) {
	r.hit = true
	r.zmin = min(r.zmin, z)
	r.zmax = max(r.zmax, z)
}

// depth converts NDC z to a GL window depth scaled to the uint32 range.
func depth(z float64) uint32 {
	d := (z + 1) / 2
	d = max(0, min(1, d))
	return uint32(math.Round(d * math.MaxUint32))
}

func (r *selectRenderer) flush() {
	if !r.hit {
		return
	}
	n := 3 + len(r.names)
	if r.overflow || r.used+n > len(r.buffer) {
		r.overflow = true
	} else {
		r.buffer[r.used] = uint32(len(r.names))
		r.buffer[r.used+1] = depth(r.zmin)
		r.buffer[r.used+2] = depth(r.zmax)
		copy(r.buffer[r.used+3:], r.names)
		r.used += n
		r.hits++
	}
	r.resetDepth()
}

// Finish flushes a pending hit and returns the hit count, or -1 if the
// buffer overflowed.
func (r *selectRenderer) Finish() int {
	r.flush()
	if r.overflow {
		return -1
	}
	return r.hits
}

// Buffer returns the written part of the selection buffer.
func (r *selectRenderer) Buffer() []uint32 { return r.buffer[:r.used] }
