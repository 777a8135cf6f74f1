// Package graphics turns field data into renderable primitives. A
// DisplayList is the compiled artifact a scene member produces; it is
// replayed against a Renderer, which may draw it or, for picking, only
// record which selection names were hit.
package graphics

import (
	"github.com/deadsy/sdfx/sdf"
	"gonum.org/v1/gonum/spatial/r3"
)

// PrimitiveKind selects how a primitive's vertices are interpreted.
type PrimitiveKind int

const (
	// Points draws each vertex.
	Points PrimitiveKind = iota
	// Lines draws each consecutive vertex pair as a segment.
	Lines
	// Triangles draws each consecutive vertex triple as a triangle.
	Triangles
)

func (k PrimitiveKind) String() string {
	switch k {
	case Points:
		return "points"
	case Lines:
		return "lines"
	case Triangles:
		return "triangles"
	default:
		return "unknown"
	}
}

// Primitive is one batch of geometry drawn under a fixed list of selection
// names. Element groups use [settings position, element or node id].
type Primitive struct {
	Kind     PrimitiveKind
	Names    []uint32
	Vertices []r3.Vec
	// Data holds one scalar per vertex when a data field is set.
	Data     []float64
	Material string
	Spectrum string
}

// Renderer receives display lists. Name calls follow the GL selection
// name stack protocol.
type Renderer interface {
	PushName(name uint32)
	LoadName(name uint32)
	PopName()
	PushMatrix(m sdf.M44)
	PopMatrix()
	Light(l *Light)
	Draw(p *Primitive)
}

// DisplayList is an ordered, replayable set of primitives.
type DisplayList struct {
	Primitives []Primitive
}

// Add appends p.
func (dl *DisplayList) Add(p Primitive) {
	dl.Primitives = append(dl.Primitives, p)
}

// Len returns the number of primitives.
func (dl *DisplayList) Len() int {
	if dl == nil {
		return 0
	}
	return len(dl.Primitives)
}

// VertexCount returns the total vertex count.
func (dl *DisplayList) VertexCount() int {
	if dl == nil {
		return 0
	}
	n := 0
	for i := range dl.Primitives {
		n += len(dl.Primitives[i].Vertices)
	}
	return n
}

// Execute replays the list, pushing each primitive's names around it.
func (dl *DisplayList) Execute(r Renderer) {
	if dl == nil {
		return
	}
	for i := range dl.Primitives {
		p := &dl.Primitives[i]
		for _, name := range p.Names {
			r.PushName(name)
		}
		r.Draw(p)
		for range p.Names {
			r.PopName()
		}
	}
}
