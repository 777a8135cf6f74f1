package field

import (
	"fmt"

	"github.com/chazu/cmgui/pkg/mesh"
)

// LocationKind tags the domain point held by a Location.
type LocationKind int

const (
	LocationNone LocationKind = iota
	LocationElementXi
	LocationNode
	LocationPoint
)

func (k LocationKind) String() string {
	switch k {
	case LocationElementXi:
		return "element_xi"
	case LocationNode:
		return "node"
	case LocationPoint:
		return "point"
	default:
		return "none"
	}
}

// Location is where a field is evaluated: an element and local xi, a node,
// or a free point, together with a time. Locations are values; two locations
// are equal only if kind, domain point and time match exactly.
type Location struct {
	kind    LocationKind
	element *mesh.Element
	xi      [3]float64
	node    *mesh.Node
	point   [3]float64
	npoint  int
	time    float64
}

// AtElementXi returns a location inside element e.
func AtElementXi(e *mesh.Element, xi []float64, time float64) Location {
	l := Location{kind: LocationElementXi, element: e, time: time}
	copy(l.xi[:], xi)
	return l
}

// AtNode returns a location at node n.
func AtNode(n *mesh.Node, time float64) Location {
	return Location{kind: LocationNode, node: n, time: time}
}

// AtPoint returns a location at a free point with up to three coordinates.
func AtPoint(p []float64, time float64) Location {
	l := Location{kind: LocationPoint, time: time}
	l.npoint = copy(l.point[:], p)
	return l
}

// Kind returns the location's tag.
func (l Location) Kind() LocationKind { return l.kind }

// Time returns the location's time.
func (l Location) Time() float64 { return l.time }

// Element returns the element of an element-xi location, or nil.
func (l Location) Element() *mesh.Element { return l.element }

// Node returns the node of a node location, or nil.
func (l Location) Node() *mesh.Node { return l.node }

// Xi returns a copy of the element xi, sized to the element dimension.
func (l Location) Xi() []float64 {
	if l.kind != LocationElementXi || l.element == nil {
		return nil
	}
	return append([]float64(nil), l.xi[:l.element.Dimension()]...)
}

// Point returns a copy of the free point coordinates.
func (l Location) Point() []float64 {
	if l.kind != LocationPoint {
		return nil
	}
	return append([]float64(nil), l.point[:l.npoint]...)
}

// Dimension returns the number of xi derivatives meaningful at l.
func (l Location) Dimension() int {
	if l.kind == LocationElementXi && l.element != nil {
		return l.element.Dimension()
	}
	return 0
}

// WithTime returns a copy of l at another time.
func (l Location) WithTime(t float64) Location {
	l.time = t
	return l
}

// Equal reports exact equality of kind, domain point and time.
func (l Location) Equal(o Location) bool {
	return l == o
}

func (l Location) String() string {
	switch l.kind {
	case LocationElementXi:
		id := 0
		if l.element != nil {
			id = l.element.ID
		}
		return fmt.Sprintf("element %d xi %v time %g", id, l.Xi(), l.time)
	case LocationNode:
		id := 0
		if l.node != nil {
			id = l.node.ID
		}
		return fmt.Sprintf("node %d time %g", id, l.time)
	case LocationPoint:
		return fmt.Sprintf("point %v time %g", l.Point(), l.time)
	default:
		return "nowhere"
	}
}
