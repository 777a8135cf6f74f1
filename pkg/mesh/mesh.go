package mesh

import (
	"fmt"
	"sort"
)

// Node is a mesh node. Coordinates and other nodal quantities are field
// values stored by finite_element fields, not on the node.
type Node struct {
	ID int
}

// XiMap maps the xi of a face element into the xi space of its parent:
// parent = Origin + sum_i xi[i]*Axes[i].
type XiMap struct {
	Origin [3]float64
	Axes   [][3]float64
}

// Apply maps face xi into parent xi.
func (m XiMap) Apply(xi []float64, parentDim int) []float64 {
	out := make([]float64, parentDim)
	for d := 0; d < parentDim; d++ {
		out[d] = m.Origin[d]
		for i, axis := range m.Axes {
			if i < len(xi) {
				out[d] += xi[i] * axis[d]
			}
		}
	}
	return out
}

// Element is a line, square or cube element. Top-level elements have no
// parent; faces and lines created with AddFace point at the element they
// bound.
type Element struct {
	ID     int
	Shape  Shape
	Nodes  []*Node
	parent *Element
	xiMap  XiMap
	face   int
}

// Dimension returns the element's xi dimension.
func (e *Element) Dimension() int {
	return e.Shape.Dimension()
}

// Parent returns the parent element and the xi map into it.
func (e *Element) Parent() (*Element, XiMap, bool) {
	if e.parent == nil {
		return nil, XiMap{}, false
	}
	return e.parent, e.xiMap, true
}

// IsTopLevel reports whether e has no parent.
func (e *Element) IsTopLevel() bool {
	return e.parent == nil
}

// TopLevel walks the parent chain and returns the highest-dimension ancestor
// with xi mapped into it. A top-level element returns itself and a copy of xi.
func (e *Element) TopLevel(xi []float64) (*Element, []float64) {
	cur := e
	curXi := append([]float64(nil), xi...)
	for cur.parent != nil {
		curXi = cur.xiMap.Apply(curXi, cur.parent.Dimension())
		cur = cur.parent
	}
	return cur, curXi
}

// ContainsXi reports whether xi lies inside the unit element (with a small
// tolerance).
func (e *Element) ContainsXi(xi []float64) bool {
	const tol = 1e-12
	if len(xi) < e.Dimension() {
		return false
	}
	for d := 0; d < e.Dimension(); d++ {
		if xi[d] < -tol || xi[d] > 1+tol {
			return false
		}
	}
	return true
}

// Mesh owns nodes, top-level elements and their faces.
type Mesh struct {
	nodes    map[int]*Node
	elements map[int]*Element
	faces    map[int]*Element
}

// New creates an empty mesh.
func New() *Mesh {
	return &Mesh{
		nodes:    make(map[int]*Node),
		elements: make(map[int]*Element),
		faces:    make(map[int]*Element),
	}
}

// AddNode creates node id. Ids must be positive and unique.
func (m *Mesh) AddNode(id int) (*Node, error) {
	if id <= 0 {
		return nil, fmt.Errorf("mesh: node id %d must be positive", id)
	}
	if _, exists := m.nodes[id]; exists {
		return nil, fmt.Errorf("mesh: node %d already exists", id)
	}
	n := &Node{ID: id}
	m.nodes[id] = n
	return n, nil
}

// Node returns node id or nil.
func (m *Mesh) Node(id int) *Node {
	return m.nodes[id]
}

// Nodes returns all nodes ordered by id.
func (m *Mesh) Nodes() []*Node {
	out := make([]*Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddElement creates a top-level element of the given shape over existing
// nodes, listed in tensor-product local order.
func (m *Mesh) AddElement(id int, shape Shape, nodeIDs []int) (*Element, error) {
	if id <= 0 {
		return nil, fmt.Errorf("mesh: element id %d must be positive", id)
	}
	if _, exists := m.elements[id]; exists {
		return nil, fmt.Errorf("mesh: element %d already exists", id)
	}
	if shape.Dimension() == 0 {
		return nil, fmt.Errorf("mesh: element %d has unknown shape", id)
	}
	if len(nodeIDs) != shape.NumberOfNodes() {
		return nil, fmt.Errorf("mesh: %s element %d needs %d nodes, got %d",
			shape, id, shape.NumberOfNodes(), len(nodeIDs))
	}
	nodes := make([]*Node, len(nodeIDs))
	for i, nid := range nodeIDs {
		n := m.nodes[nid]
		if n == nil {
			return nil, fmt.Errorf("mesh: element %d references missing node %d", id, nid)
		}
		nodes[i] = n
	}
	e := &Element{ID: id, Shape: shape, Nodes: nodes}
	m.elements[id] = e
	return e, nil
}

// Element returns top-level element id or nil.
func (m *Mesh) Element(id int) *Element {
	return m.elements[id]
}

// Elements returns the top-level elements ordered by id.
func (m *Mesh) Elements() []*Element {
	return sortedElements(m.elements)
}

// AddFace creates face element id bounding parent at the given face index.
// Face 2d is xi_d = 0 and face 2d+1 is xi_d = 1; the remaining xi directions
// of the parent become the face's xi directions in order.
func (m *Mesh) AddFace(id int, parent *Element, face int) (*Element, error) {
	if parent == nil {
		return nil, fmt.Errorf("mesh: face %d has no parent", id)
	}
	if id <= 0 {
		return nil, fmt.Errorf("mesh: face id %d must be positive", id)
	}
	if _, exists := m.faces[id]; exists {
		return nil, fmt.Errorf("mesh: face %d already exists", id)
	}
	pdim := parent.Dimension()
	if pdim < 2 {
		return nil, fmt.Errorf("mesh: %s element %d has no faces", parent.Shape, parent.ID)
	}
	if face < 0 || face >= parent.Shape.NumberOfFaces() {
		return nil, fmt.Errorf("mesh: face index %d out of range for %s element %d", face, parent.Shape, parent.ID)
	}
	fixed := face / 2
	value := face % 2

	var xm XiMap
	xm.Origin[fixed] = float64(value)
	var free []int
	for d := 0; d < pdim; d++ {
		if d == fixed {
			continue
		}
		free = append(free, d)
		var axis [3]float64
		axis[d] = 1
		xm.Axes = append(xm.Axes, axis)
	}

	shape := shapeOfDimension(pdim - 1)
	nodes := make([]*Node, shape.NumberOfNodes())
	for k := range nodes {
		local := value << fixed
		for i, d := range free {
			if k&(1<<i) != 0 {
				local |= 1 << d
			}
		}
		nodes[k] = parent.Nodes[local]
	}

	e := &Element{ID: id, Shape: shape, Nodes: nodes, parent: parent, xiMap: xm, face: face}
	m.faces[id] = e
	return e, nil
}

// Face returns face element id or nil.
func (m *Mesh) Face(id int) *Element {
	return m.faces[id]
}

// Faces returns the face elements ordered by id.
func (m *Mesh) Faces() []*Element {
	return sortedElements(m.faces)
}

// ElementsUsingNode returns the top-level elements that reference n.
func (m *Mesh) ElementsUsingNode(n *Node) []*Element {
	var out []*Element
	for _, e := range m.Elements() {
		for _, en := range e.Nodes {
			if en == n {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func sortedElements(src map[int]*Element) []*Element {
	out := make([]*Element, 0, len(src))
	for _, e := range src {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
