package mesh

// Shape enumerates the supported element shapes. All shapes are
// tensor-product shapes with unit xi ranges.
type Shape int

const (
	ShapeLine   Shape = iota + 1 // 1-D, 2 nodes
	ShapeSquare                  // 2-D, 4 nodes
	ShapeCube                    // 3-D, 8 nodes
)

func (s Shape) String() string {
	switch s {
	case ShapeLine:
		return "line"
	case ShapeSquare:
		return "square"
	case ShapeCube:
		return "cube"
	default:
		return "unknown"
	}
}

// ParseShape returns the shape named by s.
func ParseShape(s string) (Shape, bool) {
	switch s {
	case "line":
		return ShapeLine, true
	case "square":
		return ShapeSquare, true
	case "cube":
		return ShapeCube, true
	}
	return 0, false
}

// Dimension returns the number of xi directions.
func (s Shape) Dimension() int {
	switch s {
	case ShapeLine:
		return 1
	case ShapeSquare:
		return 2
	case ShapeCube:
		return 3
	default:
		return 0
	}
}

// NumberOfNodes returns the node count of the linear Lagrange basis.
func (s Shape) NumberOfNodes() int {
	d := s.Dimension()
	if d == 0 {
		return 0
	}
	return 1 << d
}

// NumberOfFaces returns the count of (dimension-1) faces.
func (s Shape) NumberOfFaces() int {
	return 2 * s.Dimension()
}

func shapeOfDimension(d int) Shape {
	switch d {
	case 1:
		return ShapeLine
	case 2:
		return ShapeSquare
	case 3:
		return ShapeCube
	}
	return 0
}

// Basis evaluates the linear Lagrange basis functions of shape s at xi.
// Local node k has xi coordinate bit d of k in direction d. If derivatives is
// non-nil it receives dphi_k/dxi_d at derivatives[k*dim+d].
func (s Shape) Basis(xi []float64, phi []float64, derivatives []float64) {
	dim := s.Dimension()
	n := s.NumberOfNodes()
	for k := 0; k < n; k++ {
		p := 1.0
		for d := 0; d < dim; d++ {
			p *= linear(k, d, xi[d])
		}
		phi[k] = p
		if derivatives == nil {
			continue
		}
		for d := 0; d < dim; d++ {
			dp := 1.0
			for e := 0; e < dim; e++ {
				if e == d {
					if k&(1<<e) == 0 {
						dp = -dp
					}
				} else {
					dp *= linear(k, e, xi[e])
				}
			}
			derivatives[k*dim+d] = dp
		}
	}
}

func linear(k, d int, x float64) float64 {
	if k&(1<<d) != 0 {
		return x
	}
	return 1 - x
}
