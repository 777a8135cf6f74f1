package fieldtypes

import (
	"fmt"
	"sort"

	"github.com/chazu/cmgui/pkg/field"
	"github.com/chazu/cmgui/pkg/mesh"
)

// FiniteElementCore interpolates values stored at mesh nodes with the
// linear Lagrange basis of each element. Values may be given at several
// times, in which case they are interpolated linearly in time and clamped
// outside the time range.
type FiniteElementCore struct {
	field.CoreBase
	components int
	times      []float64
	// nodes maps node id to values laid out [time][component].
	nodes map[int][]float64
}

func (c *FiniteElementCore) TypeString() string { return "finite_element" }

func (c *FiniteElementCore) ntimes() int {
	if len(c.times) == 0 {
		return 1
	}
	return len(c.times)
}

// timeWeights returns the bracketing time indices and the weight of the
// second.
func (c *FiniteElementCore) timeWeights(t float64) (int, int, float64) {
	n := len(c.times)
	if n <= 1 || t <= c.times[0] {
		return 0, 0, 0
	}
	if t >= c.times[n-1] {
		return n - 1, n - 1, 0
	}
	hi := sort.SearchFloat64s(c.times, t)
	if c.times[hi] == t {
		return hi, hi, 0
	}
	lo := hi - 1
	return lo, hi, (t - c.times[lo]) / (c.times[hi] - c.times[lo])
}

// nodeValues writes the values of node id at time t into out.
func (c *FiniteElementCore) nodeValues(id int, t float64, out []float64) bool {
	vals, ok := c.nodes[id]
	if !ok {
		return false
	}
	lo, hi, w := c.timeWeights(t)
	n := c.components
	for i := 0; i < n; i++ {
		out[i] = (1-w)*vals[lo*n+i] + w*vals[hi*n+i]
	}
	return true
}

func (c *FiniteElementCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	loc := cache.Location()
	switch loc.Kind() {
	case field.LocationNode:
		if loc.Node() == nil {
			return false
		}
		return c.nodeValues(loc.Node().ID, loc.Time(), vc.Values)
	case field.LocationElementXi:
		return c.evaluateElement(cache, loc, vc)
	default:
		return false
	}
}

func (c *FiniteElementCore) evaluateElement(cache *field.Cache, loc field.Location, vc *field.ValueCache) bool {
	e := loc.Element()
	if e == nil {
		return false
	}
	dim := e.Dimension()
	nn := e.Shape.NumberOfNodes()
	phi := make([]float64, nn)
	var dphi []float64
	wantDerivs := cache.DerivativesRequested()
	if wantDerivs {
		dphi = make([]float64, nn*dim)
	}
	e.Shape.Basis(loc.Xi(), phi, dphi)

	for i := range vc.Values {
		vc.Values[i] = 0
	}
	if wantDerivs {
		vc.ZeroDerivatives()
	}
	nodal := make([]float64, c.components)
	for k, n := range e.Nodes {
		if !c.nodeValues(n.ID, loc.Time(), nodal) {
			return false
		}
		for i, v := range nodal {
			vc.Values[i] += phi[k] * v
			if wantDerivs {
				for d := 0; d < dim; d++ {
					vc.Derivatives[i*dim+d] += dphi[k*dim+d] * v
				}
			}
		}
	}
	return true
}

func (c *FiniteElementCore) IsDefinedAt(cache *field.Cache) bool {
	loc := cache.Location()
	switch loc.Kind() {
	case field.LocationNode:
		if loc.Node() == nil {
			return false
		}
		_, ok := c.nodes[loc.Node().ID]
		return ok
	case field.LocationElementXi:
		if loc.Element() == nil {
			return false
		}
		for _, n := range loc.Element().Nodes {
			if _, ok := c.nodes[n.ID]; !ok {
				return false
			}
		}
		return true
	}
	return false
}

// SetValuesAt assigns node values at a node location. With several times,
// the location time must be one of them.
func (c *FiniteElementCore) SetValuesAt(cache *field.Cache, values []float64) bool {
	loc := cache.Location()
	if loc.Kind() != field.LocationNode || loc.Node() == nil {
		return false
	}
	ti := 0
	if len(c.times) > 0 {
		ti = sort.SearchFloat64s(c.times, loc.Time())
		if ti == len(c.times) || c.times[ti] != loc.Time() {
			return false
		}
	}
	id := loc.Node().ID
	vals, ok := c.nodes[id]
	if !ok {
		vals = make([]float64, c.ntimes()*c.components)
		c.nodes[id] = vals
	}
	copy(vals[ti*c.components:(ti+1)*c.components], values)
	return true
}

func (c *FiniteElementCore) HasMultipleTimes() bool { return len(c.times) > 1 }

// Times returns a copy of the value times.
func (c *FiniteElementCore) Times() []float64 { return append([]float64(nil), c.times...) }

// NodeIDs returns the ids of nodes holding values, sorted.
func (c *FiniteElementCore) NodeIDs() []int {
	ids := make([]int, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (c *FiniteElementCore) Compare(o field.Core) bool {
	oc, ok := o.(*FiniteElementCore)
	return ok && oc.components == c.components && equalFloats(oc.times, c.times)
}

func (c *FiniteElementCore) CommandString() string {
	ids := c.NodeIDs()
	var values []float64
	for _, id := range ids {
		values = append(values, c.nodes[id]...)
	}
	cmd := field.NewCommand("finite_element").
		Float("components", float64(c.components))
	if len(c.times) > 0 {
		cmd.Floats("times", c.times)
	}
	return cmd.Ints("nodes", ids).Floats("values", values).Build()
}

func (c *FiniteElementCore) List() string {
	return fmt.Sprintf("finite_element: %d components, %d nodes, %d times",
		c.components, len(c.nodes), c.ntimes())
}

// FiniteElement is a typed view of a finite_element field.
type FiniteElement = Handle[*FiniteElementCore]

// NewFiniteElement defines a field with the given number of components and
// no node values. If times are given they must be strictly increasing and
// node values are then held per time.
func NewFiniteElement(components int, times ...float64) (field.Definition, error) {
	if components <= 0 {
		return field.Definition{}, fmt.Errorf("%w: finite_element needs at least one component", field.ErrInvalidArgument)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return field.Definition{}, fmt.Errorf("%w: finite_element times must increase", field.ErrInvalidArgument)
		}
	}
	return field.Definition{
		Core: &FiniteElementCore{
			components: components,
			times:      append([]float64(nil), times...),
			nodes:      make(map[int][]float64),
		},
		NumberOfComponents: components,
		CoordinateSystem:   field.RC,
	}, nil
}

// CreateFiniteElement creates a finite_element field in m.
func CreateFiniteElement(m *field.Module, name string, components int, times ...float64) (*field.Field, error) {
	def, err := NewFiniteElement(components, times...)
	return create(m, name, def, err)
}

// AsFiniteElement returns a typed view of f, or nil.
func AsFiniteElement(f *field.Field) *FiniteElement { return as[*FiniteElementCore](f) }

// SetNodeValues assigns the values of node n at time t through the module,
// so dependants see the change.
func SetNodeValues(f *field.Field, n *mesh.Node, t float64, values []float64) bool {
	fe := AsFiniteElement(f)
	if fe == nil || n == nil {
		return false
	}
	m := f.Module()
	c := m.NewCache()
	c.SetLocation(field.AtNode(n, t))
	return m.SetValues(f, c, values)
}

func parseFiniteElement(m *field.Module, args *field.Args) (field.Definition, error) {
	components, err := args.Int("components")
	if err != nil {
		return field.Definition{}, err
	}
	var times []float64
	if args.Has("times") {
		if times, err = args.Floats("times"); err != nil {
			return field.Definition{}, err
		}
	}
	def, err := NewFiniteElement(components, times...)
	if err != nil || !args.Has("nodes") {
		return def, err
	}
	ids, err := args.Ints("nodes")
	if err != nil {
		return field.Definition{}, err
	}
	values, err := args.Floats("values")
	if err != nil {
		return field.Definition{}, err
	}
	core := def.Core.(*FiniteElementCore)
	per := core.ntimes() * components
	if len(values) != per*len(ids) {
		return field.Definition{}, fmt.Errorf("%w: finite_element expects %d values for %d nodes, got %d",
			field.ErrInvalidArgument, per*len(ids), len(ids), len(values))
	}
	for i, id := range ids {
		if m.Mesh().Node(id) == nil {
			return field.Definition{}, fmt.Errorf("%w: node %d", field.ErrNotFound, id)
		}
		core.nodes[id] = append([]float64(nil), values[i*per:(i+1)*per]...)
	}
	return def, nil
}
