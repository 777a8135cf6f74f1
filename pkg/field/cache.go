package field

import (
	"strconv"
	"strings"

	"github.com/chazu/cmgui/pkg/mesh"
)

// ValueCache holds the most recent evaluation of one field: values,
// optional xi derivatives, and the location and module generation they were
// computed for. Evaluating the field at another location overwrites it.
type ValueCache struct {
	Values []float64
	// Derivatives holds d(component i)/d(xi j) at i*dim+j where dim is the
	// dimension of the evaluation element. Valid only if DerivativesValid.
	Derivatives      []float64
	DerivativesValid bool

	valid           bool
	withDerivatives bool
	location        Location
	generation      uint64

	stringValue string
	stringValid bool

	extra *Cache
}

func newValueCache(components int) *ValueCache {
	return &ValueCache{Values: make([]float64, components)}
}

// Valid reports whether the cache holds a successful evaluation.
func (vc *ValueCache) Valid() bool { return vc.valid }

// Location returns the location of the cached evaluation.
func (vc *ValueCache) Location() Location { return vc.location }

// Dimension returns the number of xi directions of the cached derivatives.
func (vc *ValueCache) Dimension() int {
	if len(vc.Values) == 0 {
		return 0
	}
	return len(vc.Derivatives) / len(vc.Values)
}

// Derivative returns d(component)/d(xi) from the cache.
func (vc *ValueCache) Derivative(component, xi int) float64 {
	return vc.Derivatives[component*vc.Dimension()+xi]
}

// ZeroDerivatives clears and validates the derivatives, for cores whose
// value does not vary with xi.
func (vc *ValueCache) ZeroDerivatives() {
	for i := range vc.Derivatives {
		vc.Derivatives[i] = 0
	}
	vc.DerivativesValid = len(vc.Derivatives) > 0
}

func (vc *ValueCache) invalidate() {
	vc.valid = false
	vc.DerivativesValid = false
	vc.stringValid = false
}

func (vc *ValueCache) hit(c *Cache, generation uint64) bool {
	return vc.valid &&
		vc.generation == generation &&
		vc.location == c.location &&
		(!c.derivatives || vc.withDerivatives)
}

func (vc *ValueCache) prepare(c *Cache, generation uint64) {
	vc.invalidate()
	vc.location = c.location
	vc.generation = generation
	vc.withDerivatives = c.derivatives
	n := len(vc.Values) * c.location.Dimension()
	if cap(vc.Derivatives) < n {
		vc.Derivatives = make([]float64, n)
	}
	vc.Derivatives = vc.Derivatives[:n]
}

// String formats the cached values, caching the result until the next
// evaluation.
func (vc *ValueCache) String() string {
	if !vc.stringValid {
		parts := make([]string, len(vc.Values))
		for i, v := range vc.Values {
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		vc.stringValue = strings.Join(parts, " ")
		vc.stringValid = true
	}
	return vc.stringValue
}

// ExtraCache returns a child evaluation context of parent bound to loc, for
// cores that must evaluate sources somewhere other than the ambient location
// (another time, or a parent element). The child keeps its own value caches
// so the ambient ones are not disturbed. It is owned by vc and reused on the
// next call.
func (vc *ValueCache) ExtraCache(parent *Cache, loc Location) *Cache {
	if vc.extra == nil || vc.extra.module != parent.module {
		vc.extra = &Cache{
			module: parent.module,
			values: make(map[*Field]*ValueCache),
			parent: parent,
		}
	}
	vc.extra.parent = parent
	vc.extra.location = loc
	vc.extra.derivatives = parent.derivatives
	return vc.extra
}

// Cache is an evaluation context: the location being evaluated and whether
// xi derivatives are wanted. A root cache uses each field's own ValueCache;
// caches obtained from ExtraCache keep private ones.
type Cache struct {
	module      *Module
	location    Location
	derivatives bool
	values      map[*Field]*ValueCache
	parent      *Cache

	// defined remembers IsDefinedAt answers per field.
	defined map[*Field]definedAt
}

type definedAt struct {
	location   Location
	generation uint64
	ok         bool
}

// NewCache returns a root evaluation cache for fields of m.
func (m *Module) NewCache() *Cache {
	return &Cache{module: m}
}

// Module returns the module whose fields this cache evaluates.
func (c *Cache) Module() *Module { return c.module }

// Parent returns the cache this one was derived from, or nil for a root.
func (c *Cache) Parent() *Cache { return c.parent }

// Location returns the current location.
func (c *Cache) Location() Location { return c.location }

// SetLocation replaces the current location.
func (c *Cache) SetLocation(l Location) { c.location = l }

// SetElementXi moves the cache into element e, keeping the time.
func (c *Cache) SetElementXi(e *mesh.Element, xi []float64) {
	c.location = AtElementXi(e, xi, c.location.time)
}

// SetNode moves the cache to node n, keeping the time.
func (c *Cache) SetNode(n *mesh.Node) {
	c.location = AtNode(n, c.location.time)
}

// SetTime changes the time, keeping the domain point.
func (c *Cache) SetTime(t float64) { c.location = c.location.WithTime(t) }

// RequestDerivatives sets whether xi derivatives should be evaluated.
func (c *Cache) RequestDerivatives(on bool) { c.derivatives = on }

// DerivativesRequested reports whether xi derivatives are wanted.
func (c *Cache) DerivativesRequested() bool { return c.derivatives }

func (c *Cache) valueCache(f *Field) *ValueCache {
	if c.values == nil {
		if len(f.cache.Values) != f.numberOfComponents {
			f.cache = newValueCache(f.numberOfComponents)
		}
		return f.cache
	}
	vc := c.values[f]
	if vc == nil || len(vc.Values) != f.numberOfComponents {
		vc = newValueCache(f.numberOfComponents)
		c.values[f] = vc
	}
	return vc
}
