package field

// Definition is everything needed to build or redefine a field.
type Definition struct {
	Core               Core
	Sources            []*Field
	SourceValues       []float64
	NumberOfComponents int
	CoordinateSystem   CoordinateSystem
}

// Field is the stable, reference-counted identity of a computed field.
// Its core may be replaced by Module.Redefine without invalidating handles.
type Field struct {
	name               string
	module             *Module
	core               Core
	numberOfComponents int
	coordinateSystem   CoordinateSystem
	readOnly           bool
	managed            bool
	sources            []*Field
	sourceValues       []float64
	accessCount        int
	cache              *ValueCache
}

// Name returns the field's unique name within its module.
func (f *Field) Name() string { return f.name }

// Module returns the owning module, or nil once the field is released.
func (f *Field) Module() *Module { return f.module }

// Core returns the current core.
func (f *Field) Core() Core { return f.core }

// TypeString returns the type name of the current core.
func (f *Field) TypeString() string {
	if f.core == nil {
		return ""
	}
	return f.core.TypeString()
}

// CommandString returns the command that rebuilds the current core.
func (f *Field) CommandString() string {
	if f.core == nil {
		return ""
	}
	return f.core.CommandString()
}

func (f *Field) NumberOfComponents() int { return f.numberOfComponents }

func (f *Field) CoordinateSystem() CoordinateSystem { return f.coordinateSystem }

func (f *Field) ReadOnly() bool { return f.readOnly }

func (f *Field) Managed() bool { return f.managed }

// AccessCount returns the number of holders, including dependant fields.
func (f *Field) AccessCount() int { return f.accessCount }

// Sources returns a copy of the source fields.
func (f *Field) Sources() []*Field { return append([]*Field(nil), f.sources...) }

// SourceValues returns a copy of the constant source values.
func (f *Field) SourceValues() []float64 { return append([]float64(nil), f.sourceValues...) }

// HasMultipleTimes reports whether the field or any source varies in time.
// Shared sources are visited once.
func (f *Field) HasMultipleTimes() bool {
	return f.hasMultipleTimes(make(map[*Field]bool))
}

func (f *Field) hasMultipleTimes(seen map[*Field]bool) bool {
	if seen[f] {
		return false
	}
	seen[f] = true
	if mt, ok := f.core.(MultipleTimer); ok && mt.HasMultipleTimes() {
		return true
	}
	for _, s := range f.sources {
		if s.hasMultipleTimes(seen) {
			return true
		}
	}
	return false
}

// DependsOn reports whether other is f or one of its transitive sources.
func (f *Field) DependsOn(other *Field) bool {
	return f.dependsOn(other, make(map[*Field]bool))
}

// dependsOn memoizes the answer for every field it walks, so one memo can
// serve several queries about the same other.
func (f *Field) dependsOn(other *Field, memo map[*Field]bool) bool {
	if f == other {
		return true
	}
	if v, ok := memo[f]; ok {
		return v
	}
	memo[f] = false
	for _, s := range f.sources {
		if s.dependsOn(other, memo) {
			memo[f] = true
			return true
		}
	}
	return false
}

// Evaluate evaluates f at c's location and returns its value cache. A cached
// result is reused when it was computed at the same location, in the same
// module generation, and with derivatives if they are now requested.
func (f *Field) Evaluate(c *Cache) (*ValueCache, bool) {
	if f == nil || f.core == nil || c == nil || f.module != c.module {
		return nil, false
	}
	vc := c.valueCache(f)
	gen := f.module.generation
	if vc.hit(c, gen) {
		return vc, true
	}
	vc.prepare(c, gen)
	if !f.core.Evaluate(c, vc) {
		vc.invalidate()
		return vc, false
	}
	vc.valid = true
	if !c.derivatives {
		vc.DerivativesValid = false
	}
	return vc, true
}

// IsDefinedAt reports whether f can be evaluated at c's location.
func (f *Field) IsDefinedAt(c *Cache) bool {
	if f == nil || f.core == nil || c == nil {
		return false
	}
	gen := c.module.generation
	if d, ok := c.defined[f]; ok && d.generation == gen && d.location == c.location {
		return d.ok
	}
	ok := f.core.IsDefinedAt(c)
	if c.defined == nil {
		c.defined = make(map[*Field]definedAt)
	}
	c.defined[f] = definedAt{location: c.location, generation: gen, ok: ok}
	return ok
}

func (f *Field) String() string {
	if f == nil {
		return "<nil field>"
	}
	return f.name
}
