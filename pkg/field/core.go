package field

// Core is the replaceable implementation behind a Field. A core is attached
// to exactly one field; redefining the field attaches a fresh core.
type Core interface {
	// TypeString returns the registered type name, e.g. "time_lookup".
	TypeString() string
	// Attach binds the core to its owning field.
	Attach(f *Field)
	// Evaluate computes the field at c's location into vc. It returns false
	// if any source is undefined there or the evaluation fails numerically.
	// Derivatives are only required when c.DerivativesRequested().
	Evaluate(c *Cache, vc *ValueCache) bool
	// IsDefinedAt reports whether Evaluate can succeed at c's location.
	IsDefinedAt(c *Cache) bool
	// Compare reports whether other has the same type and configuration,
	// ignoring the field name and sources.
	Compare(other Core) bool
	// CommandString describes the core as a command that rebuilds it.
	CommandString() string
}

// ValueSetter is implemented by cores whose values can be assigned.
type ValueSetter interface {
	SetValuesAt(c *Cache, values []float64) bool
}

// MultipleTimer is implemented by cores whose values vary with time.
type MultipleTimer interface {
	HasMultipleTimes() bool
}

// Lister is implemented by cores with a detailed description.
type Lister interface {
	List() string
}

// ResolutionReporter is implemented by cores sampled on a regular grid.
type ResolutionReporter interface {
	NativeResolution() (sizes []int, ok bool)
}

// CoreBase is embedded by cores for access to the owning field and its
// sources. Its IsDefinedAt requires every source to be defined.
type CoreBase struct {
	field *Field
}

func (b *CoreBase) Attach(f *Field) { b.field = f }

// Field returns the owning field, or nil before Attach.
func (b *CoreBase) Field() *Field { return b.field }

// NumberOfSources returns the number of source fields.
func (b *CoreBase) NumberOfSources() int {
	if b.field == nil {
		return 0
	}
	return len(b.field.sources)
}

// Source returns source field i.
func (b *CoreBase) Source(i int) *Field { return b.field.sources[i] }

// SourceValue returns constant source value i.
func (b *CoreBase) SourceValue(i int) float64 { return b.field.sourceValues[i] }

// SourceValues returns the constant source values. The slice is owned by
// the field.
func (b *CoreBase) SourceValues() []float64 {
	if b.field == nil {
		return nil
	}
	return b.field.sourceValues
}

// EvaluateSources evaluates every source at c and returns their caches, or
// false if any source is undefined.
func (b *CoreBase) EvaluateSources(c *Cache) ([]*ValueCache, bool) {
	out := make([]*ValueCache, len(b.field.sources))
	for i, s := range b.field.sources {
		vc, ok := s.Evaluate(c)
		if !ok {
			return nil, false
		}
		out[i] = vc
	}
	return out, true
}

func (b *CoreBase) IsDefinedAt(c *Cache) bool {
	if b.field == nil {
		return false
	}
	for _, s := range b.field.sources {
		if !s.IsDefinedAt(c) {
			return false
		}
	}
	return true
}

// CoreCompare reports whether a and b share a type string, the usual
// first step of Compare.
func CoreCompare(a, b Core) bool {
	return a != nil && b != nil && a.TypeString() == b.TypeString()
}
