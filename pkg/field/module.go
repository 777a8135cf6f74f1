package field

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/cmgui/internal/logging"
	"github.com/chazu/cmgui/pkg/mesh"
)

// Module owns a set of named fields over one mesh, the type registry used to
// parse field commands, and the begin/end change batching of notifications.
// A Module is not safe for concurrent use.
type Module struct {
	mesh       *mesh.Mesh
	registry   *Registry
	fields     map[string]*Field
	generation uint64
	tempCount  int

	changeDepth int
	pending     *Changes
	callbacks   []callback
	nextID      int
}

type callback struct {
	id int
	fn func(*Changes)
}

// NewModule returns an empty module over msh with an empty type registry.
func NewModule(msh *mesh.Mesh) *Module {
	if msh == nil {
		msh = mesh.New()
	}
	return &Module{
		mesh:     msh,
		registry: NewRegistry(),
		fields:   make(map[string]*Field),
	}
}

// Mesh returns the mesh the module's fields are defined over.
func (m *Module) Mesh() *mesh.Mesh { return m.mesh }

// Registry returns the module's field type registry.
func (m *Module) Registry() *Registry { return m.registry }

// Generation returns a counter bumped by every field change. Value caches
// computed in an older generation are stale.
func (m *Module) Generation() uint64 { return m.generation }

// FindByName returns the named field, or nil. The result is not accessed.
func (m *Module) FindByName(name string) *Field { return m.fields[name] }

// Fields returns all fields sorted by name.
func (m *Module) Fields() []*Field {
	out := make([]*Field, 0, len(m.fields))
	for _, f := range m.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (m *Module) owns(f *Field) bool {
	return f != nil && f.module == m && m.fields[f.name] == f
}

func (m *Module) checkDefinition(def Definition) error {
	if def.Core == nil {
		return fmt.Errorf("%w: definition has no core", ErrInvalidArgument)
	}
	if def.NumberOfComponents <= 0 {
		return fmt.Errorf("%w: %s needs at least one component", ErrInvalidArgument, def.Core.TypeString())
	}
	for i, s := range def.Sources {
		if !m.owns(s) {
			return fmt.Errorf("%w: %s source %d is not a field of this module", ErrInvalidArgument, def.Core.TypeString(), i+1)
		}
	}
	return nil
}

// Create builds a new field from def and returns it with one access held
// by the caller. An empty name is replaced by a unique "temp" name.
func (m *Module) Create(name string, def Definition) (*Field, error) {
	if err := m.checkDefinition(def); err != nil {
		logging.Logger().Error("field create rejected", "field", name, "err", err)
		return nil, err
	}
	if name == "" {
		name = m.uniqueName()
	}
	if _, exists := m.fields[name]; exists {
		err := fmt.Errorf("%w: %q", ErrNameInUse, name)
		logging.Logger().Error("field create rejected", "field", name, "err", err)
		return nil, err
	}
	f := &Field{
		name:   name,
		module: m,
		cache:  newValueCache(def.NumberOfComponents),
	}
	m.install(f, def)
	f.accessCount = 1
	m.fields[name] = f
	m.changed(f, ChangeAdd)
	return f, nil
}

func (m *Module) uniqueName() string {
	for {
		m.tempCount++
		name := fmt.Sprintf("temp%d", m.tempCount)
		if _, exists := m.fields[name]; !exists {
			return name
		}
	}
}

// install swaps def into f, taking references on the new sources before
// releasing the old ones.
func (m *Module) install(f *Field, def Definition) {
	old := f.sources
	f.sources = append([]*Field(nil), def.Sources...)
	for _, s := range f.sources {
		s.accessCount++
	}
	f.sourceValues = append([]float64(nil), def.SourceValues...)
	f.numberOfComponents = def.NumberOfComponents
	f.coordinateSystem = def.CoordinateSystem
	f.core = def.Core
	f.core.Attach(f)
	if len(f.cache.Values) != f.numberOfComponents {
		f.cache = newValueCache(f.numberOfComponents)
	} else {
		f.cache.invalidate()
	}
	for _, s := range old {
		m.release(s)
	}
}

// Redefine replaces the core, sources and component count of f while every
// handle to f stays valid. It fails, leaving f untouched, if the new sources
// depend on f, if f is read only, or if the component count would change
// while other fields use f.
func (m *Module) Redefine(f *Field, def Definition) error {
	if !m.owns(f) {
		return fmt.Errorf("%w: field is not in this module", ErrInvalidArgument)
	}
	if f.readOnly {
		return fmt.Errorf("%w: %q", ErrReadOnly, f.name)
	}
	if err := m.checkDefinition(def); err != nil {
		return err
	}
	memo := make(map[*Field]bool)
	for _, s := range def.Sources {
		if s.dependsOn(f, memo) {
			err := fmt.Errorf("%w: %q cannot use %q as a source", ErrCycle, f.name, s.name)
			logging.Logger().Error("field redefine rejected", "field", f.name, "err", err)
			return err
		}
	}
	if def.NumberOfComponents != f.numberOfComponents && len(m.dependants(f)) > 0 {
		return fmt.Errorf("%w: %q is in use with %d components", ErrComponentMismatch, f.name, f.numberOfComponents)
	}
	m.install(f, def)
	m.changed(f, ChangeDefinition)
	return nil
}

// dependants returns the fields using f directly or indirectly, by name.
func (m *Module) dependants(f *Field) []*Field {
	var out []*Field
	memo := make(map[*Field]bool)
	for _, g := range m.Fields() {
		if g != f && g.dependsOn(f, memo) {
			out = append(out, g)
		}
	}
	return out
}

// Access takes a reference on f and returns it.
func (m *Module) Access(f *Field) *Field {
	if f != nil {
		f.accessCount++
	}
	return f
}

// Deaccess releases the reference held through *pf and sets *pf to nil. An
// unmanaged field is removed from the module when its last reference goes.
func (m *Module) Deaccess(pf **Field) {
	if pf == nil || *pf == nil {
		return
	}
	f := *pf
	*pf = nil
	m.release(f)
}

func (m *Module) release(f *Field) {
	f.accessCount--
	if f.accessCount <= 0 && !f.managed {
		m.remove(f)
	}
}

func (m *Module) remove(f *Field) {
	if !m.owns(f) {
		return
	}
	delete(m.fields, f.name)
	m.changed(f, ChangeRemove)
	sources := f.sources
	f.sources = nil
	f.core = nil
	f.module = nil
	for _, s := range sources {
		m.release(s)
	}
}

// SetManaged sets whether the module keeps f alive with no references. An
// unmanaged field with no references is removed immediately.
func (m *Module) SetManaged(f *Field, managed bool) {
	if !m.owns(f) {
		return
	}
	f.managed = managed
	if !managed && f.accessCount <= 0 {
		m.remove(f)
	}
}

// SetReadOnly marks f as protected from Redefine.
func (m *Module) SetReadOnly(f *Field, readOnly bool) {
	if m.owns(f) {
		f.readOnly = readOnly
	}
}

// SetCoordinateSystem changes the coordinate system of f.
func (m *Module) SetCoordinateSystem(f *Field, cs CoordinateSystem) {
	if !m.owns(f) || f.coordinateSystem == cs {
		return
	}
	f.coordinateSystem = cs
	m.changed(f, ChangeDefinition)
}

// Rename gives f a new unique name.
func (m *Module) Rename(f *Field, name string) error {
	if !m.owns(f) || name == "" {
		return fmt.Errorf("%w: rename", ErrInvalidArgument)
	}
	if name == f.name {
		return nil
	}
	if _, exists := m.fields[name]; exists {
		return fmt.Errorf("%w: %q", ErrNameInUse, name)
	}
	delete(m.fields, f.name)
	f.name = name
	m.fields[name] = f
	m.changed(f, ChangeIdentifier)
	return nil
}

// GetValues evaluates f at c's location into out, which must hold at least
// NumberOfComponents values. On failure out is left untouched.
func (m *Module) GetValues(f *Field, c *Cache, out []float64) bool {
	if f == nil || c == nil || !m.owns(f) {
		logging.Logger().Error("get values: invalid field or cache", "field", f.String())
		return false
	}
	if len(out) < f.numberOfComponents {
		logging.Logger().Error("get values: output too small", "field", f.name,
			"have", len(out), "need", f.numberOfComponents)
		return false
	}
	vc, ok := f.Evaluate(c)
	if !ok {
		return false
	}
	copy(out, vc.Values)
	return true
}

// SetValues assigns values to f at c's location. Only fields whose core
// accepts values can be set.
func (m *Module) SetValues(f *Field, c *Cache, in []float64) bool {
	if f == nil || c == nil || !m.owns(f) {
		logging.Logger().Error("set values: invalid field or cache", "field", f.String())
		return false
	}
	setter, ok := f.core.(ValueSetter)
	if !ok || len(in) < f.numberOfComponents {
		return false
	}
	if !setter.SetValuesAt(c, in[:f.numberOfComponents]) {
		return false
	}
	m.changed(f, ChangeValues)
	return true
}

// EvaluateString formats the values of f at c's location.
func (m *Module) EvaluateString(f *Field, c *Cache) (string, bool) {
	if !m.owns(f) {
		return "", false
	}
	vc, ok := f.Evaluate(c)
	if !ok {
		return "", false
	}
	return vc.String(), true
}

// CommandScript returns a define_field command for every field, sources
// before the fields that use them, which rebuilds the module when replayed.
func (m *Module) CommandScript() string {
	var b strings.Builder
	done := make(map[*Field]bool)
	var emit func(f *Field)
	emit = func(f *Field) {
		if done[f] {
			return
		}
		done[f] = true
		for _, s := range f.sources {
			emit(s)
		}
		fmt.Fprintf(&b, "(define_field %q %s", f.name, f.CommandString())
		if f.coordinateSystem.Type != RectangularCartesian {
			fmt.Fprintf(&b, " :coordinate_system %q", f.coordinateSystem.Type)
			if f.coordinateSystem.Focus != 0 {
				fmt.Fprintf(&b, " :focus %s", formatFloat(f.coordinateSystem.Focus))
			}
		}
		b.WriteString(")\n")
	}
	for _, f := range m.Fields() {
		emit(f)
	}
	return b.String()
}
