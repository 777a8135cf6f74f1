package graphics

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chazu/cmgui/internal/logging"
	"github.com/chazu/cmgui/pkg/field"
	"github.com/chazu/cmgui/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// SettingsKind selects what a Settings entry draws.
type SettingsKind int

const (
	NodePoints SettingsKind = iota
	ElementPoints
	ElementLines
	ElementSurfaces
)

var settingsKindNames = []string{"node_points", "element_points", "lines", "surfaces"}

func (k SettingsKind) String() string {
	if k < 0 || int(k) >= len(settingsKindNames) {
		return "unknown"
	}
	return settingsKindNames[k]
}

// ParseSettingsKind returns the kind called s.
func ParseSettingsKind(s string) (SettingsKind, error) {
	if i := slices.Index(settingsKindNames, s); i >= 0 {
		return SettingsKind(i), nil
	}
	return 0, fmt.Errorf("graphics: unknown settings kind %q", s)
}

// Settings is one rendition of an element group's mesh. Coordinate must be
// a field of one to three components; Data is optional and contributes its
// first component per vertex.
type Settings struct {
	Kind       SettingsKind
	Coordinate *field.Field
	Data       *field.Field
	Material   string
	Spectrum   string
	// Glyph and GlyphSize apply to node and element points.
	Glyph     string
	GlyphSize float64
	// Divisions is the number of segments per element edge for lines and
	// surfaces. Zero uses the group default.
	Divisions int
	Visible   bool
}

// ElementGroup draws a field module's mesh through an ordered list of
// settings. Settings positions are 1-based and used as the first
// selection name of every primitive; the second is the node or element id.
type ElementGroup struct {
	name      string
	module    *field.Module
	glyphs    *GlyphSet
	divisions int
	settings  []*Settings

	list      *DisplayList
	listTime  float64
	stale     bool
	compiles  int
	callback  int
	listeners listeners
}

var _ Drawable = (*ElementGroup)(nil)

// NewElementGroup returns an element group over m's mesh. divisions is the
// default edge subdivision for lines and surfaces. The group listens to m
// until Destroy.
func NewElementGroup(name string, m *field.Module, glyphs *GlyphSet, divisions int) (*ElementGroup, error) {
	if m == nil {
		return nil, errors.New("graphics: element group needs a field module")
	}
	if divisions <= 0 {
		divisions = 1
	}
	g := &ElementGroup{name: name, module: m, glyphs: glyphs, divisions: divisions, stale: true}
	g.callback = m.AddCallback(g.fieldsChanged)
	return g, nil
}

func (g *ElementGroup) Name() string { return g.name }

// Module returns the field module the group draws.
func (g *ElementGroup) Module() *field.Module { return g.module }

// Mesh returns the mesh the group draws.
func (g *ElementGroup) Mesh() *mesh.Mesh { return g.module.Mesh() }

// Compiles returns how many times the display list was rebuilt.
func (g *ElementGroup) Compiles() int { return g.compiles }

// Destroy stops listening to the field module and releases the fields the
// settings hold.
func (g *ElementGroup) Destroy() {
	if g.module == nil {
		return
	}
	g.module.RemoveCallback(g.callback)
	for _, s := range g.settings {
		g.release(s)
	}
	g.settings = nil
	g.module = nil
}

// AddSettings appends s and returns its position.
func (g *ElementGroup) AddSettings(s Settings) (int, error) {
	if g.module == nil {
		return 0, errors.New("graphics: element group destroyed")
	}
	if s.Coordinate == nil || s.Coordinate.Module() != g.module {
		return 0, fmt.Errorf("graphics: %s settings need a coordinate field from the group's module", s.Kind)
	}
	if n := s.Coordinate.NumberOfComponents(); n < 1 || n > 3 {
		return 0, fmt.Errorf("graphics: coordinate field %q has %d components", s.Coordinate.Name(), n)
	}
	if s.Data != nil && s.Data.Module() != g.module {
		return 0, fmt.Errorf("graphics: data field %q belongs to another module", s.Data.Name())
	}
	if s.Kind < NodePoints || s.Kind > ElementSurfaces {
		return 0, fmt.Errorf("graphics: invalid settings kind %d", s.Kind)
	}
	if _, err := g.glyphs.Glyph(s.Glyph); err != nil {
		return 0, err
	}
	if s.GlyphSize <= 0 {
		s.GlyphSize = 1
	}
	s.Coordinate = g.module.Access(s.Coordinate)
	if s.Data != nil {
		s.Data = g.module.Access(s.Data)
	}
	g.settings = append(g.settings, &s)
	g.MarkChanged()
	return len(g.settings), nil
}

// RemoveSettings removes the settings at position; later positions move up.
func (g *ElementGroup) RemoveSettings(position int) error {
	s := g.SettingsAt(position)
	if s == nil {
		return fmt.Errorf("graphics: no settings at position %d", position)
	}
	g.release(s)
	g.settings = slices.Delete(g.settings, position-1, position)
	g.MarkChanged()
	return nil
}

// SetVisibility shows or hides the settings at position.
func (g *ElementGroup) SetVisibility(position int, visible bool) error {
	s := g.SettingsAt(position)
	if s == nil {
		return fmt.Errorf("graphics: no settings at position %d", position)
	}
	if s.Visible != visible {
		s.Visible = visible
		g.MarkChanged()
	}
	return nil
}

// SettingsAt returns the settings at a 1-based position, or nil.
func (g *ElementGroup) SettingsAt(position int) *Settings {
	if position < 1 || position > len(g.settings) {
		return nil
	}
	return g.settings[position-1]
}

// NumberOfSettings returns the number of settings.
func (g *ElementGroup) NumberOfSettings() int { return len(g.settings) }

func (g *ElementGroup) release(s *Settings) {
	g.module.Deaccess(&s.Coordinate)
	if s.Data != nil {
		g.module.Deaccess(&s.Data)
	}
}

// MarkChanged forces a rebuild on the next Compile and notifies listeners.
func (g *ElementGroup) MarkChanged() {
	g.stale = true
	g.listeners.notify()
}

func (g *ElementGroup) fieldsChanged(ch *field.Changes) {
	for _, s := range g.settings {
		if ch.Affects(s.Coordinate) || (s.Data != nil && ch.Affects(s.Data)) {
			g.MarkChanged()
			return
		}
	}
}

func (g *ElementGroup) AddListener(fn func()) int { return g.listeners.add(fn) }

func (g *ElementGroup) RemoveListener(id int) { g.listeners.remove(id) }

func (g *ElementGroup) TimeDependent() bool {
	for _, s := range g.settings {
		if s.Coordinate.HasMultipleTimes() || (s.Data != nil && s.Data.HasMultipleTimes()) {
			return true
		}
	}
	return false
}

func (g *ElementGroup) Materials() []string {
	return g.used(func(s *Settings) string { return s.Material })
}

func (g *ElementGroup) Spectra() []string {
	return g.used(func(s *Settings) string { return s.Spectrum })
}

func (g *ElementGroup) used(get func(*Settings) string) []string {
	var names []string
	for _, s := range g.settings {
		if name := get(s); name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// Compile evaluates the settings' fields and rebuilds the display list if
// the group changed or, for time-varying fields, the time moved. Nodes and
// elements where a field is undefined are skipped.
func (g *ElementGroup) Compile(time float64) (*DisplayList, error) {
	if g.module == nil {
		return nil, errors.New("graphics: element group destroyed")
	}
	if !g.stale && g.list != nil && (g.listTime == time || !g.TimeDependent()) {
		return g.list, nil
	}
	dl := &DisplayList{}
	cache := g.module.NewCache()
	for i, s := range g.settings {
		if !s.Visible {
			continue
		}
		b := builder{group: g, settings: s, position: uint32(i + 1), cache: cache, time: time, list: dl}
		var err error
		switch s.Kind {
		case NodePoints:
			err = b.nodePoints()
		case ElementPoints:
			err = b.elementPoints()
		case ElementLines:
			b.lines()
		case ElementSurfaces:
			b.surfaces()
		}
		if err != nil {
			return nil, err
		}
	}
	g.list, g.listTime, g.stale = dl, time, false
	g.compiles++
	logging.Logger().Debug("compiled element group", "group", g.name,
		"primitives", dl.Len(), "vertices", dl.VertexCount())
	return dl, nil
}

// builder emits the primitives of one settings entry.
type builder struct {
	group    *ElementGroup
	settings *Settings
	position uint32
	cache    *field.Cache
	time     float64
	list     *DisplayList
}

func (b *builder) evaluate(loc field.Location) (r3.Vec, float64, bool) {
	b.cache.SetLocation(loc)
	m := b.group.module
	coord := b.settings.Coordinate
	x := make([]float64, coord.NumberOfComponents())
	if !m.GetValues(coord, b.cache, x) {
		return r3.Vec{}, 0, false
	}
	p := coord.CoordinateSystem().ToRC(x)
	if b.settings.Data == nil {
		return p, 0, true
	}
	d := make([]float64, b.settings.Data.NumberOfComponents())
	if !m.GetValues(b.settings.Data, b.cache, d) {
		return r3.Vec{}, 0, false
	}
	return p, d[0], true
}

func (b *builder) emit(kind PrimitiveKind, id int, vertices []r3.Vec, data []float64) {
	p := Primitive{
		Kind:     kind,
		Names:    []uint32{b.position, uint32(id)},
		Vertices: vertices,
		Material: b.settings.Material,
		Spectrum: b.settings.Spectrum,
	}
	if b.settings.Data != nil {
		p.Data = data
	}
	b.list.Add(p)
}

func (b *builder) point(id int, p r3.Vec, value float64) error {
	glyph, err := b.group.glyphs.Glyph(b.settings.Glyph)
	if err != nil {
		return err
	}
	if glyph == nil {
		b.emit(Points, id, []r3.Vec{p}, []float64{value})
		return nil
	}
	vs := placeGlyph(glyph, p, b.settings.GlyphSize)
	b.emit(Triangles, id, vs, slices.Repeat([]float64{value}, len(vs)))
	return nil
}

func (b *builder) nodePoints() error {
	for _, n := range b.group.Mesh().Nodes() {
		p, v, ok := b.evaluate(field.AtNode(n, b.time))
		if !ok {
			continue
		}
		if err := b.point(n.ID, p, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) elementPoints() error {
	for _, e := range b.group.Mesh().Elements() {
		centre := slices.Repeat([]float64{0.5}, e.Dimension())
		p, v, ok := b.evaluate(field.AtElementXi(e, centre, b.time))
		if !ok {
			continue
		}
		if err := b.point(e.ID, p, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) divisions() int {
	if b.settings.Divisions > 0 {
		return b.settings.Divisions
	}
	return b.group.divisions
}

// edges returns the xi end points of every edge of a unit element of
// dimension dim.
func edges(dim int) [][2][3]float64 {
	var out [][2][3]float64
	for axis := 0; axis < dim; axis++ {
		for corner := 0; corner < 1<<(dim-1); corner++ {
			var a [3]float64
			bit := 0
			for d := 0; d < dim; d++ {
				if d == axis {
					continue
				}
				if corner&(1<<bit) != 0 {
					a[d] = 1
				}
				bit++
			}
			z := a
			z[axis] = 1
			out = append(out, [2][3]float64{a, z})
		}
	}
	return out
}

func (b *builder) lines() {
	n := b.divisions()
	for _, e := range b.group.Mesh().Elements() {
		dim := e.Dimension()
		var vs []r3.Vec
		var data []float64
		ok := true
		for _, edge := range edges(dim) {
			prev, prevValue, defined := b.evaluate(field.AtElementXi(e, edge[0][:dim], b.time))
			if !defined {
				ok = false
				break
			}
			for k := 1; k <= n; k++ {
				t := float64(k) / float64(n)
				xi := make([]float64, dim)
				for d := range xi {
					xi[d] = edge[0][d] + t*(edge[1][d]-edge[0][d])
				}
				p, v, defined := b.evaluate(field.AtElementXi(e, xi, b.time))
				if !defined {
					ok = false
					break
				}
				vs = append(vs, prev, p)
				data = append(data, prevValue, v)
				prev, prevValue = p, v
			}
			if !ok {
				break
			}
		}
		if ok && len(vs) > 0 {
			b.emit(Lines, e.ID, vs, data)
		}
	}
}

func (b *builder) surfaces() {
	n := b.divisions()
	for _, e := range b.group.Mesh().Elements() {
		if e.Dimension() != 2 {
			continue
		}
		grid := make([]r3.Vec, (n+1)*(n+1))
		values := make([]float64, len(grid))
		ok := true
		for j := 0; j <= n && ok; j++ {
			for i := 0; i <= n; i++ {
				xi := []float64{float64(i) / float64(n), float64(j) / float64(n)}
				p, v, defined := b.evaluate(field.AtElementXi(e, xi, b.time))
				if !defined {
					ok = false
					break
				}
				grid[j*(n+1)+i], values[j*(n+1)+i] = p, v
			}
		}
		if !ok {
			continue
		}
		var vs []r3.Vec
		var data []float64
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				a, c := j*(n+1)+i, (j+1)*(n+1)+i
				for _, k := range []int{a, a + 1, c + 1, a, c + 1, c} {
					vs = append(vs, grid[k])
					data = append(data, values[k])
				}
			}
		}
		b.emit(Triangles, e.ID, vs, data)
	}
}
