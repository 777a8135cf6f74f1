package main

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cmgui/internal/config"
	"github.com/chazu/cmgui/internal/logging"
	"github.com/chazu/cmgui/pkg/engine"
	"github.com/chazu/cmgui/pkg/field"
	"github.com/chazu/cmgui/pkg/fieldtypes"
	"github.com/chazu/cmgui/pkg/graphics"
	"github.com/chazu/cmgui/pkg/kernel"
	"github.com/chazu/cmgui/pkg/kernel/sdfx"
	"github.com/chazu/cmgui/pkg/pick"
	"github.com/chazu/cmgui/pkg/scene"
)

// pickDepth is how far above and below z=0 a pick ray reaches.
const pickDepth = 1e4

// App ties the script engine, glyph kernel and picker together for the
// command line.
type App struct {
	cfg    config.Config
	engine *engine.Engine
	kernel kernel.Kernel
	picker *pick.Picker
}

// FieldData describes one defined field.
type FieldData struct {
	Name       string
	Type       string
	Components int
	Managed    bool
	Command    string
}

// EvalErrorData is a script error with its position.
type EvalErrorData struct {
	Line    int
	Col     int
	Message string
}

func (e EvalErrorData) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalResult is the outcome of replaying a script. Warnings hold advisory
// module consistency findings.
type EvalResult struct {
	Module   *field.Module
	Fields   []FieldData
	Errors   []EvalErrorData
	Warnings []EvalErrorData
}

// NewApp creates an App from cfg.
func NewApp(cfg config.Config) *App {
	return &App{
		cfg:    cfg,
		engine: engine.NewEngine(),
		kernel: sdfx.New(cfg.Kernel.MeshCells),
		picker: pick.NewPicker(cfg.Pick),
	}
}

// Evaluate replays source into a fresh module. Fields defined before a
// failing command are still listed.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Fields:   []FieldData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	m := field.NewModule(nil)
	if err := fieldtypes.RegisterAll(m.Registry()); err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	result.Module = m

	evalErrs, err := a.engine.Evaluate(source, m)
	if err != nil {
		logging.Logger().Error("evaluate", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}

	for _, v := range field.Validate(m) {
		e := EvalErrorData{Message: v.Error()}
		if v.Severity == field.SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}

	for _, f := range m.Fields() {
		result.Fields = append(result.Fields, FieldData{
			Name:       f.Name(),
			Type:       f.TypeString(),
			Components: f.NumberOfComponents(),
			Managed:    f.Managed(),
			Command:    f.CommandString(),
		})
	}
	return result
}

// Query names where to evaluate a field: a node, or an element and xi.
type Query struct {
	Node    int
	Element int
	Xi      []float64
	Time    float64
}

// EvaluateField formats the values of the named field at q.
func (a *App) EvaluateField(m *field.Module, name string, q Query) (string, error) {
	f := m.FindByName(name)
	if f == nil {
		return "", fmt.Errorf("no field named %q", name)
	}
	c := m.NewCache()
	switch {
	case q.Element != 0:
		e := m.Mesh().Element(q.Element)
		if e == nil {
			return "", fmt.Errorf("no element %d", q.Element)
		}
		if len(q.Xi) != e.Dimension() {
			return "", fmt.Errorf("element %d needs %d xi values, got %d", q.Element, e.Dimension(), len(q.Xi))
		}
		c.SetLocation(field.AtElementXi(e, q.Xi, q.Time))
	case q.Node != 0:
		n := m.Mesh().Node(q.Node)
		if n == nil {
			return "", fmt.Errorf("no node %d", q.Node)
		}
		c.SetLocation(field.AtNode(n, q.Time))
	default:
		return "", errors.New("a node or an element location is required")
	}
	s, ok := m.EvaluateString(f, c)
	if !ok {
		return "", fmt.Errorf("field %q is not defined at %s", name, c.Location())
	}
	return s, nil
}

// PickHit is one picked object in printable form.
type PickHit struct {
	Path       []string
	Settings   string
	ID         int
	Nearest    uint32
	Farthest   uint32
	Subobjects []int
}

// PickResult lists the hits of a pick and the nearest node and element,
// zero when none was hit.
type PickResult struct {
	Hits           []PickHit
	NearestNode    int
	NearestElement int
	BufferSize     int
}

// PickOptions configures the scene built for a pick.
type PickOptions struct {
	Coordinates string
	Glyph       string
	GlyphSize   float64
	X, Y        float64
	Size        float64
}

// Pick draws m's mesh as node points and element lines through the named
// coordinate field and picks along a ray down -z through (X, Y).
func (a *App) Pick(m *field.Module, opts PickOptions) (PickResult, error) {
	result := PickResult{Hits: []PickHit{}}
	coords := m.FindByName(opts.Coordinates)
	if coords == nil {
		return result, fmt.Errorf("no coordinate field named %q", opts.Coordinates)
	}

	ctx := scene.NewContext()
	if err := ctx.Materials.Add(graphics.NewMaterial("default")); err != nil {
		return result, err
	}
	group, err := graphics.NewElementGroup(opts.Coordinates, m, graphics.NewGlyphSet(a.kernel), a.cfg.Graphics.LineDivisions)
	if err != nil {
		return result, err
	}
	defer group.Destroy()
	for _, st := range []graphics.Settings{
		{Kind: graphics.NodePoints, Glyph: opts.Glyph, GlyphSize: opts.GlyphSize},
		{Kind: graphics.ElementLines},
		{Kind: graphics.ElementSurfaces, Divisions: a.cfg.Graphics.SurfaceDivisions},
	} {
		st.Coordinate = coords
		st.Material = "default"
		st.Visible = true
		if _, err := group.AddSettings(st); err != nil {
			return result, err
		}
	}

	s, err := scene.New(ctx, "default")
	if err != nil {
		return result, err
	}
	defer s.Destroy()
	if _, err := s.AddElementGroup(group.Name(), group, 0); err != nil {
		return result, err
	}

	ray, err := pick.Ray(r3.Vec{X: opts.X, Y: opts.Y, Z: pickDepth}, r3.Vec{Z: -1}, opts.Size/2, 2*pickDepth)
	if err != nil {
		return result, err
	}
	hits, err := a.picker.Pick(s, ray)
	if err != nil {
		return result, err
	}
	result.BufferSize = a.picker.BufferSize()

	for _, h := range hits {
		ph := PickHit{Nearest: h.Nearest, Farthest: h.Farthest, Subobjects: h.Subobjects}
		for _, o := range h.Path {
			ph.Path = append(ph.Path, o.Name())
		}
		if len(h.Subobjects) == 2 {
			if st := group.SettingsAt(h.Subobjects[0]); st != nil {
				ph.Settings = st.Kind.String()
			}
			ph.ID = h.Subobjects[1]
		}
		result.Hits = append(result.Hits, ph)
	}
	if n, ok := pick.NearestNode(hits); ok {
		result.NearestNode = n.Node.ID
	}
	if e, ok := pick.NearestElement(hits); ok {
		result.NearestElement = e.Element.ID
	}
	return result, nil
}
