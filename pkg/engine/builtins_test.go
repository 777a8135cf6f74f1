package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/cmgui/pkg/field"
	"github.com/chazu/cmgui/pkg/fieldtypes"
	"github.com/chazu/cmgui/pkg/mesh"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(constant :values [1 2])`,
			expect: `(constant "__kw_values" [1 2])`,
		},
		{
			name:   "multiple keywords",
			input:  `(time_lookup :field "s" :time_field "t")`,
			expect: `(time_lookup "__kw_field" "s" "__kw_time_field" "t")`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(time-lookup :time-field ref)`,
			expect: `(time_lookup "__kw_time-field" ref)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative number preserved",
			input:  `[1 -0.5]`,
			expect: `[1 -0.5]`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func mustEvaluate(t *testing.T, m *field.Module, source string) {
	t.Helper()
	evalErrs, err := NewEngine().Evaluate(source, m)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
}

// ---------------------------------------------------------------------------
// Mesh builtins
// ---------------------------------------------------------------------------

const squareSource = `
(node 1 2 3 4)
(element 7 :shape "square" :nodes [1 2 3 4])
(face 1 :element 7 :index 2)
`

func TestMeshBuiltins(t *testing.T) {
	m := newModule(t)
	mustEvaluate(t, m, squareSource)

	msh := m.Mesh()
	if len(msh.Nodes()) != 4 {
		t.Errorf("nodes = %d, want 4", len(msh.Nodes()))
	}
	e := msh.Element(7)
	if e == nil || e.Shape != mesh.ShapeSquare {
		t.Fatalf("element 7 = %v", e)
	}
	face := msh.Face(1)
	if face == nil {
		t.Fatal("face 1 missing")
	}
	if parent, _, ok := face.Parent(); !ok || parent != e {
		t.Error("face parent mismatch")
	}
}

func TestMeshBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"duplicate node", `(node 1 1)`},
		{"missing node", `(element 1 :nodes [1 2 3 4])`},
		{"bad shape", `(node 1 2) (element 1 :shape "blob" :nodes [1 2])`},
		{"face without element", `(face 1 :element 9 :index 0)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalErrs, err := NewEngine().Evaluate(tt.source, newModule(t))
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected eval error")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Field builtins
// ---------------------------------------------------------------------------

func TestDefineField(t *testing.T) {
	m := newModule(t)
	mustEvaluate(t, m, squareSource+`
(define_field "coordinates" (finite_element :components 2))
(node_values "coordinates" :node 1 :values [0 0])
(node_values "coordinates" :node 2 :values [2 0])
(node_values "coordinates" :node 3 :values [0 1])
(node_values "coordinates" :node 4 :values [2 1])
(define_field "half" (scale :field (get_field "coordinates") :values [0.5 0.5]))
`)
	half := m.FindByName("half")
	if fieldtypes.AsScale(half) == nil {
		t.Fatalf("half is %q, want scale", half.TypeString())
	}
	if !half.Managed() {
		t.Error("defined fields should be managed")
	}

	c := m.NewCache()
	c.SetElementXi(m.Mesh().Element(7), []float64{1, 1})
	out := make([]float64, 2)
	if !m.GetValues(half, c, out) {
		t.Fatal("half undefined")
	}
	if out[0] != 1 || out[1] != 0.5 {
		t.Errorf("half = %v, want [1 0.5]", out)
	}
}

func TestDefineFieldRedefinesInPlace(t *testing.T) {
	m := newModule(t)
	mustEvaluate(t, m, `(define_field "foo" (constant :values [1]))`)
	handle := m.Access(m.FindByName("foo"))

	mustEvaluate(t, m, `(define_field "foo" (time_value))`)
	if m.FindByName("foo") != handle {
		t.Fatal("redefinition replaced the field")
	}
	if fieldtypes.AsConstant(handle) != nil || fieldtypes.AsTimeValue(handle) == nil {
		t.Errorf("type after redefinition = %q", handle.TypeString())
	}
}

func TestDefineFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unknown source", `(define_field "x" (magnitude :field "nope"))`, "nope"},
		{"bad arguments", `(define_field "x" (constant :values [1] :extra 2))`, "extra"},
		{"not a definition", `(define_field "x" 3)`, "field type"},
		{"bad coordinate system", `(define_field "x" (xi) :coordinate_system "wobbly")`, "wobbly"},
		{"cycle", `(define_field "a" (constant :values [1]))
(define_field "b" (magnitude :field "a"))
(define_field "a" (magnitude :field "b"))`, "cycle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModule(t)
			evalErrs, err := NewEngine().Evaluate(tt.source, m)
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message %q does not mention %q", evalErrs[0].Message, tt.want)
			}
			if m.FindByName("x") != nil {
				t.Error("failed definition left a field behind")
			}
		})
	}
}

func TestNodeValuesRequiresFiniteElement(t *testing.T) {
	m := newModule(t)
	evalErrs, err := NewEngine().Evaluate(squareSource+`
(define_field "c" (constant :values [1]))
(node_values "c" :node 1 :values [2])`, m)
	if err != nil {
		t.Fatal(err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected eval error")
	}
}

// ---------------------------------------------------------------------------
// Command round trip
// ---------------------------------------------------------------------------

// buildModule defines one field of each kind through the Go API.
func buildModule(t *testing.T, msh *mesh.Mesh) *field.Module {
	t.Helper()
	m := field.NewModule(msh)
	if err := fieldtypes.RegisterAll(m.Registry()); err != nil {
		t.Fatal(err)
	}
	check := func(f *field.Field, err error) *field.Field {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		m.SetManaged(f, true)
		return f
	}
	coords := check(fieldtypes.CreateFiniteElement(m, "coordinates", 3, 0, 1.5))
	for _, n := range msh.Nodes() {
		x := float64(n.ID)
		fieldtypes.SetNodeValues(coords, n, 0, []float64{x, x * x, -x})
		fieldtypes.SetNodeValues(coords, n, 1.5, []float64{x + 1, 0.25, math.Pi})
	}
	fibre := check(fieldtypes.CreateConstant(m, "fibre", []float64{0.3, -0.1}))
	tf := check(fieldtypes.CreateConstant(m, "t", []float64{0.75}))
	check(fieldtypes.CreateTimeLookup(m, "later", coords, tf))
	check(fieldtypes.CreateFibreAxes(m, "axes", fibre, coords))
	check(fieldtypes.CreateAdd(m, "sum", coords, coords, 0.5, -2))
	check(fieldtypes.CreateComponent(m, "y", coords, 2))
	check(fieldtypes.CreateComposite(m, "cat", fibre, tf))
	check(fieldtypes.CreateCoordinateTransformation(m, "polar", coords,
		field.CoordinateSystem{Type: field.ProlateSpheroidal, Focus: 1.25}))
	check(fieldtypes.CreateXi(m, "xi"))
	check(fieldtypes.CreateSumComponents(m, "total", coords, []float64{1, 2, 3}))
	return m
}

func TestCommandScriptRoundTrip(t *testing.T) {
	msh := mesh.New()
	for id := 1; id <= 4; id++ {
		msh.AddNode(id)
	}
	e, err := msh.AddElement(7, mesh.ShapeSquare, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	original := buildModule(t, msh)
	script := original.CommandScript()

	replayed := field.NewModule(msh)
	if err := fieldtypes.RegisterAll(replayed.Registry()); err != nil {
		t.Fatal(err)
	}
	mustEvaluate(t, replayed, script)

	if got, want := len(replayed.Fields()), len(original.Fields()); got != want {
		t.Fatalf("replayed %d fields, want %d\n%s", got, want, script)
	}
	for _, f := range original.Fields() {
		g := replayed.FindByName(f.Name())
		if g == nil {
			t.Errorf("%s missing after replay", f.Name())
			continue
		}
		if !f.Core().Compare(g.Core()) {
			t.Errorf("%s: replayed core differs", f.Name())
		}
		if f.CoordinateSystem() != g.CoordinateSystem() {
			t.Errorf("%s: coordinate system %v, want %v", f.Name(), g.CoordinateSystem(), f.CoordinateSystem())
		}
		if f.CommandString() != g.CommandString() {
			t.Errorf("%s: command %q, want %q", f.Name(), g.CommandString(), f.CommandString())
		}

		co, cr := original.NewCache(), replayed.NewCache()
		co.SetLocation(field.AtElementXi(e, []float64{0.2, 0.7}, 0.5))
		cr.SetLocation(co.Location())
		want := make([]float64, f.NumberOfComponents())
		got := make([]float64, g.NumberOfComponents())
		okWant := original.GetValues(f, co, want)
		okGot := replayed.GetValues(g, cr, got)
		if okWant != okGot {
			t.Errorf("%s: defined %v after replay, want %v", f.Name(), okGot, okWant)
			continue
		}
		for i := range want {
			if want[i] != got[i] {
				t.Errorf("%s: values %v, want %v", f.Name(), got, want)
				break
			}
		}
	}
}
