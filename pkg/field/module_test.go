package field

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/chazu/cmgui/internal/logging"
	"github.com/chazu/cmgui/pkg/mesh"
)

// ---------------------------------------------------------------------------
// Test cores
// ---------------------------------------------------------------------------

// valuesCore returns fixed values that tests can change in place.
type valuesCore struct {
	CoreBase
	values []float64
	evals  int
}

func (c *valuesCore) TypeString() string { return "test_values" }

func (c *valuesCore) Evaluate(_ *Cache, vc *ValueCache) bool {
	c.evals++
	copy(vc.Values, c.values)
	vc.ZeroDerivatives()
	return true
}

func (c *valuesCore) Compare(o Core) bool {
	oc, ok := o.(*valuesCore)
	return ok && len(oc.values) == len(c.values)
}

func (c *valuesCore) CommandString() string {
	return NewCommand("test_values").Floats("values", c.values).Build()
}

func (c *valuesCore) SetValuesAt(_ *Cache, values []float64) bool {
	copy(c.values, values)
	return true
}

// sumCore adds its sources component-wise and counts evaluations. It is
// undefined at nodes so tests can exercise failure propagation.
type sumCore struct {
	CoreBase
	evals int
}

func (c *sumCore) TypeString() string { return "test_sum" }

func (c *sumCore) Evaluate(cache *Cache, vc *ValueCache) bool {
	c.evals++
	if cache.Location().Kind() == LocationNode {
		return false
	}
	srcs, ok := c.EvaluateSources(cache)
	if !ok {
		return false
	}
	for i := range vc.Values {
		vc.Values[i] = 0
		for _, s := range srcs {
			vc.Values[i] += s.Values[i]
		}
	}
	return true
}

func (c *sumCore) Compare(o Core) bool { _, ok := o.(*sumCore); return ok }

func (c *sumCore) CommandString() string {
	return NewCommand("test_sum").Fields("fields", c.Field().Sources()).Build()
}

// undefinedCore is never defined anywhere.
type undefinedCore struct{ CoreBase }

func (c *undefinedCore) TypeString() string { return "test_undefined" }
func (c *undefinedCore) Evaluate(*Cache, *ValueCache) bool { return false }
func (c *undefinedCore) IsDefinedAt(*Cache) bool { return false }
func (c *undefinedCore) Compare(o Core) bool { _, ok := o.(*undefinedCore); return ok }
func (c *undefinedCore) CommandString() string { return "test_undefined" }

func valuesDef(vs ...float64) Definition {
	return Definition{Core: &valuesCore{values: vs}, NumberOfComponents: len(vs)}
}

func sumDef(n int, srcs ...*Field) Definition {
	return Definition{Core: &sumCore{}, Sources: srcs, NumberOfComponents: n}
}

func testMesh(t *testing.T) (*mesh.Mesh, *mesh.Element) {
	t.Helper()
	m := mesh.New()
	for id := 1; id <= 4; id++ {
		if _, err := m.AddNode(id); err != nil {
			t.Fatal(err)
		}
	}
	e, err := m.AddElement(7, mesh.ShapeSquare, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	return m, e
}

func mustCreate(t *testing.T, m *Module, name string, def Definition) *Field {
	t.Helper()
	f, err := m.Create(name, def)
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	return f
}

// ---------------------------------------------------------------------------
// Cache behaviour
// ---------------------------------------------------------------------------

func TestEvaluateCachesPerLocation(t *testing.T) {
	msh, e := testMesh(t)
	m := NewModule(msh)
	a := mustCreate(t, m, "a", valuesDef(1, 2))
	sum := mustCreate(t, m, "sum", sumDef(2, a, a))
	core := sum.Core().(*sumCore)

	c := m.NewCache()
	c.SetElementXi(e, []float64{0.5, 0.5})
	out := make([]float64, 2)
	if !m.GetValues(sum, c, out) {
		t.Fatal("first evaluation failed")
	}
	first := append([]float64(nil), out...)
	if !m.GetValues(sum, c, out) {
		t.Fatal("second evaluation failed")
	}
	if core.evals != 1 {
		t.Errorf("evals = %d after repeat, want 1 (cache hit)", core.evals)
	}
	if out[0] != first[0] || out[1] != first[1] {
		t.Errorf("repeat returned %v, want %v", out, first)
	}
	if out[0] != 2 || out[1] != 4 {
		t.Errorf("values = %v, want [2 4]", out)
	}
}

func TestEvaluateNewLocationOverwrites(t *testing.T) {
	msh, e := testMesh(t)
	m := NewModule(msh)
	a := mustCreate(t, m, "a", valuesDef(1))
	sum := mustCreate(t, m, "sum", sumDef(1, a))
	core := sum.Core().(*sumCore)

	c := m.NewCache()
	out := []float64{0}
	c.SetElementXi(e, []float64{0.1, 0.1})
	m.GetValues(sum, c, out)
	c.SetElementXi(e, []float64{0.9, 0.9})
	m.GetValues(sum, c, out)
	c.SetElementXi(e, []float64{0.1, 0.1})
	m.GetValues(sum, c, out)
	if core.evals != 3 {
		t.Errorf("evals = %d, want 3 (no stale hit after moving back)", core.evals)
	}

	c.SetTime(1)
	m.GetValues(sum, c, out)
	if core.evals != 4 {
		t.Errorf("evals = %d, want 4 after time change", core.evals)
	}
}

func TestEvaluateSeesValueChanges(t *testing.T) {
	msh, e := testMesh(t)
	m := NewModule(msh)
	a := mustCreate(t, m, "a", valuesDef(1))
	sum := mustCreate(t, m, "sum", sumDef(1, a))

	c := m.NewCache()
	c.SetElementXi(e, []float64{0.5, 0.5})
	out := []float64{0}
	m.GetValues(sum, c, out)
	if !m.SetValues(a, c, []float64{10}) {
		t.Fatal("SetValues failed")
	}
	m.GetValues(sum, c, out)
	if out[0] != 10 {
		t.Errorf("after SetValues got %v, want 10", out[0])
	}
}

func TestDerivativeRequestForcesReevaluation(t *testing.T) {
	msh, e := testMesh(t)
	m := NewModule(msh)
	a := mustCreate(t, m, "a", valuesDef(3))
	core := a.Core().(*valuesCore)

	c := m.NewCache()
	c.SetElementXi(e, []float64{0.5, 0.5})
	if _, ok := a.Evaluate(c); !ok {
		t.Fatal("evaluate failed")
	}
	c.RequestDerivatives(true)
	vc, ok := a.Evaluate(c)
	if !ok || core.evals != 2 {
		t.Fatalf("ok=%v evals=%d, want re-evaluation with derivatives", ok, core.evals)
	}
	if !vc.DerivativesValid || len(vc.Derivatives) != 2 {
		t.Errorf("derivatives valid=%v len=%d, want valid with 2", vc.DerivativesValid, len(vc.Derivatives))
	}
	c.RequestDerivatives(false)
	a.Evaluate(c)
	if core.evals != 2 {
		t.Errorf("evals = %d, want hit when derivatives no longer requested", core.evals)
	}
}

func TestUndefinedPropagatesAndKeepsOutput(t *testing.T) {
	msh, _ := testMesh(t)
	m := NewModule(msh)
	a := mustCreate(t, m, "a", valuesDef(1))
	inner := mustCreate(t, m, "inner", sumDef(1, a))
	outer := mustCreate(t, m, "outer", sumDef(1, inner))

	c := m.NewCache()
	c.SetNode(msh.Node(1))
	out := []float64{42}
	if m.GetValues(outer, c, out) {
		t.Fatal("expected undefined at node")
	}
	if out[0] != 42 {
		t.Errorf("output modified on failure: %v", out)
	}
	vc, _ := outer.Evaluate(c)
	if vc.Valid() {
		t.Error("cache marked valid after failure")
	}
}

func TestGetValuesNilHandleKeepsOutput(t *testing.T) {
	m := NewModule(nil)
	out := []float64{1, 2, 3}
	if m.GetValues(nil, m.NewCache(), out) {
		t.Fatal("GetValues(nil) succeeded")
	}
	if out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Errorf("output modified: %v", out)
	}
}

func TestExtraCacheKeepsAmbientCache(t *testing.T) {
	msh, e := testMesh(t)
	m := NewModule(msh)
	a := mustCreate(t, m, "a", valuesDef(5))
	core := a.Core().(*valuesCore)

	c := m.NewCache()
	c.SetElementXi(e, []float64{0.5, 0.5})
	a.Evaluate(c)

	holder := newValueCache(1)
	extra := holder.ExtraCache(c, c.Location().WithTime(9))
	if extra.Parent() != c {
		t.Error("extra cache parent mismatch")
	}
	if vc, ok := a.Evaluate(extra); !ok || vc.Location().Time() != 9 {
		t.Fatalf("extra evaluation: ok=%v", ok)
	}
	a.Evaluate(c)
	if core.evals != 2 {
		t.Errorf("evals = %d, want 2: ambient cache must survive extra evaluation", core.evals)
	}
	if holder.ExtraCache(c, c.Location()) != extra {
		t.Error("extra cache not reused")
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestCreateNames(t *testing.T) {
	m := NewModule(nil)
	mustCreate(t, m, "a", valuesDef(1))
	if _, err := m.Create("a", valuesDef(2)); !errors.Is(err, ErrNameInUse) {
		t.Errorf("duplicate name: err = %v, want ErrNameInUse", err)
	}
	tmp := mustCreate(t, m, "", valuesDef(1))
	if !strings.HasPrefix(tmp.Name(), "temp") {
		t.Errorf("auto name = %q, want temp prefix", tmp.Name())
	}
}

func TestCreateRejectsBadDefinitions(t *testing.T) {
	m := NewModule(nil)
	other := NewModule(nil)
	foreign := mustCreate(t, other, "x", valuesDef(1))

	tests := []struct {
		name string
		def  Definition
	}{
		{"no core", Definition{NumberOfComponents: 1}},
		{"no components", Definition{Core: &valuesCore{}}},
		{"nil source", sumDef(1, nil)},
		{"foreign source", sumDef(1, foreign)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := m.Create("f", tt.def)
			if !errors.Is(err, ErrInvalidArgument) || f != nil {
				t.Errorf("got (%v, %v), want (nil, ErrInvalidArgument)", f, err)
			}
			if m.FindByName("f") != nil {
				t.Error("field partially created")
			}
		})
	}
}

func TestRedefinePreservesIdentity(t *testing.T) {
	m := NewModule(nil)
	a := mustCreate(t, m, "a", valuesDef(1))
	foo := mustCreate(t, m, "foo", valuesDef(2))
	handle := m.Access(foo)

	if err := m.Redefine(foo, sumDef(1, a)); err != nil {
		t.Fatalf("Redefine: %v", err)
	}
	if handle != m.FindByName("foo") || handle.Name() != "foo" {
		t.Error("handle no longer resolves to foo")
	}
	if handle.TypeString() != "test_sum" {
		t.Errorf("type = %q, want test_sum", handle.TypeString())
	}
	if a.AccessCount() != 2 {
		t.Errorf("source access count = %d, want 2", a.AccessCount())
	}
}

func TestRedefineRejectsCycles(t *testing.T) {
	m := NewModule(nil)
	a := mustCreate(t, m, "a", valuesDef(1))
	b := mustCreate(t, m, "b", sumDef(1, a))
	c := mustCreate(t, m, "c", sumDef(1, b))

	tests := []struct {
		name string
		src  *Field
	}{
		{"self", a},
		{"direct", b},
		{"transitive", c},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Redefine(a, sumDef(1, tt.src))
			if !errors.Is(err, ErrCycle) {
				t.Fatalf("err = %v, want ErrCycle", err)
			}
			if a.TypeString() != "test_values" || len(a.Sources()) != 0 {
				t.Error("a changed after rejected redefinition")
			}
		})
	}
	if errs := Validate(m); len(errs) != 0 {
		t.Errorf("Validate: %v", errs)
	}
}

func TestRejectionsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { logging.SetLogger(nil) })

	m := NewModule(nil)
	a := mustCreate(t, m, "a", valuesDef(1))
	b := mustCreate(t, m, "b", sumDef(1, a))
	if _, err := m.Create("a", valuesDef(2)); !errors.Is(err, ErrNameInUse) {
		t.Fatalf("duplicate name: err = %v, want ErrNameInUse", err)
	}
	if !strings.Contains(buf.String(), "field create rejected") {
		t.Errorf("name collision not logged: %q", buf.String())
	}
	buf.Reset()
	if err := m.Redefine(a, sumDef(1, b)); !errors.Is(err, ErrCycle) {
		t.Fatalf("cycle: err = %v, want ErrCycle", err)
	}
	if !strings.Contains(buf.String(), "field redefine rejected") {
		t.Errorf("cycle not logged: %q", buf.String())
	}
}

// sharedChain builds depth fields, each summing the previous one twice.
func sharedChain(t *testing.T, m *Module, depth int) (*Field, *Field) {
	t.Helper()
	base := mustCreate(t, m, "base", valuesDef(1))
	prev := base
	for i := 0; i < depth; i++ {
		prev = mustCreate(t, m, "", sumDef(1, prev, prev))
	}
	return base, prev
}

func TestSharedSourcesWalkedOnce(t *testing.T) {
	msh, e := testMesh(t)
	m := NewModule(msh)
	base, top := sharedChain(t, m, 48)
	other := mustCreate(t, m, "other", valuesDef(1))

	if !top.DependsOn(base) {
		t.Error("top should depend on base")
	}
	if top.DependsOn(other) {
		t.Error("top should not depend on other")
	}
	if top.HasMultipleTimes() {
		t.Error("chain has no time-varying field")
	}
	c := m.NewCache()
	c.SetElementXi(e, []float64{0.5, 0.5})
	if !top.IsDefinedAt(c) {
		t.Error("chain should be defined inside the element")
	}
	if err := m.Redefine(base, sumDef(1, top)); !errors.Is(err, ErrCycle) {
		t.Errorf("err = %v, want ErrCycle", err)
	}
	if !m.SetValues(base, c, []float64{2}) {
		t.Fatal("SetValues failed")
	}
	if got := len(m.dependants(base)); got != 48 {
		t.Errorf("dependants = %d, want 48", got)
	}
}

func TestIsDefinedAtFollowsGeneration(t *testing.T) {
	msh, e := testMesh(t)
	m := NewModule(msh)
	a := mustCreate(t, m, "a", valuesDef(1))
	sum := mustCreate(t, m, "sum", sumDef(1, a))
	c := m.NewCache()
	c.SetElementXi(e, []float64{0.5, 0.5})
	if !sum.IsDefinedAt(c) {
		t.Fatal("sum should be defined")
	}
	if err := m.Redefine(a, Definition{Core: &undefinedCore{}, NumberOfComponents: 1}); err != nil {
		t.Fatalf("Redefine: %v", err)
	}
	if sum.IsDefinedAt(c) {
		t.Error("stale IsDefinedAt answer after redefinition")
	}
}

func TestRedefineReadOnlyAndComponents(t *testing.T) {
	m := NewModule(nil)
	a := mustCreate(t, m, "a", valuesDef(1, 2))
	mustCreate(t, m, "b", sumDef(2, a))

	if err := m.Redefine(a, valuesDef(1)); !errors.Is(err, ErrComponentMismatch) {
		t.Errorf("err = %v, want ErrComponentMismatch", err)
	}
	m.SetReadOnly(a, true)
	if err := m.Redefine(a, valuesDef(3, 4)); !errors.Is(err, ErrReadOnly) {
		t.Errorf("err = %v, want ErrReadOnly", err)
	}
}

func TestDeaccessReleases(t *testing.T) {
	m := NewModule(nil)
	a := mustCreate(t, m, "a", valuesDef(1))
	b := mustCreate(t, m, "b", sumDef(1, a))

	m.Deaccess(&a)
	if a != nil {
		t.Fatal("Deaccess did not nil the handle")
	}
	if m.FindByName("a") == nil {
		t.Fatal("a removed while b uses it")
	}
	m.Deaccess(&b)
	if m.FindByName("b") != nil || m.FindByName("a") != nil {
		t.Errorf("fields left after last release: %v", m.Fields())
	}
}

func TestManagedFieldsSurviveRelease(t *testing.T) {
	m := NewModule(nil)
	a := mustCreate(t, m, "a", valuesDef(1))
	m.SetManaged(a, true)
	keep := a
	m.Deaccess(&a)
	if m.FindByName("a") == nil {
		t.Fatal("managed field removed")
	}
	m.SetManaged(keep, false)
	if m.FindByName("a") != nil {
		t.Error("unmanaged field with no holders kept")
	}
}

func TestRename(t *testing.T) {
	m := NewModule(nil)
	a := mustCreate(t, m, "a", valuesDef(1))
	mustCreate(t, m, "b", valuesDef(1))
	if err := m.Rename(a, "b"); !errors.Is(err, ErrNameInUse) {
		t.Errorf("err = %v, want ErrNameInUse", err)
	}
	if err := m.Rename(a, "z"); err != nil {
		t.Fatal(err)
	}
	if m.FindByName("z") != a || m.FindByName("a") != nil {
		t.Error("rename not indexed")
	}
}

// ---------------------------------------------------------------------------
// Change notification
// ---------------------------------------------------------------------------

func TestBeginEndChangeBatches(t *testing.T) {
	m := NewModule(nil)
	var got []*Changes
	id := m.AddCallback(func(c *Changes) { got = append(got, c) })

	m.BeginChange()
	m.BeginChange()
	a := mustCreate(t, m, "a", valuesDef(1))
	b := mustCreate(t, m, "b", sumDef(1, a))
	m.EndChange()
	if len(got) != 0 {
		t.Fatalf("notified at depth %d", m.ChangeDepth())
	}
	m.EndChange()
	if len(got) != 1 {
		t.Fatalf("callbacks = %d, want 1", len(got))
	}
	if got[0].Flags(a)&ChangeAdd == 0 || got[0].Flags(b)&ChangeAdd == 0 {
		t.Error("batch missing additions")
	}

	c := m.NewCache()
	m.SetValues(a, c, []float64{3})
	if len(got) != 2 || got[1].Flags(b) != ChangeRelated {
		t.Errorf("dependant flags = %v, want ChangeRelated", got[len(got)-1].Flags(b))
	}

	m.RemoveCallback(id)
	m.SetValues(a, c, []float64{4})
	if len(got) != 2 {
		t.Error("callback fired after removal")
	}
}

func TestUnbalancedEndChangeIgnored(t *testing.T) {
	m := NewModule(nil)
	m.EndChange()
	if m.ChangeDepth() != 0 {
		t.Errorf("depth = %d, want 0", m.ChangeDepth())
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func TestCommandScriptOrdersSources(t *testing.T) {
	m := NewModule(nil)
	z := mustCreate(t, m, "z", valuesDef(1))
	mustCreate(t, m, "a", sumDef(1, z))
	m.SetCoordinateSystem(z, CoordinateSystem{Type: ProlateSpheroidal, Focus: 2})

	script := m.CommandScript()
	iz := strings.Index(script, `(define_field "z"`)
	ia := strings.Index(script, `(define_field "a"`)
	if iz < 0 || ia < 0 || iz > ia {
		t.Fatalf("sources not first:\n%s", script)
	}
	if !strings.Contains(script, `:coordinate_system "prolate_spheroidal" :focus 2`) {
		t.Errorf("coordinate system missing:\n%s", script)
	}
	if !strings.Contains(script, `(test_sum :fields ["z"])`) {
		t.Errorf("field list missing:\n%s", script)
	}
}

func TestRegistryAndArgs(t *testing.T) {
	m := NewModule(nil)
	a := mustCreate(t, m, "a", valuesDef(1))
	err := m.Registry().Register("test_sum", func(m *Module, args *Args) (Definition, error) {
		srcs, err := args.Fields("fields")
		if err != nil {
			return Definition{}, err
		}
		return sumDef(1, srcs...), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Registry().Register("test_sum", nil); err == nil {
		t.Error("duplicate registration accepted")
	}

	def, err := m.Parse("test_sum", NewArgs(m, map[string]any{"fields": []any{"a"}}))
	if err != nil {
		t.Fatal(err)
	}
	if len(def.Sources) != 1 || def.Sources[0] != a {
		t.Errorf("sources = %v", def.Sources)
	}

	_, err = m.Parse("test_sum", NewArgs(m, map[string]any{"fields": "a", "bogus": 1.0}))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unused arg: err = %v", err)
	}
	_, err = m.Parse("nope", NewArgs(m, nil))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown type: err = %v", err)
	}
}

func TestArgsAccessors(t *testing.T) {
	args := NewArgs(NewModule(nil), map[string]any{
		"n":    3.0,
		"xs":   []any{1.0, 2.5},
		"name": "x",
		"flag": true,
	})
	if n, err := args.Int("n"); err != nil || n != 3 {
		t.Errorf("Int = %d, %v", n, err)
	}
	if xs, err := args.Floats("xs"); err != nil || len(xs) != 2 || xs[1] != 2.5 {
		t.Errorf("Floats = %v, %v", xs, err)
	}
	if _, err := args.Ints("xs"); err == nil {
		t.Error("Ints accepted 2.5")
	}
	if s, err := args.String("name"); err != nil || s != "x" {
		t.Errorf("String = %q, %v", s, err)
	}
	if b, err := args.Bool("flag"); err != nil || !b {
		t.Errorf("Bool = %v, %v", b, err)
	}
	if _, err := args.Float("missing"); err == nil {
		t.Error("missing key accepted")
	}
	if err := args.Check(); err != nil {
		t.Errorf("Check: %v", err)
	}
}
