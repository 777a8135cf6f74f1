package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/chazu/cmgui/internal/config"
	"github.com/chazu/cmgui/internal/logging"
)

const squareScript = "../../examples/square.cmgui"

func loadSquare(t *testing.T, cfg config.Config) (*App, EvalResult) {
	t.Helper()
	source, err := os.ReadFile(squareScript)
	if err != nil {
		t.Fatalf("failed to read %s: %v", squareScript, err)
	}
	app := NewApp(cfg)
	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error: %s", e)
		}
		t.FailNow()
	}
	return app, result
}

// TestE2ESquareExample runs the example script through the same path the
// run command takes.
func TestE2ESquareExample(t *testing.T) {
	_, result := loadSquare(t, config.Default())

	want := map[string]string{
		"coordinates": "finite_element",
		"half":        "scale",
		"distance":    "magnitude",
	}
	if len(result.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %d: %+v", len(want), len(result.Fields), result.Fields)
	}
	for _, f := range result.Fields {
		typ, ok := want[f.Name]
		if !ok {
			t.Errorf("unexpected field %q", f.Name)
			continue
		}
		if f.Type != typ {
			t.Errorf("field %q: type %q, want %q", f.Name, f.Type, typ)
		}
		if !f.Managed {
			t.Errorf("field %q should be managed", f.Name)
		}
		if !strings.HasPrefix(f.Command, "("+typ) {
			t.Errorf("field %q: command %q", f.Name, f.Command)
		}
	}
}

func TestE2EValidModuleHasNoFindings(t *testing.T) {
	_, result := loadSquare(t, config.Default())
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestE2EEmptySource(t *testing.T) {
	result := NewApp(config.Default()).Evaluate("")
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if result.Fields == nil || result.Errors == nil || result.Warnings == nil {
		t.Error("result slices should be non-nil")
	}
	if result.Module == nil {
		t.Error("expected a module")
	}
}

func TestE2EErrorKeepsEarlierFields(t *testing.T) {
	source := `(define_field "one" (constant :values [1]))
(define_field "two" (magnitude :field "missing"))`
	result := NewApp(config.Default()).Evaluate(source)
	if len(result.Errors) == 0 {
		t.Fatal("expected an eval error")
	}
	if !strings.Contains(result.Errors[0].Message, "missing") {
		t.Errorf("error %q should name the missing field", result.Errors[0].Message)
	}
	if len(result.Fields) != 1 || result.Fields[0].Name != "one" {
		t.Errorf("fields = %+v, want only \"one\"", result.Fields)
	}
}

func TestE2ESyntaxError(t *testing.T) {
	result := NewApp(config.Default()).Evaluate("(node 1 2)\n(element 1 :nodes [1 2]")
	if len(result.Errors) == 0 {
		t.Fatal("expected an eval error for unmatched parens")
	}
	if result.Errors[0].Message == "" {
		t.Error("syntax error should have a message")
	}
}

func TestEvaluateField(t *testing.T) {
	app, result := loadSquare(t, config.Default())
	tests := []struct {
		name  string
		field string
		q     Query
		want  string
	}{
		{"element corner", "half", Query{Element: 1, Xi: []float64{1, 1}}, "1 0.5 0"},
		{"element centre", "coordinates", Query{Element: 1, Xi: []float64{0.5, 0.5}}, "1 0.5 0"},
		{"node", "distance", Query{Node: 2}, "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := app.EvaluateField(result.Module, tt.field, tt.q)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluateFieldErrors(t *testing.T) {
	app, result := loadSquare(t, config.Default())
	tests := []struct {
		name  string
		field string
		q     Query
	}{
		{"unknown field", "nope", Query{Node: 1}},
		{"no location", "half", Query{}},
		{"unknown node", "half", Query{Node: 9}},
		{"unknown element", "half", Query{Element: 9, Xi: []float64{0, 0}}},
		{"wrong xi", "half", Query{Element: 1, Xi: []float64{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := app.EvaluateField(result.Module, tt.field, tt.q); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPickCorner(t *testing.T) {
	app, result := loadSquare(t, config.Default())
	res, err := app.Pick(result.Module, PickOptions{Coordinates: "coordinates", Glyph: "point", X: 0, Y: 0, Size: 0.1})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if res.NearestNode != 1 {
		t.Errorf("nearest node = %d, want 1", res.NearestNode)
	}
	if res.NearestElement != 1 {
		t.Errorf("nearest element = %d, want 1", res.NearestElement)
	}
	kinds := map[string]bool{}
	for _, h := range res.Hits {
		kinds[h.Settings] = true
		if len(h.Path) != 1 || h.Path[0] != "coordinates" {
			t.Errorf("hit path = %v", h.Path)
		}
	}
	for _, k := range []string{"node_points", "lines", "surfaces"} {
		if !kinds[k] {
			t.Errorf("no %s hit in %+v", k, res.Hits)
		}
	}
	if res.BufferSize != 10000 {
		t.Errorf("buffer size = %d, want 10000", res.BufferSize)
	}
}

func TestPickMiss(t *testing.T) {
	app, result := loadSquare(t, config.Default())
	res, err := app.Pick(result.Module, PickOptions{Coordinates: "coordinates", X: 5, Y: 5, Size: 0.1})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if len(res.Hits) != 0 || res.NearestNode != 0 || res.NearestElement != 0 {
		t.Errorf("expected no hits, got %+v", res)
	}
	if res.Hits == nil {
		t.Error("hits should be non-nil")
	}
}

func TestPickSphereGlyph(t *testing.T) {
	cfg := config.Default()
	cfg.Kernel.MeshCells = 8
	app, result := loadSquare(t, cfg)
	res, err := app.Pick(result.Module, PickOptions{Coordinates: "coordinates", Glyph: "sphere", GlyphSize: 0.2, X: 2, Y: 1, Size: 0.05})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if res.NearestNode != 4 {
		t.Errorf("nearest node = %d, want 4", res.NearestNode)
	}
}

func TestPickErrors(t *testing.T) {
	app, result := loadSquare(t, config.Default())
	if _, err := app.Pick(result.Module, PickOptions{Coordinates: "nope", Size: 0.1}); err == nil {
		t.Error("expected an error for an unknown coordinate field")
	}
	if _, err := app.Pick(result.Module, PickOptions{Coordinates: "coordinates", Glyph: "teapot", Size: 0.1}); err == nil {
		t.Error("expected an error for an unknown glyph")
	}
	if _, err := app.Pick(result.Module, PickOptions{Coordinates: "coordinates"}); err == nil {
		t.Error("expected an error for a zero size ray")
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { logging.SetLogger(nil) })
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLIRun(t *testing.T) {
	out, err := runCLI(t, "run", squareScript)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "half\tscale\t3\t") {
		t.Errorf("output missing half:\n%s", out)
	}
}

func TestCLIEval(t *testing.T) {
	out, err := runCLI(t, "eval", squareScript, "half", "--element", "1", "--xi", "1,1")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if strings.TrimSpace(out) != "1 0.5 0" {
		t.Errorf("eval output %q", out)
	}
	if _, err := runCLI(t, "eval", squareScript, "half", "--element", "1", "--xi", "1,x"); err == nil {
		t.Error("expected an error for a bad xi")
	}
}

func TestCLIPick(t *testing.T) {
	out, err := runCLI(t, "--log-level", "debug", "pick", squareScript, "--x", "0", "--y", "0")
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if !strings.Contains(out, "nearest node 1") || !strings.Contains(out, "nearest element 1") {
		t.Errorf("pick output:\n%s", out)
	}
}

func TestCLIConfig(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/cmgui.toml"
	if err := os.WriteFile(path, []byte("[pick]\ninitial_buffer_size = 50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "--config", path, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "initial_buffer_size = 50") {
		t.Errorf("config output:\n%s", out)
	}
	if _, err := runCLI(t, "--config", dir+"/missing.toml", "config"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestCLIMissingScript(t *testing.T) {
	if _, err := runCLI(t, "run", "does-not-exist.cmgui"); err == nil {
		t.Error("expected an error for a missing script")
	}
}
