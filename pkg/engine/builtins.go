package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/cmgui/pkg/field"
	"github.com/chazu/cmgui/pkg/fieldtypes"
	"github.com/chazu/cmgui/pkg/mesh"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source before passing it to zygomys.
// It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: time-lookup -> time_lookup
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpField wraps a field so it can be passed between builtins.
type sexpField struct {
	f *field.Field
}

func (s *sexpField) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(get_field %q)", s.f.Name())
}
func (s *sexpField) Type() *zygo.RegisteredType { return nil }

// sexpDefinition is a field type applied to its arguments, waiting for
// define_field to name it.
type sexpDefinition struct {
	typeName string
	args     map[string]any
}

func (d *sexpDefinition) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s ...)", d.typeName)
}
func (d *sexpDefinition) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return strings.ReplaceAll(str.S[len(kwPrefix):], "-", "_"), true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

var errMissing = errors.New("missing value")

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	if s == nil {
		return 0, errMissing
	}
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if s == nil {
		return 0, errMissing
	}
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toInts(s zygo.Sexp) ([]int, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(items))
	for i, item := range items {
		if out[i], err = toInt(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toFloats(s zygo.Sexp) ([]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = toFloat64(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if s == nil {
		return "", errMissing
	}
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toValue converts a builtin argument to the value types field.Args
// accepts.
func toValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpStr:
		return v.S, nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *sexpField:
		return v.f, nil
	case *zygo.SexpPair, *zygo.SexpArray:
		items, err := sexpListToSlice(s)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			if out[i], err = toValue(item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return []any{}, nil
		}
	}
	return nil, fmt.Errorf("unsupported argument %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the mesh and field builtins into a zygomys
// environment. Source must be preprocessed with preprocessSource() so that
// :keyword tokens arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, m *field.Module) {
	msh := m.Mesh()

	// -----------------------------------------------------------------------
	// (node 1 2 3 4)
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("node requires at least one id")
		}
		for _, a := range args {
			id, err := toInt(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("node: %w", err)
			}
			if _, err := msh.AddNode(id); err != nil {
				return zygo.SexpNull, err
			}
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (element 7 :shape "square" :nodes [1 2 3 4])
	// -----------------------------------------------------------------------
	env.AddFunction("element", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("element requires an id")
		}
		id, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("element: id: %w", err)
		}
		shapeName := "square"
		if v, ok := pa.kw["shape"]; ok {
			if shapeName, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("element: shape: %w", err)
			}
		}
		shape, ok := mesh.ParseShape(shapeName)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("element: unknown shape %q", shapeName)
		}
		nodes, err := toInts(pa.kw["nodes"])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("element: nodes: %w", err)
		}
		if _, err := msh.AddElement(id, shape, nodes); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (face 1 :element 7 :index 2)
	// -----------------------------------------------------------------------
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("face requires an id")
		}
		id, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: id: %w", err)
		}
		parentID, err := toInt(pa.kw["element"])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: element: %w", err)
		}
		index, err := toInt(pa.kw["index"])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: index: %w", err)
		}
		parent := msh.Element(parentID)
		if parent == nil {
			return zygo.SexpNull, fmt.Errorf("face: no element %d", parentID)
		}
		if _, err := msh.AddFace(id, parent, index); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (get_field "name")
	// -----------------------------------------------------------------------
	env.AddFunction("get_field", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("get_field requires a name argument")
		}
		fieldName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("get_field: name: %w", err)
		}
		f := m.FindByName(fieldName)
		if f == nil {
			return zygo.SexpNull, fmt.Errorf("get_field: no field named %q", fieldName)
		}
		return &sexpField{f: f}, nil
	})

	// -----------------------------------------------------------------------
	// One builtin per field type: (time_lookup :field "S" :time_field "T")
	// -----------------------------------------------------------------------
	for _, typeName := range m.Registry().Types() {
		env.AddFunction(typeName, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) > 0 {
				return zygo.SexpNull, fmt.Errorf("%s: unexpected positional argument %s",
					typeName, pa.positional[0].SexpString(nil))
			}
			values := make(map[string]any, len(pa.kw))
			for k, v := range pa.kw {
				val, err := toValue(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %s: %w", typeName, k, err)
				}
				values[k] = val
			}
			return &sexpDefinition{typeName: typeName, args: values}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (define_field "name" (constant :values [1 2]) :coordinate_system "rectangular_cartesian")
	// -----------------------------------------------------------------------
	env.AddFunction("define_field", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("define_field requires a name and a field type expression")
		}
		fieldName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("define_field: name: %w", err)
		}
		pending, ok := pa.positional[1].(*sexpDefinition)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("define_field: expected field type expression, got %T", pa.positional[1])
		}
		def, err := m.Parse(pending.typeName, field.NewArgs(m, pending.args))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("define_field %q: %w", fieldName, err)
		}
		if v, ok := pa.kw["coordinate_system"]; ok {
			csName, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("define_field: coordinate_system: %w", err)
			}
			if def.CoordinateSystem.Type, err = field.ParseCoordinateSystemType(csName); err != nil {
				return zygo.SexpNull, err
			}
		}
		if v, ok := pa.kw["focus"]; ok {
			if def.CoordinateSystem.Focus, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("define_field: focus: %w", err)
			}
		}

		f, err := defineField(m, fieldName, def)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("define_field %q: %w", fieldName, err)
		}
		return &sexpField{f: f}, nil
	})

	// -----------------------------------------------------------------------
	// (node_values "coordinates" :node 1 :time 0 :values [0 0 0])
	// -----------------------------------------------------------------------
	env.AddFunction("node_values", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("node_values requires a field name")
		}
		fieldName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node_values: name: %w", err)
		}
		f := m.FindByName(fieldName)
		if fieldtypes.AsFiniteElement(f) == nil {
			return zygo.SexpNull, fmt.Errorf("node_values: %q is not a finite_element field", fieldName)
		}
		id, err := toInt(pa.kw["node"])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node_values: node: %w", err)
		}
		t := 0.0
		if v, ok := pa.kw["time"]; ok {
			if t, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("node_values: time: %w", err)
			}
		}
		values, err := toFloats(pa.kw["values"])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node_values: values: %w", err)
		}
		if len(values) != f.NumberOfComponents() {
			return zygo.SexpNull, fmt.Errorf("node_values: %q needs %d values, got %d",
				fieldName, f.NumberOfComponents(), len(values))
		}
		if !fieldtypes.SetNodeValues(f, msh.Node(id), t, values) {
			return zygo.SexpNull, fmt.Errorf("node_values: cannot set node %d of %q at time %g", id, fieldName, t)
		}
		return zygo.SexpNull, nil
	})
}

// defineField creates a managed field, or redefines an existing one in
// place so that handles held elsewhere stay valid.
func defineField(m *field.Module, name string, def field.Definition) (*field.Field, error) {
	if f := m.FindByName(name); f != nil {
		if err := m.Redefine(f, def); err != nil {
			return nil, err
		}
		return f, nil
	}
	f, err := m.Create(name, def)
	if err != nil {
		return nil, err
	}
	m.SetManaged(f, true)
	held := f
	m.Deaccess(&held)
	return f, nil
}
