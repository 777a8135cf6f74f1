package field

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Args holds the keyword arguments of a field command. Values are
// float64, string, bool, *Field or []any of those.
type Args struct {
	module *Module
	values map[string]any
	used   map[string]bool
}

// NewArgs wraps keyword values for parsing against m.
func NewArgs(m *Module, values map[string]any) *Args {
	if values == nil {
		values = make(map[string]any)
	}
	return &Args{module: m, values: values, used: make(map[string]bool)}
}

// Has reports whether key was given.
func (a *Args) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

func (a *Args) get(key string) (any, error) {
	v, ok := a.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing :%s", ErrInvalidArgument, key)
	}
	a.used[key] = true
	return v, nil
}

func (a *Args) resolve(key string, v any) (*Field, error) {
	switch x := v.(type) {
	case *Field:
		if x == nil {
			return nil, fmt.Errorf("%w: :%s is nil", ErrInvalidArgument, key)
		}
		return x, nil
	case string:
		f := a.module.FindByName(x)
		if f == nil {
			return nil, fmt.Errorf("%w: :%s field %q", ErrNotFound, key, x)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: :%s must name a field, got %T", ErrInvalidArgument, key, v)
	}
}

// Field returns the field named by key.
func (a *Args) Field(key string) (*Field, error) {
	v, err := a.get(key)
	if err != nil {
		return nil, err
	}
	return a.resolve(key, v)
}

// Fields returns the list of fields named by key. A single name is
// accepted as a list of one.
func (a *Args) Fields(key string) ([]*Field, error) {
	v, err := a.get(key)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	out := make([]*Field, 0, len(list))
	for _, item := range list {
		f, err := a.resolve(key, item)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func toFloat(key string, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("%w: :%s must be a number, got %T", ErrInvalidArgument, key, v)
	}
}

// Float returns the number given for key.
func (a *Args) Float(key string) (float64, error) {
	v, err := a.get(key)
	if err != nil {
		return 0, err
	}
	return toFloat(key, v)
}

// Floats returns the numbers given for key. A single number is accepted as
// a list of one.
func (a *Args) Floats(key string) ([]float64, error) {
	v, err := a.get(key)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	out := make([]float64, len(list))
	for i, item := range list {
		if out[i], err = toFloat(key, item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Int returns the integer given for key.
func (a *Args) Int(key string) (int, error) {
	f, err := a.Float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: :%s must be an integer", ErrInvalidArgument, key)
	}
	return int(f), nil
}

// Ints returns the integers given for key.
func (a *Args) Ints(key string) ([]int, error) {
	fs, err := a.Floats(key)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: :%s must hold integers", ErrInvalidArgument, key)
		}
		out[i] = int(f)
	}
	return out, nil
}

// String returns the string given for key.
func (a *Args) String(key string) (string, error) {
	v, err := a.get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: :%s must be a string, got %T", ErrInvalidArgument, key, v)
	}
	return s, nil
}

// Bool returns the boolean given for key.
func (a *Args) Bool(key string) (bool, error) {
	v, err := a.get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: :%s must be true or false, got %T", ErrInvalidArgument, key, v)
	}
	return b, nil
}

// Check reports keys that no accessor consumed.
func (a *Args) Check() error {
	var unused []string
	for k := range a.values {
		if !a.used[k] {
			unused = append(unused, ":"+k)
		}
	}
	if len(unused) == 0 {
		return nil
	}
	sort.Strings(unused)
	return fmt.Errorf("%w: unexpected %s", ErrInvalidArgument, strings.Join(unused, " "))
}

// Command builds the command string of a core: the type name followed by
// keyword arguments, in the form the script engine replays.
type Command struct {
	b strings.Builder
}

// NewCommand starts a command for typeName.
func NewCommand(typeName string) *Command {
	c := &Command{}
	c.b.WriteString("(")
	c.b.WriteString(typeName)
	return c
}

func (c *Command) key(k string) {
	c.b.WriteString(" :")
	c.b.WriteString(k)
	c.b.WriteString(" ")
}

// Field adds a field reference by name.
func (c *Command) Field(key string, f *Field) *Command {
	c.key(key)
	c.b.WriteString(strconv.Quote(f.Name()))
	return c
}

// Fields adds a list of field references.
func (c *Command) Fields(key string, fs []*Field) *Command {
	c.key(key)
	c.b.WriteString("[")
	for i, f := range fs {
		if i > 0 {
			c.b.WriteString(" ")
		}
		c.b.WriteString(strconv.Quote(f.Name()))
	}
	c.b.WriteString("]")
	return c
}

// Float adds a number.
func (c *Command) Float(key string, v float64) *Command {
	c.key(key)
	c.b.WriteString(formatFloat(v))
	return c
}

// Floats adds a list of numbers.
func (c *Command) Floats(key string, vs []float64) *Command {
	c.key(key)
	c.b.WriteString("[")
	for i, v := range vs {
		if i > 0 {
			c.b.WriteString(" ")
		}
		c.b.WriteString(formatFloat(v))
	}
	c.b.WriteString("]")
	return c
}

// Ints adds a list of integers.
func (c *Command) Ints(key string, vs []int) *Command {
	c.key(key)
	c.b.WriteString("[")
	for i, v := range vs {
		if i > 0 {
			c.b.WriteString(" ")
		}
		c.b.WriteString(strconv.Itoa(v))
	}
	c.b.WriteString("]")
	return c
}

// String adds a quoted string.
func (c *Command) String(key, v string) *Command {
	c.key(key)
	c.b.WriteString(strconv.Quote(v))
	return c
}

// Bool adds a boolean.
func (c *Command) Bool(key string, v bool) *Command {
	c.key(key)
	c.b.WriteString(strconv.FormatBool(v))
	return c
}

// Build returns the finished command.
func (c *Command) Build() string {
	return c.b.String() + ")"
}

// formatFloat writes v in plain decimal so the script reader never sees an
// exponent.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
