package fieldtypes

import (
	"fmt"
	"math"

	"github.com/chazu/cmgui/pkg/field"
	"gonum.org/v1/gonum/spatial/r3"
)

func checkSources(typeName string, fs ...*field.Field) error {
	for i, f := range fs {
		if f == nil {
			return fmt.Errorf("%w: %s source %d is nil", field.ErrInvalidArgument, typeName, i+1)
		}
	}
	return nil
}

func checkSameComponents(typeName string, a, b *field.Field) error {
	if err := checkSources(typeName, a, b); err != nil {
		return err
	}
	if a.NumberOfComponents() != b.NumberOfComponents() {
		return fmt.Errorf("%w: %s sources have %d and %d components", field.ErrInvalidArgument,
			typeName, a.NumberOfComponents(), b.NumberOfComponents())
	}
	return nil
}

// binaryCommand writes the command of a two source field.
func binaryCommand(typeName string, f *field.Field) *field.Command {
	return field.NewCommand(typeName).Fields("fields", f.Sources())
}

func parseTwoFields(args *field.Args) (*field.Field, *field.Field, error) {
	fs, err := args.Fields("fields")
	if err != nil {
		return nil, nil, err
	}
	if len(fs) != 2 {
		return nil, nil, fmt.Errorf("%w: expected 2 fields, got %d", field.ErrInvalidArgument, len(fs))
	}
	return fs[0], fs[1], nil
}

// ---------------------------------------------------------------------------
// add
// ---------------------------------------------------------------------------

// AddCore returns the weighted sum of two sources. The weights are the
// field's source values.
type AddCore struct {
	field.CoreBase
}

func (c *AddCore) TypeString() string { return "add" }

func (c *AddCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.EvaluateSources(cache)
	if !ok {
		return false
	}
	w1, w2 := c.SourceValue(0), c.SourceValue(1)
	for i := range vc.Values {
		vc.Values[i] = w1*s[0].Values[i] + w2*s[1].Values[i]
	}
	if derivativesWanted(cache, s...) {
		for i := range vc.Derivatives {
			vc.Derivatives[i] = w1*s[0].Derivatives[i] + w2*s[1].Derivatives[i]
		}
		vc.DerivativesValid = true
	}
	return true
}

func (c *AddCore) Compare(o field.Core) bool {
	oc, ok := o.(*AddCore)
	return ok && equalFloats(c.SourceValues(), oc.SourceValues())
}

func (c *AddCore) CommandString() string {
	return binaryCommand("add", c.Field()).Floats("weights", c.SourceValues()).Build()
}

// Add is a typed view of an add field.
type Add = Handle[*AddCore]

// NewAdd defines w1*a + w2*b.
func NewAdd(a, b *field.Field, w1, w2 float64) (field.Definition, error) {
	if err := checkSameComponents("add", a, b); err != nil {
		return field.Definition{}, err
	}
	return field.Definition{
		Core:               &AddCore{},
		Sources:            []*field.Field{a, b},
		SourceValues:       []float64{w1, w2},
		NumberOfComponents: a.NumberOfComponents(),
		CoordinateSystem:   a.CoordinateSystem(),
	}, nil
}

// CreateAdd creates an add field in m.
func CreateAdd(m *field.Module, name string, a, b *field.Field, w1, w2 float64) (*field.Field, error) {
	def, err := NewAdd(a, b, w1, w2)
	return create(m, name, def, err)
}

// AsAdd returns a typed view of f, or nil.
func AsAdd(f *field.Field) *Add { return as[*AddCore](f) }

func parseAdd(_ *field.Module, args *field.Args) (field.Definition, error) {
	a, b, err := parseTwoFields(args)
	if err != nil {
		return field.Definition{}, err
	}
	w := []float64{1, 1}
	if args.Has("weights") {
		if w, err = args.Floats("weights"); err != nil {
			return field.Definition{}, err
		}
		if len(w) != 2 {
			return field.Definition{}, fmt.Errorf("%w: add needs 2 weights", field.ErrInvalidArgument)
		}
	}
	return NewAdd(a, b, w[0], w[1])
}

// ---------------------------------------------------------------------------
// multiply, divide
// ---------------------------------------------------------------------------

// MultiplyCore multiplies two sources component by component.
type MultiplyCore struct {
	field.CoreBase
}

func (c *MultiplyCore) TypeString() string { return "multiply" }

func (c *MultiplyCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.EvaluateSources(cache)
	if !ok {
		return false
	}
	a, b := s[0], s[1]
	for i := range vc.Values {
		vc.Values[i] = a.Values[i] * b.Values[i]
	}
	if derivativesWanted(cache, a, b) {
		dim := vc.Dimension()
		for i := range vc.Values {
			for d := 0; d < dim; d++ {
				k := i*dim + d
				vc.Derivatives[k] = a.Derivatives[k]*b.Values[i] + a.Values[i]*b.Derivatives[k]
			}
		}
		vc.DerivativesValid = true
	}
	return true
}

func (c *MultiplyCore) Compare(o field.Core) bool { _, ok := o.(*MultiplyCore); return ok }

func (c *MultiplyCore) CommandString() string { return binaryCommand("multiply", c.Field()).Build() }

// Multiply is a typed view of a multiply field.
type Multiply = Handle[*MultiplyCore]

// NewMultiply defines a*b component by component.
func NewMultiply(a, b *field.Field) (field.Definition, error) {
	if err := checkSameComponents("multiply", a, b); err != nil {
		return field.Definition{}, err
	}
	return field.Definition{
		Core:               &MultiplyCore{},
		Sources:            []*field.Field{a, b},
		NumberOfComponents: a.NumberOfComponents(),
	}, nil
}

// CreateMultiply creates a multiply field in m.
func CreateMultiply(m *field.Module, name string, a, b *field.Field) (*field.Field, error) {
	def, err := NewMultiply(a, b)
	return create(m, name, def, err)
}

// AsMultiply returns a typed view of f, or nil.
func AsMultiply(f *field.Field) *Multiply { return as[*MultiplyCore](f) }

func parseMultiply(_ *field.Module, args *field.Args) (field.Definition, error) {
	a, b, err := parseTwoFields(args)
	if err != nil {
		return field.Definition{}, err
	}
	return NewMultiply(a, b)
}

// DivideCore divides two sources component by component. It is undefined
// where a divisor component is zero.
type DivideCore struct {
	field.CoreBase
}

func (c *DivideCore) TypeString() string { return "divide" }

func (c *DivideCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.EvaluateSources(cache)
	if !ok {
		return false
	}
	a, b := s[0], s[1]
	for i := range vc.Values {
		if b.Values[i] == 0 {
			return false
		}
		vc.Values[i] = a.Values[i] / b.Values[i]
	}
	if derivativesWanted(cache, a, b) {
		dim := vc.Dimension()
		for i := range vc.Values {
			bb := b.Values[i] * b.Values[i]
			for d := 0; d < dim; d++ {
				k := i*dim + d
				vc.Derivatives[k] = (a.Derivatives[k]*b.Values[i] - a.Values[i]*b.Derivatives[k]) / bb
			}
		}
		vc.DerivativesValid = true
	}
	return true
}

func (c *DivideCore) Compare(o field.Core) bool { _, ok := o.(*DivideCore); return ok }

func (c *DivideCore) CommandString() string { return binaryCommand("divide", c.Field()).Build() }

// Divide is a typed view of a divide field.
type Divide = Handle[*DivideCore]

// NewDivide defines a/b component by component.
func NewDivide(a, b *field.Field) (field.Definition, error) {
	if err := checkSameComponents("divide", a, b); err != nil {
		return field.Definition{}, err
	}
	return field.Definition{
		Core:               &DivideCore{},
		Sources:            []*field.Field{a, b},
		NumberOfComponents: a.NumberOfComponents(),
	}, nil
}

// CreateDivide creates a divide field in m.
func CreateDivide(m *field.Module, name string, a, b *field.Field) (*field.Field, error) {
	def, err := NewDivide(a, b)
	return create(m, name, def, err)
}

// AsDivide returns a typed view of f, or nil.
func AsDivide(f *field.Field) *Divide { return as[*DivideCore](f) }

func parseDivide(_ *field.Module, args *field.Args) (field.Definition, error) {
	a, b, err := parseTwoFields(args)
	if err != nil {
		return field.Definition{}, err
	}
	return NewDivide(a, b)
}

// ---------------------------------------------------------------------------
// scale, sum_components
// ---------------------------------------------------------------------------

// ScaleCore multiplies each source component by a constant held in the
// field's source values.
type ScaleCore struct {
	field.CoreBase
}

func (c *ScaleCore) TypeString() string { return "scale" }

func (c *ScaleCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.Source(0).Evaluate(cache)
	if !ok {
		return false
	}
	scale := c.SourceValues()
	for i := range vc.Values {
		vc.Values[i] = scale[i] * s.Values[i]
	}
	if derivativesWanted(cache, s) {
		dim := vc.Dimension()
		for i := range vc.Values {
			for d := 0; d < dim; d++ {
				vc.Derivatives[i*dim+d] = scale[i] * s.Derivatives[i*dim+d]
			}
		}
		vc.DerivativesValid = true
	}
	return true
}

func (c *ScaleCore) Compare(o field.Core) bool {
	oc, ok := o.(*ScaleCore)
	return ok && equalFloats(c.SourceValues(), oc.SourceValues())
}

func (c *ScaleCore) CommandString() string {
	return field.NewCommand("scale").
		Field("field", c.Source(0)).
		Floats("values", c.SourceValues()).
		Build()
}

// Scale is a typed view of a scale field.
type Scale = Handle[*ScaleCore]

// NewScale defines source scaled per component.
func NewScale(source *field.Field, scale []float64) (field.Definition, error) {
	if err := checkSources("scale", source); err != nil {
		return field.Definition{}, err
	}
	if len(scale) != source.NumberOfComponents() {
		return field.Definition{}, fmt.Errorf("%w: scale needs %d values, got %d",
			field.ErrInvalidArgument, source.NumberOfComponents(), len(scale))
	}
	return field.Definition{
		Core:               &ScaleCore{},
		Sources:            []*field.Field{source},
		SourceValues:       scale,
		NumberOfComponents: source.NumberOfComponents(),
		CoordinateSystem:   source.CoordinateSystem(),
	}, nil
}

// CreateScale creates a scale field in m.
func CreateScale(m *field.Module, name string, source *field.Field, scale []float64) (*field.Field, error) {
	def, err := NewScale(source, scale)
	return create(m, name, def, err)
}

// AsScale returns a typed view of f, or nil.
func AsScale(f *field.Field) *Scale { return as[*ScaleCore](f) }

func parseScale(_ *field.Module, args *field.Args) (field.Definition, error) {
	src, err := args.Field("field")
	if err != nil {
		return field.Definition{}, err
	}
	values, err := args.Floats("values")
	if err != nil {
		return field.Definition{}, err
	}
	return NewScale(src, values)
}

// SumComponentsCore returns the weighted sum of the source components.
type SumComponentsCore struct {
	field.CoreBase
}

func (c *SumComponentsCore) TypeString() string { return "sum_components" }

func (c *SumComponentsCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.Source(0).Evaluate(cache)
	if !ok {
		return false
	}
	w := c.SourceValues()
	sum := 0.0
	for i, v := range s.Values {
		sum += w[i] * v
	}
	vc.Values[0] = sum
	if derivativesWanted(cache, s) {
		dim := vc.Dimension()
		for d := 0; d < dim; d++ {
			vc.Derivatives[d] = 0
			for i := range s.Values {
				vc.Derivatives[d] += w[i] * s.Derivatives[i*dim+d]
			}
		}
		vc.DerivativesValid = true
	}
	return true
}

func (c *SumComponentsCore) Compare(o field.Core) bool {
	oc, ok := o.(*SumComponentsCore)
	return ok && equalFloats(c.SourceValues(), oc.SourceValues())
}

func (c *SumComponentsCore) CommandString() string {
	return field.NewCommand("sum_components").
		Field("field", c.Source(0)).
		Floats("weights", c.SourceValues()).
		Build()
}

// SumComponents is a typed view of a sum_components field.
type SumComponents = Handle[*SumComponentsCore]

// NewSumComponents defines the weighted component sum of source.
func NewSumComponents(source *field.Field, weights []float64) (field.Definition, error) {
	if err := checkSources("sum_components", source); err != nil {
		return field.Definition{}, err
	}
	if len(weights) != source.NumberOfComponents() {
		return field.Definition{}, fmt.Errorf("%w: sum_components needs %d weights, got %d",
			field.ErrInvalidArgument, source.NumberOfComponents(), len(weights))
	}
	return field.Definition{
		Core:               &SumComponentsCore{},
		Sources:            []*field.Field{source},
		SourceValues:       weights,
		NumberOfComponents: 1,
	}, nil
}

// CreateSumComponents creates a sum_components field in m.
func CreateSumComponents(m *field.Module, name string, source *field.Field, weights []float64) (*field.Field, error) {
	def, err := NewSumComponents(source, weights)
	return create(m, name, def, err)
}

// AsSumComponents returns a typed view of f, or nil.
func AsSumComponents(f *field.Field) *SumComponents { return as[*SumComponentsCore](f) }

func parseSumComponents(_ *field.Module, args *field.Args) (field.Definition, error) {
	src, err := args.Field("field")
	if err != nil {
		return field.Definition{}, err
	}
	var w []float64
	if args.Has("weights") {
		if w, err = args.Floats("weights"); err != nil {
			return field.Definition{}, err
		}
	} else {
		w = make([]float64, src.NumberOfComponents())
		for i := range w {
			w[i] = 1
		}
	}
	return NewSumComponents(src, w)
}

// ---------------------------------------------------------------------------
// magnitude, dot_product, cross_product
// ---------------------------------------------------------------------------

// MagnitudeCore returns the Euclidean norm of its source.
type MagnitudeCore struct {
	field.CoreBase
}

func (c *MagnitudeCore) TypeString() string { return "magnitude" }

func (c *MagnitudeCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.Source(0).Evaluate(cache)
	if !ok {
		return false
	}
	sum := 0.0
	for _, v := range s.Values {
		sum += v * v
	}
	mag := math.Sqrt(sum)
	vc.Values[0] = mag
	if derivativesWanted(cache, s) && mag > 0 {
		dim := vc.Dimension()
		for d := 0; d < dim; d++ {
			vc.Derivatives[d] = 0
			for i, v := range s.Values {
				vc.Derivatives[d] += v * s.Derivatives[i*dim+d] / mag
			}
		}
		vc.DerivativesValid = true
	}
	return true
}

func (c *MagnitudeCore) Compare(o field.Core) bool { _, ok := o.(*MagnitudeCore); return ok }

func (c *MagnitudeCore) CommandString() string {
	return field.NewCommand("magnitude").Field("field", c.Source(0)).Build()
}

// Magnitude is a typed view of a magnitude field.
type Magnitude = Handle[*MagnitudeCore]

// NewMagnitude defines the norm of source.
func NewMagnitude(source *field.Field) (field.Definition, error) {
	if err := checkSources("magnitude", source); err != nil {
		return field.Definition{}, err
	}
	return field.Definition{
		Core:               &MagnitudeCore{},
		Sources:            []*field.Field{source},
		NumberOfComponents: 1,
	}, nil
}

// CreateMagnitude creates a magnitude field in m.
func CreateMagnitude(m *field.Module, name string, source *field.Field) (*field.Field, error) {
	def, err := NewMagnitude(source)
	return create(m, name, def, err)
}

// AsMagnitude returns a typed view of f, or nil.
func AsMagnitude(f *field.Field) *Magnitude { return as[*MagnitudeCore](f) }

func parseMagnitude(_ *field.Module, args *field.Args) (field.Definition, error) {
	src, err := args.Field("field")
	if err != nil {
		return field.Definition{}, err
	}
	return NewMagnitude(src)
}

// DotProductCore returns the dot product of two sources.
type DotProductCore struct {
	field.CoreBase
}

func (c *DotProductCore) TypeString() string { return "dot_product" }

func (c *DotProductCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.EvaluateSources(cache)
	if !ok {
		return false
	}
	a, b := s[0], s[1]
	sum := 0.0
	for i := range a.Values {
		sum += a.Values[i] * b.Values[i]
	}
	vc.Values[0] = sum
	if derivativesWanted(cache, a, b) {
		dim := vc.Dimension()
		for d := 0; d < dim; d++ {
			vc.Derivatives[d] = 0
			for i := range a.Values {
				k := i*dim + d
				vc.Derivatives[d] += a.Derivatives[k]*b.Values[i] + a.Values[i]*b.Derivatives[k]
			}
		}
		vc.DerivativesValid = true
	}
	return true
}

func (c *DotProductCore) Compare(o field.Core) bool { _, ok := o.(*DotProductCore); return ok }

func (c *DotProductCore) CommandString() string {
	return binaryCommand("dot_product", c.Field()).Build()
}

// DotProduct is a typed view of a dot_product field.
type DotProduct = Handle[*DotProductCore]

// NewDotProduct defines a.b.
func NewDotProduct(a, b *field.Field) (field.Definition, error) {
	if err := checkSameComponents("dot_product", a, b); err != nil {
		return field.Definition{}, err
	}
	return field.Definition{
		Core:               &DotProductCore{},
		Sources:            []*field.Field{a, b},
		NumberOfComponents: 1,
	}, nil
}

// CreateDotProduct creates a dot_product field in m.
func CreateDotProduct(m *field.Module, name string, a, b *field.Field) (*field.Field, error) {
	def, err := NewDotProduct(a, b)
	return create(m, name, def, err)
}

// AsDotProduct returns a typed view of f, or nil.
func AsDotProduct(f *field.Field) *DotProduct { return as[*DotProductCore](f) }

func parseDotProduct(_ *field.Module, args *field.Args) (field.Definition, error) {
	a, b, err := parseTwoFields(args)
	if err != nil {
		return field.Definition{}, err
	}
	return NewDotProduct(a, b)
}

// CrossProductCore returns the cross product of two 3-component sources.
type CrossProductCore struct {
	field.CoreBase
}

func (c *CrossProductCore) TypeString() string { return "cross_product" }

func vec(v []float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// column returns the xi derivative d of a 3-component cache as a vector.
func column(vc *field.ValueCache, d int) r3.Vec {
	dim := vc.Dimension()
	return r3.Vec{X: vc.Derivatives[d], Y: vc.Derivatives[dim+d], Z: vc.Derivatives[2*dim+d]}
}

func (c *CrossProductCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.EvaluateSources(cache)
	if !ok {
		return false
	}
	a, b := vec(s[0].Values), vec(s[1].Values)
	x := r3.Cross(a, b)
	vc.Values[0], vc.Values[1], vc.Values[2] = x.X, x.Y, x.Z
	if derivativesWanted(cache, s...) {
		dim := vc.Dimension()
		for d := 0; d < dim; d++ {
			dx := r3.Add(r3.Cross(column(s[0], d), b), r3.Cross(a, column(s[1], d)))
			vc.Derivatives[d], vc.Derivatives[dim+d], vc.Derivatives[2*dim+d] = dx.X, dx.Y, dx.Z
		}
		vc.DerivativesValid = true
	}
	return true
}

func (c *CrossProductCore) Compare(o field.Core) bool { _, ok := o.(*CrossProductCore); return ok }

func (c *CrossProductCore) CommandString() string {
	return binaryCommand("cross_product", c.Field()).Build()
}

// CrossProduct is a typed view of a cross_product field.
type CrossProduct = Handle[*CrossProductCore]

// NewCrossProduct defines a x b for 3-component a and b.
func NewCrossProduct(a, b *field.Field) (field.Definition, error) {
	if err := checkSameComponents("cross_product", a, b); err != nil {
		return field.Definition{}, err
	}
	if a.NumberOfComponents() != 3 {
		return field.Definition{}, fmt.Errorf("%w: cross_product needs 3-component sources", field.ErrInvalidArgument)
	}
	return field.Definition{
		Core:               &CrossProductCore{},
		Sources:            []*field.Field{a, b},
		NumberOfComponents: 3,
		CoordinateSystem:   field.RC,
	}, nil
}

// CreateCrossProduct creates a cross_product field in m.
func CreateCrossProduct(m *field.Module, name string, a, b *field.Field) (*field.Field, error) {
	def, err := NewCrossProduct(a, b)
	return create(m, name, def, err)
}

// AsCrossProduct returns a typed view of f, or nil.
func AsCrossProduct(f *field.Field) *CrossProduct { return as[*CrossProductCore](f) }

func parseCrossProduct(_ *field.Module, args *field.Args) (field.Definition, error) {
	a, b, err := parseTwoFields(args)
	if err != nil {
		return field.Definition{}, err
	}
	return NewCrossProduct(a, b)
}

// ---------------------------------------------------------------------------
// component, composite
// ---------------------------------------------------------------------------

// ComponentCore extracts one component of its source.
type ComponentCore struct {
	field.CoreBase
	index int // 0-based
}

func (c *ComponentCore) TypeString() string { return "component" }

func (c *ComponentCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.Source(0).Evaluate(cache)
	if !ok {
		return false
	}
	vc.Values[0] = s.Values[c.index]
	if derivativesWanted(cache, s) {
		dim := vc.Dimension()
		copy(vc.Derivatives, s.Derivatives[c.index*dim:(c.index+1)*dim])
		vc.DerivativesValid = true
	}
	return true
}

// SetValuesAt sets the selected component of a settable source.
func (c *ComponentCore) SetValuesAt(cache *field.Cache, values []float64) bool {
	src := c.Source(0)
	s, ok := src.Evaluate(cache)
	if !ok {
		return false
	}
	all := append([]float64(nil), s.Values...)
	all[c.index] = values[0]
	return src.Module().SetValues(src, cache, all)
}

func (c *ComponentCore) Compare(o field.Core) bool {
	oc, ok := o.(*ComponentCore)
	return ok && oc.index == c.index
}

func (c *ComponentCore) CommandString() string {
	return field.NewCommand("component").
		Field("field", c.Source(0)).
		Float("index", float64(c.index+1)).
		Build()
}

// Component is a typed view of a component field.
type Component = Handle[*ComponentCore]

// NewComponent defines component index (1-based) of source.
func NewComponent(source *field.Field, index int) (field.Definition, error) {
	if err := checkSources("component", source); err != nil {
		return field.Definition{}, err
	}
	if index < 1 || index > source.NumberOfComponents() {
		return field.Definition{}, fmt.Errorf("%w: component %d out of range 1..%d",
			field.ErrInvalidArgument, index, source.NumberOfComponents())
	}
	return field.Definition{
		Core:               &ComponentCore{index: index - 1},
		Sources:            []*field.Field{source},
		NumberOfComponents: 1,
	}, nil
}

// CreateComponent creates a component field in m.
func CreateComponent(m *field.Module, name string, source *field.Field, index int) (*field.Field, error) {
	def, err := NewComponent(source, index)
	return create(m, name, def, err)
}

// AsComponent returns a typed view of f, or nil.
func AsComponent(f *field.Field) *Component { return as[*ComponentCore](f) }

func parseComponent(_ *field.Module, args *field.Args) (field.Definition, error) {
	src, err := args.Field("field")
	if err != nil {
		return field.Definition{}, err
	}
	index, err := args.Int("index")
	if err != nil {
		return field.Definition{}, err
	}
	return NewComponent(src, index)
}

// CompositeCore concatenates the components of its sources.
type CompositeCore struct {
	field.CoreBase
}

func (c *CompositeCore) TypeString() string { return "composite" }

func (c *CompositeCore) Evaluate(cache *field.Cache, vc *field.ValueCache) bool {
	s, ok := c.EvaluateSources(cache)
	if !ok {
		return false
	}
	n := 0
	for _, src := range s {
		n += copy(vc.Values[n:], src.Values)
	}
	if derivativesWanted(cache, s...) {
		k := 0
		for _, src := range s {
			k += copy(vc.Derivatives[k:], src.Derivatives)
		}
		vc.DerivativesValid = true
	}
	return true
}

func (c *CompositeCore) Compare(o field.Core) bool { _, ok := o.(*CompositeCore); return ok }

func (c *CompositeCore) CommandString() string {
	return field.NewCommand("composite").Fields("fields", c.Field().Sources()).Build()
}

// Composite is a typed view of a composite field.
type Composite = Handle[*CompositeCore]

// NewComposite defines the concatenation of sources.
func NewComposite(sources ...*field.Field) (field.Definition, error) {
	if len(sources) == 0 {
		return field.Definition{}, fmt.Errorf("%w: composite needs a source", field.ErrInvalidArgument)
	}
	if err := checkSources("composite", sources...); err != nil {
		return field.Definition{}, err
	}
	n := 0
	for _, s := range sources {
		n += s.NumberOfComponents()
	}
	return field.Definition{
		Core:               &CompositeCore{},
		Sources:            sources,
		NumberOfComponents: n,
	}, nil
}

// CreateComposite creates a composite field in m.
func CreateComposite(m *field.Module, name string, sources ...*field.Field) (*field.Field, error) {
	def, err := NewComposite(sources...)
	return create(m, name, def, err)
}

// AsComposite returns a typed view of f, or nil.
func AsComposite(f *field.Field) *Composite { return as[*CompositeCore](f) }

func parseComposite(_ *field.Module, args *field.Args) (field.Definition, error) {
	fs, err := args.Fields("fields")
	if err != nil {
		return field.Definition{}, err
	}
	return NewComposite(fs...)
}
