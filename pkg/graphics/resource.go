package graphics

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Material describes surface appearance. Texture names a Texture, or is
// empty.
type Material struct {
	name    string
	Diffuse [3]float64
	Alpha   float64
	Texture string
}

// NewMaterial returns an opaque white material.
func NewMaterial(name string) *Material {
	return &Material{name: name, Diffuse: [3]float64{1, 1, 1}, Alpha: 1}
}

func (m *Material) Name() string { return m.name }

// Spectrum maps scalar data onto colours, blue at Min through red at Max.
type Spectrum struct {
	name     string
	Min, Max float64
}

// NewSpectrum returns a spectrum over [min, max].
func NewSpectrum(name string, min, max float64) (*Spectrum, error) {
	if !(max > min) {
		return nil, fmt.Errorf("graphics: spectrum %q range [%g, %g] is empty", name, min, max)
	}
	return &Spectrum{name: name, Min: min, Max: max}, nil
}

func (s *Spectrum) Name() string { return s.name }

// Colour returns the RGB colour for value, clamped to the range.
func (s *Spectrum) Colour(value float64) [3]float64 {
	t := (value - s.Min) / (s.Max - s.Min)
	t = max(0, min(1, t))
	return [3]float64{t, 0, 1 - t}
}

// Texture is an image applied through a material.
type Texture struct {
	name          string
	Width, Height int
}

// NewTexture returns a texture of the given size.
func NewTexture(name string, width, height int) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("graphics: texture %q size %dx%d", name, width, height)
	}
	return &Texture{name: name, Width: width, Height: height}, nil
}

func (t *Texture) Name() string { return t.name }

// LightKind is the kind of a Light.
type LightKind int

const (
	AmbientLight LightKind = iota
	DirectionalLight
	PointLight
)

// Light illuminates a scene.
type Light struct {
	name      string
	Kind      LightKind
	Colour    [3]float64
	Direction r3.Vec
	Position  r3.Vec
	Enabled   bool
}

// NewLight returns an enabled white light of the given kind, pointing
// down -z.
func NewLight(name string, kind LightKind) *Light {
	return &Light{
		name:      name,
		Kind:      kind,
		Colour:    [3]float64{1, 1, 1},
		Direction: r3.Vec{Z: -1},
		Enabled:   true,
	}
}

func (l *Light) Name() string { return l.name }
