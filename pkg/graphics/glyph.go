package graphics

import (
	"fmt"
	"slices"

	"github.com/chazu/cmgui/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// GlyphPoint draws a single point rather than a solid.
const GlyphPoint = "point"

// glyphBuilders build unit-sized glyph solids. Arrows point along +z.
var glyphBuilders = map[string]func(k kernel.Kernel) (kernel.Solid, error){
	"sphere": func(k kernel.Kernel) (kernel.Solid, error) {
		return k.Sphere(0.5)
	},
	"cube": func(k kernel.Kernel) (kernel.Solid, error) {
		return k.Box(1, 1, 1)
	},
	"arrow": func(k kernel.Kernel) (kernel.Solid, error) {
		shaft, err := k.Cylinder(0.7, 0.05)
		if err != nil {
			return nil, err
		}
		head, err := k.Cone(0.3, 0.15)
		if err != nil {
			return nil, err
		}
		return k.Union(shaft, k.Translate(head, 0, 0, 0.7)), nil
	},
}

// GlyphNames returns the names accepted by GlyphSet.Glyph.
func GlyphNames() []string {
	names := []string{GlyphPoint}
	for name := range glyphBuilders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GlyphSet tessellates glyphs on first use and keeps the meshes.
type GlyphSet struct {
	kernel kernel.Kernel
	meshes map[string]*kernel.Mesh
}

// NewGlyphSet returns a glyph set built with k.
func NewGlyphSet(k kernel.Kernel) *GlyphSet {
	return &GlyphSet{kernel: k, meshes: make(map[string]*kernel.Mesh)}
}

// Glyph returns the unit mesh for name. The point glyph, and the empty
// name, have no mesh.
func (gs *GlyphSet) Glyph(name string) (*kernel.Mesh, error) {
	if name == "" || name == GlyphPoint {
		return nil, nil
	}
	build, ok := glyphBuilders[name]
	if !ok {
		return nil, fmt.Errorf("graphics: unknown glyph %q", name)
	}
	if gs == nil || gs.kernel == nil {
		return nil, fmt.Errorf("graphics: glyph %q needs a geometry kernel", name)
	}
	if m, ok := gs.meshes[name]; ok {
		return m, nil
	}
	solid, err := build(gs.kernel)
	if err != nil {
		return nil, fmt.Errorf("graphics: glyph %q: %w", name, err)
	}
	m, err := gs.kernel.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("graphics: glyph %q: %w", name, err)
	}
	m.Name = name
	gs.meshes[name] = m
	return m, nil
}

// placeGlyph returns the triangle vertices of glyph scaled by size and
// centred at p.
func placeGlyph(glyph *kernel.Mesh, p r3.Vec, size float64) []r3.Vec {
	out := make([]r3.Vec, 0, len(glyph.Indices))
	for t := 0; t < glyph.TriangleCount(); t++ {
		for _, i := range glyph.Triangle(t) {
			v := glyph.Vertex(i)
			out = append(out, r3.Add(p, r3.Scale(size, r3.Vec{X: v[0], Y: v[1], Z: v[2]})))
		}
	}
	return out
}
