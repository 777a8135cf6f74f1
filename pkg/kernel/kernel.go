// Package kernel defines the solid-modelling interface used to build glyph
// geometry. Glyphs are small unit solids (spheres, cubes, arrows) that are
// tessellated once and then instanced at nodes and element points.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds and tessellates glyph solids.
type Kernel interface {
	// Primitives. Box and Sphere are centred on the origin; Cylinder and
	// Cone stand on the xy plane and extend up the z axis.
	Sphere(radius float64) (Solid, error)
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)
	Cone(height, radius float64) (Solid, error)

	Union(a, b Solid) Solid
	Translate(s Solid, x, y, z float64) Solid

	// ToMesh tessellates a solid.
	ToMesh(s Solid) (*Mesh, error)
}
