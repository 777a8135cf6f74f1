package scene

import (
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/cmgui/pkg/graphics"
)

// ObjectKind tags what a scene object wraps.
type ObjectKind int

const (
	GraphicsObject ObjectKind = iota
	ElementGroup
	ChildScene
)

func (k ObjectKind) String() string {
	switch k {
	case GraphicsObject:
		return "graphics_object"
	case ElementGroup:
		return "graphical_element_group"
	case ChildScene:
		return "child_scene"
	default:
		return "unknown"
	}
}

// Object is one member of a scene. The owning scene is a back reference
// only; it is cleared when the object is removed.
type Object struct {
	name      string
	kind      ObjectKind
	scene     *Scene
	visible   bool
	transform *sdf.M44
	drawable  graphics.Drawable
	child     *Scene
	clock     *TimeKeeper

	stale    bool
	list     *graphics.DisplayList
	compiles int

	drawableListener int
	clockListener    int

	// childCtx is set when the child scene lives in another context.
	childCtx      *Context
	childListener int
}

func (o *Object) Name() string { return o.name }

// Kind returns what the object wraps.
func (o *Object) Kind() ObjectKind { return o.kind }

// Scene returns the owning scene, or nil once removed.
func (o *Object) Scene() *Scene { return o.scene }

// Position returns the 1-based position in the owning scene, or 0.
func (o *Object) Position() int {
	if o.scene == nil {
		return 0
	}
	return o.scene.objects.IndexByKey(o.name) + 1
}

// Visible reports whether the object is drawn.
func (o *Object) Visible() bool { return o.visible }

// Transform returns the object's transform, or nil for identity.
func (o *Object) Transform() *sdf.M44 { return o.transform }

// Drawable returns the wrapped graphics object or element group.
func (o *Object) Drawable() graphics.Drawable { return o.drawable }

// GraphicsObject returns the wrapped graphics object, or nil.
func (o *Object) GraphicsObject() *graphics.Object {
	obj, _ := o.drawable.(*graphics.Object)
	return obj
}

// ElementGroup returns the wrapped element group, or nil.
func (o *Object) ElementGroup() *graphics.ElementGroup {
	g, _ := o.drawable.(*graphics.ElementGroup)
	return g
}

// Child returns the wrapped child scene, or nil.
func (o *Object) Child() *Scene { return o.child }

// TimeObject returns the clock the object is bound to, or nil.
func (o *Object) TimeObject() *TimeKeeper { return o.clock }

// Compiles returns how many times the object's member list was rebuilt.
func (o *Object) Compiles() int { return o.compiles }

// Stale reports whether the object needs recompiling.
func (o *Object) Stale() bool { return o.stale }

func (o *Object) time() float64 {
	if o.clock != nil {
		return o.clock.Time()
	}
	return o.scene.time
}

func (o *Object) uses(materials, spectra []string) bool {
	if o.drawable == nil {
		return false
	}
	return intersects(o.drawable.Materials(), materials) || intersects(o.drawable.Spectra(), spectra)
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
