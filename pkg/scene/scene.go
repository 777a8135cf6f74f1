package scene

import (
	"errors"
	"fmt"

	"cogentcore.org/core/base/ordmap"
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/cmgui/internal/logging"
	"github.com/chazu/cmgui/pkg/graphics"
	"github.com/chazu/cmgui/pkg/manager"
)

// Currency is the state of a scene's compiled display list.
type Currency int

const (
	// FullStale means the list structure changed and every member must be
	// recompiled.
	FullStale Currency = 0
	// Current means the compiled list is up to date.
	Current Currency = 1
	// MemberStale means some members need recompiling but the list
	// structure is unchanged.
	MemberStale Currency = 2
)

func (c Currency) String() string {
	switch c {
	case FullStale:
		return "full_stale"
	case Current:
		return "current"
	case MemberStale:
		return "member_stale"
	default:
		return "unknown"
	}
}

// rank orders currencies from most stale to current.
func (c Currency) rank() int {
	switch c {
	case Current:
		return 2
	case MemberStale:
		return 1
	default:
		return 0
	}
}

// Scene is an ordered list of scene objects plus lights. Scene objects are
// positioned 1..N with no gaps; positions are the selection names pushed
// when the scene is executed.
type Scene struct {
	name     string
	ctx      *Context
	objects  *ordmap.Map[string, *Object]
	lights   *ordmap.Map[string, *graphics.Light]
	currency Currency
	time     float64

	compiles     int
	fullCompiles int

	materialsCB int
	spectraCB   int
	texturesCB  int
	lightsCB    int
	scenesCB    int
}

// New creates a scene, adds it to ctx.Scenes and registers it with the
// context's managers.
func New(ctx *Context, name string) (*Scene, error) {
	if ctx == nil || name == "" {
		return nil, fmt.Errorf("%w: scene needs a context and a name", ErrInvalidArgument)
	}
	if ctx.Scenes.Contains(name) {
		return nil, fmt.Errorf("%w: scene %q", ErrNameInUse, name)
	}
	s := &Scene{
		name:     name,
		ctx:      ctx,
		objects:  ordmap.New[string, *Object](),
		lights:   ordmap.New[string, *graphics.Light](),
		currency: FullStale,
	}
	if err := ctx.Scenes.Add(s); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	s.materialsCB = ctx.Materials.Register(func(msg *manager.Message[*graphics.Material]) {
		s.resourcesChanged(msg.Names(), nil)
	})
	s.spectraCB = ctx.Spectra.Register(func(msg *manager.Message[*graphics.Spectrum]) {
		s.resourcesChanged(nil, msg.Names())
	})
	s.texturesCB = ctx.Textures.Register(s.texturesChanged)
	s.lightsCB = ctx.Lights.Register(s.lightsChanged)
	s.scenesCB = ctx.Scenes.Register(s.scenesChanged)
	return s, nil
}

func (s *Scene) Name() string { return s.name }

// Context returns the managers the scene listens to.
func (s *Scene) Context() *Context { return s.ctx }

// Currency returns the state of the compiled display list.
func (s *Scene) Currency() Currency { return s.currency }

// Compiles returns the number of successful compiles that did work.
func (s *Scene) Compiles() int { return s.compiles }

// FullCompiles returns how many of those compiles rebuilt every member.
func (s *Scene) FullCompiles() int { return s.fullCompiles }

// Time returns the default time for members without a time object.
func (s *Scene) Time() float64 { return s.time }

// Destroy removes every object, unregisters from the context's managers
// and removes the scene from ctx.Scenes.
func (s *Scene) Destroy() {
	if s.ctx == nil {
		return
	}
	for _, name := range s.objects.Keys() {
		s.detach(s.objects.ValueByKey(name))
	}
	s.objects.Reset()
	s.objects.Init()
	ctx := s.ctx
	ctx.Materials.Unregister(s.materialsCB)
	ctx.Spectra.Unregister(s.spectraCB)
	ctx.Textures.Unregister(s.texturesCB)
	ctx.Lights.Unregister(s.lightsCB)
	ctx.Scenes.Unregister(s.scenesCB)
	if cur, ok := ctx.Scenes.Get(s.name); ok && cur == s {
		if err := ctx.Scenes.Remove(s.name); err != nil {
			logging.Logger().Error("scene: destroy", "scene", s.name, "error", err)
		}
	}
	s.ctx = nil
}

// AddGraphicsObject wraps obj as a scene object at position. Positions
// outside 1..N append.
func (s *Scene) AddGraphicsObject(name string, obj *graphics.Object, position int) (*Object, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: nil graphics object", ErrInvalidArgument)
	}
	return s.insert(&Object{name: name, kind: GraphicsObject, drawable: obj, visible: true}, position)
}

// AddElementGroup wraps g as a scene object at position.
func (s *Scene) AddElementGroup(name string, g *graphics.ElementGroup, position int) (*Object, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil element group", ErrInvalidArgument)
	}
	return s.insert(&Object{name: name, kind: ElementGroup, drawable: g, visible: true}, position)
}

// AddChildScene wraps child as a scene object at position. A scene may not
// contain itself, directly or through its children.
func (s *Scene) AddChildScene(name string, child *Scene, position int) (*Object, error) {
	if child == nil {
		return nil, fmt.Errorf("%w: nil child scene", ErrInvalidArgument)
	}
	if child.ctx == nil {
		return nil, fmt.Errorf("%w: child scene %q destroyed", ErrInvalidArgument, child.name)
	}
	if child == s || child.contains(s) {
		return nil, fmt.Errorf("%w: %q inside %q", ErrCycle, child.name, s.name)
	}
	return s.insert(&Object{name: name, kind: ChildScene, child: child, visible: true}, position)
}

func (s *Scene) contains(target *Scene) bool {
	for _, o := range s.objects.Values() {
		if o.child != nil && (o.child == target || o.child.contains(target)) {
			return true
		}
	}
	return false
}

func (s *Scene) insert(o *Object, position int) (*Object, error) {
	if s.ctx == nil {
		return nil, fmt.Errorf("%w: scene destroyed", ErrInvalidArgument)
	}
	if o.name == "" {
		return nil, fmt.Errorf("%w: scene object needs a name", ErrInvalidArgument)
	}
	if _, exists := s.objects.IndexByKeyTry(o.name); exists {
		return nil, fmt.Errorf("%w: %q in scene %q", ErrNameInUse, o.name, s.name)
	}
	o.scene = s
	o.stale = true
	s.place(o, position)
	if o.drawable != nil {
		o.drawableListener = o.drawable.AddListener(func() { s.memberChanged(o) })
	}
	if o.child != nil && o.child.ctx != s.ctx {
		o.childCtx = o.child.ctx
		o.childListener = o.childCtx.Scenes.Register(s.scenesChanged)
	}
	s.degrade(FullStale)
	return o, nil
}

func (s *Scene) place(o *Object, position int) {
	if position >= 1 && position <= s.objects.Len() {
		s.objects.InsertAtIndex(position-1, o.name, o)
	} else {
		s.objects.Add(o.name, o)
	}
}

func (s *Scene) detach(o *Object) {
	if o.drawable != nil {
		o.drawable.RemoveListener(o.drawableListener)
	}
	if o.clock != nil {
		o.clock.removeListener(o.clockListener)
	}
	if o.childCtx != nil {
		o.childCtx.Scenes.Unregister(o.childListener)
		o.childCtx = nil
	}
	o.scene = nil
	o.list = nil
}

// Remove deletes the scene object called name. Later objects move up one
// position.
func (s *Scene) Remove(name string) error {
	o, ok := s.objects.ValueByKeyTry(name)
	if !ok {
		return fmt.Errorf("%w: %q in scene %q", ErrNotFound, name, s.name)
	}
	s.objects.DeleteKey(name)
	s.detach(o)
	s.degrade(FullStale)
	return nil
}

// Reorder moves the object called name to position. Positions outside
// 1..N move it to the end.
func (s *Scene) Reorder(name string, position int) error {
	o, ok := s.objects.ValueByKeyTry(name)
	if !ok {
		return fmt.Errorf("%w: %q in scene %q", ErrNotFound, name, s.name)
	}
	if o.Position() == position {
		return nil
	}
	s.objects.DeleteKey(name)
	s.place(o, position)
	s.degrade(FullStale)
	return nil
}

// SetVisibility shows or hides the object called name.
func (s *Scene) SetVisibility(name string, visible bool) error {
	o, ok := s.objects.ValueByKeyTry(name)
	if !ok {
		return fmt.Errorf("%w: %q in scene %q", ErrNotFound, name, s.name)
	}
	if o.visible != visible {
		o.visible = visible
		s.degrade(FullStale)
	}
	return nil
}

// SetTransform sets the object's transform; nil restores identity. Members
// are not recompiled, only the scene list.
func (s *Scene) SetTransform(name string, m *sdf.M44) error {
	o, ok := s.objects.ValueByKeyTry(name)
	if !ok {
		return fmt.Errorf("%w: %q in scene %q", ErrNotFound, name, s.name)
	}
	if m != nil {
		t := *m
		m = &t
	}
	o.transform = m
	s.degrade(MemberStale)
	return nil
}

// SetTimeObject binds the object called name to tk, or to the scene time
// when tk is nil.
func (s *Scene) SetTimeObject(name string, tk *TimeKeeper) error {
	o, ok := s.objects.ValueByKeyTry(name)
	if !ok {
		return fmt.Errorf("%w: %q in scene %q", ErrNotFound, name, s.name)
	}
	if o.kind == ChildScene {
		return fmt.Errorf("%w: child scene %q has its own time", ErrInvalidArgument, name)
	}
	if o.clock != nil {
		o.clock.removeListener(o.clockListener)
	}
	o.clock = tk
	if tk != nil {
		o.clockListener = tk.addListener(func(float64) {
			if o.drawable.TimeDependent() {
				s.memberChanged(o)
			}
		})
	}
	s.memberChanged(o)
	return nil
}

// SetTime sets the default time. Time-dependent members not bound to a
// time object become stale.
func (s *Scene) SetTime(t float64) {
	if t == s.time {
		return
	}
	s.time = t
	for _, o := range s.objects.Values() {
		if o.clock == nil && o.drawable != nil && o.drawable.TimeDependent() {
			s.memberChanged(o)
		}
	}
}

// Object returns the scene object called name, or nil.
func (s *Scene) Object(name string) *Object {
	return s.objects.ValueByKey(name)
}

// ObjectAt returns the object at a 1-based position, or nil.
func (s *Scene) ObjectAt(position int) *Object {
	if position < 1 || position > s.objects.Len() {
		return nil
	}
	return s.objects.ValueByIndex(position - 1)
}

// Objects returns the scene objects in position order.
func (s *Scene) Objects() []*Object { return s.objects.Values() }

// Len returns the number of scene objects.
func (s *Scene) Len() int { return s.objects.Len() }

// AddLight adds l to the scene.
func (s *Scene) AddLight(l *graphics.Light) error {
	if l == nil {
		return fmt.Errorf("%w: nil light", ErrInvalidArgument)
	}
	if _, exists := s.lights.IndexByKeyTry(l.Name()); exists {
		return fmt.Errorf("%w: light %q in scene %q", ErrNameInUse, l.Name(), s.name)
	}
	s.lights.Add(l.Name(), l)
	s.degrade(MemberStale)
	return nil
}

// RemoveLight removes the light called name.
func (s *Scene) RemoveLight(name string) error {
	if !s.lights.DeleteKey(name) {
		return fmt.Errorf("%w: light %q in scene %q", ErrNotFound, name, s.name)
	}
	s.degrade(MemberStale)
	return nil
}

// Lights returns the scene's lights in the order added.
func (s *Scene) Lights() []*graphics.Light { return s.lights.Values() }

// memberChanged marks o for recompiling.
func (s *Scene) memberChanged(o *Object) {
	o.stale = true
	s.degrade(MemberStale)
}

// degrade lowers the currency to c unless it is already lower, then tells
// scenes containing this one.
func (s *Scene) degrade(c Currency) {
	if c.rank() < s.currency.rank() {
		s.currency = c
	}
	if s.ctx == nil {
		return
	}
	if cur, ok := s.ctx.Scenes.Get(s.name); ok && cur == s {
		if err := s.ctx.Scenes.Changed(s.name); err != nil {
			logging.Logger().Error("scene: notify", "scene", s.name, "error", err)
		}
	}
}

func (s *Scene) resourcesChanged(materials, spectra []string) {
	for _, o := range s.objects.Values() {
		if o.uses(materials, spectra) {
			s.memberChanged(o)
		}
	}
}

func (s *Scene) texturesChanged(msg *manager.Message[*graphics.Texture]) {
	var materials []string
	for _, m := range s.ctx.Materials.All() {
		if m.Texture != "" && msg.Change(m.Texture) != 0 {
			materials = append(materials, m.Name())
		}
	}
	if len(materials) > 0 {
		s.resourcesChanged(materials, nil)
	}
}

func (s *Scene) lightsChanged(msg *manager.Message[*graphics.Light]) {
	changed := false
	for _, name := range msg.Names() {
		l, ok := s.lights.ValueByKeyTry(name)
		if !ok {
			continue
		}
		if obj, _ := msg.Object(name); obj != l {
			continue
		}
		if msg.Has(name, manager.ChangeRemove) {
			s.lights.DeleteKey(name)
		}
		changed = true
	}
	if changed {
		s.degrade(MemberStale)
	}
}

func (s *Scene) scenesChanged(msg *manager.Message[*Scene]) {
	for _, name := range msg.Names() {
		changed, _ := msg.Object(name)
		if changed == s {
			continue
		}
		for _, o := range s.objects.Values() {
			if o.child != changed {
				continue
			}
			if msg.Has(name, manager.ChangeRemove) {
				if err := s.Remove(o.name); err != nil {
					logging.Logger().Error("scene: drop removed child", "scene", s.name, "object", o.name, "error", err)
				}
			} else if msg.Has(name, manager.ChangeObject) {
				s.memberChanged(o)
			}
		}
	}
}

// Compile brings the display list up to date: nothing happens when it is
// current, only stale members are recompiled when member stale, and every
// member is recompiled when full stale. On error the currency is unchanged.
func (s *Scene) Compile() error {
	if s.currency == Current {
		return nil
	}
	full := s.currency == FullStale
	var errs []error
	for _, o := range s.objects.Values() {
		if !o.visible || (!full && !o.stale) {
			continue
		}
		if err := s.compileObject(o); err != nil {
			errs = append(errs, fmt.Errorf("scene %q: object %q: %w", s.name, o.name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		logging.Logger().Error("scene: compile failed", "scene", s.name, "error", err)
		return err
	}
	s.compiles++
	if full {
		s.fullCompiles++
	}
	s.currency = Current
	return nil
}

func (s *Scene) compileObject(o *Object) error {
	switch o.kind {
	case ChildScene:
		if err := o.child.Compile(); err != nil {
			return err
		}
	case GraphicsObject, ElementGroup:
		list, err := o.drawable.Compile(o.time())
		if err != nil {
			return err
		}
		o.list = list
	default:
		logging.Logger().Error("scene: object of unknown kind", "scene", s.name, "object", o.name, "kind", int(o.kind))
		return fmt.Errorf("%w: object kind %d", ErrInvalidArgument, o.kind)
	}
	o.stale = false
	o.compiles++
	return nil
}

// Execute compiles the scene if needed and replays it into r. Every
// visible object is drawn under its position as a selection name; child
// scenes push a further level.
func (s *Scene) Execute(r graphics.Renderer) error {
	if err := s.Compile(); err != nil {
		return err
	}
	s.execute(r)
	return nil
}

func (s *Scene) execute(r graphics.Renderer) {
	for _, l := range s.lights.Values() {
		if l.Enabled {
			r.Light(l)
		}
	}
	r.PushName(0)
	for i, o := range s.objects.Values() {
		if !o.visible {
			continue
		}
		r.LoadName(uint32(i + 1))
		if o.transform != nil {
			r.PushMatrix(*o.transform)
		}
		if o.child != nil {
			o.child.execute(r)
		} else {
			o.list.Execute(r)
		}
		if o.transform != nil {
			r.PopMatrix()
		}
	}
	r.PopName()
}
