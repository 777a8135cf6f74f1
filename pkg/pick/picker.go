package pick

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/chazu/cmgui/internal/config"
	"github.com/chazu/cmgui/internal/logging"
	"github.com/chazu/cmgui/pkg/graphics"
	"github.com/chazu/cmgui/pkg/mesh"
	"github.com/chazu/cmgui/pkg/scene"
)

// Picker runs selection renders. Its buffer keeps the size it last grew
// to, so later picks of similar scenes do not repeat the growth.
type Picker struct {
	size      int
	increment int
	retries   int
}

// NewPicker returns a picker using the configured initial buffer size and
// growth increment, falling back to the defaults for non-positive values.
func NewPicker(cfg config.PickConfig) *Picker {
	def := config.Default().Pick
	p := &Picker{size: cfg.InitialBufferSize, increment: cfg.BufferIncrement}
	if p.size <= 0 {
		p.size = def.InitialBufferSize
	}
	if p.increment <= 0 {
		p.increment = def.BufferIncrement
	}
	return p
}

// BufferSize returns the current selection buffer size in words.
func (p *Picker) BufferSize() int { return p.size }

// Retries returns how many times a render was repeated after overflow.
func (p *Picker) Retries() int { return p.retries }

// ScenePickedObject is one hit: the chain of scene objects from the root
// scene down to the drawn member, the trailing selection names identifying
// what was hit inside it, and the depth range of the hit.
type ScenePickedObject struct {
	Path       []*scene.Object
	Subobjects []int
	Nearest    uint32
	Farthest   uint32
}

// Object returns the member the hit was drawn by.
func (p *ScenePickedObject) Object() *scene.Object {
	if len(p.Path) == 0 {
		return nil
	}
	return p.Path[len(p.Path)-1]
}

func (p *ScenePickedObject) String() string {
	names := lo.Map(p.Path, func(o *scene.Object, _ int) string { return o.Name() })
	return fmt.Sprintf("%v %v [%d, %d]", names, p.Subobjects, p.Nearest, p.Farthest)
}

// Pick returns every hit of s within v, in hit order. A volume that
// intersects nothing gives an empty list.
func (p *Picker) Pick(s *scene.Scene, v *InteractionVolume) ([]*ScenePickedObject, error) {
	if s == nil || v == nil {
		return nil, fmt.Errorf("pick: scene and interaction volume are required")
	}
	if err := s.Compile(); err != nil {
		return nil, fmt.Errorf("pick: compile scene %q: %w", s.Name(), err)
	}
	var r *selectRenderer
	var n int
	for {
		r = newSelectRenderer(v, p.size)
		if err := s.Execute(r); err != nil {
			return nil, fmt.Errorf("pick: render scene %q: %w", s.Name(), err)
		}
		if n = r.Finish(); n >= 0 {
			break
		}
		p.size += p.increment
		p.retries++
		logging.Logger().Debug("pick: selection buffer overflow", "scene", s.Name(), "size", p.size)
	}
	hits, err := Decode(r.Buffer(), n)
	if err != nil {
		return nil, err
	}
	out := make([]*ScenePickedObject, 0, len(hits))
	for _, h := range hits {
		po, ok := resolve(s, h)
		if !ok {
			logging.Logger().Warn("pick: hit does not resolve to a scene object", "names", h.Names)
			continue
		}
		out = append(out, po)
	}
	return out, nil
}

// resolve walks the hit's names through scene positions, descending into
// child scenes, until it reaches a drawn member.
func resolve(s *scene.Scene, h Hit) (*ScenePickedObject, bool) {
	po := &ScenePickedObject{Nearest: h.Near, Farthest: h.Far}
	names := h.Names
	for len(names) > 0 {
		o := s.ObjectAt(int(names[0]))
		if o == nil {
			return nil, false
		}
		po.Path = append(po.Path, o)
		names = names[1:]
		if o.Child() == nil {
			po.Subobjects = lo.Map(names, func(n uint32, _ int) int { return int(n) })
			return po, true
		}
		s = o.Child()
	}
	return nil, false
}

// PickedElement is an element hit through an element group.
type PickedElement struct {
	Element *mesh.Element
	Group   *graphics.ElementGroup
	Hit     *ScenePickedObject
}

// PickedNode is a node hit through an element group's node points.
type PickedNode struct {
	Node  *mesh.Node
	Group *graphics.ElementGroup
	Hit   *ScenePickedObject
}

// groupSettings returns the element group and settings a hit was drawn
// by, and the hit entity id.
func groupSettings(po *ScenePickedObject) (*graphics.ElementGroup, *graphics.Settings, int, bool) {
	o := po.Object()
	if o == nil || o.ElementGroup() == nil || len(po.Subobjects) < 2 {
		return nil, nil, 0, false
	}
	g := o.ElementGroup()
	st := g.SettingsAt(po.Subobjects[0])
	if st == nil {
		return nil, nil, 0, false
	}
	return g, st, po.Subobjects[1], true
}

func elementHits(hits []*ScenePickedObject) []PickedElement {
	return lo.FilterMap(hits, func(po *ScenePickedObject, _ int) (PickedElement, bool) {
		g, st, id, ok := groupSettings(po)
		if !ok || st.Kind == graphics.NodePoints {
			return PickedElement{}, false
		}
		e := g.Mesh().Element(id)
		return PickedElement{Element: e, Group: g, Hit: po}, e != nil
	})
}

// PickedElements returns the distinct elements hit, in hit order.
func PickedElements(hits []*ScenePickedObject) []PickedElement {
	return lo.UniqBy(elementHits(hits), func(pe PickedElement) *mesh.Element { return pe.Element })
}

func nodeHits(hits []*ScenePickedObject) []PickedNode {
	return lo.FilterMap(hits, func(po *ScenePickedObject, _ int) (PickedNode, bool) {
		g, st, id, ok := groupSettings(po)
		if !ok || st.Kind != graphics.NodePoints {
			return PickedNode{}, false
		}
		n := g.Mesh().Node(id)
		return PickedNode{Node: n, Group: g, Hit: po}, n != nil
	})
}

// PickedNodes returns the distinct nodes hit, in hit order.
func PickedNodes(hits []*ScenePickedObject) []PickedNode {
	return lo.UniqBy(nodeHits(hits), func(pn PickedNode) *mesh.Node { return pn.Node })
}

// NearestElement returns the element hit with the smallest nearest depth.
// Of equal depths the first hit wins.
func NearestElement(hits []*ScenePickedObject) (PickedElement, bool) {
	all := elementHits(hits)
	if len(all) == 0 {
		return PickedElement{}, false
	}
	return lo.MinBy(all, func(a, b PickedElement) bool { return a.Hit.Nearest < b.Hit.Nearest }), true
}

// NearestNode returns the node hit with the smallest nearest depth. Of
// equal depths the first hit wins.
func NearestNode(hits []*ScenePickedObject) (PickedNode, bool) {
	all := nodeHits(hits)
	if len(all) == 0 {
		return PickedNode{}, false
	}
	return lo.MinBy(all, func(a, b PickedNode) bool { return a.Hit.Nearest < b.Hit.Nearest }), true
}
