package pick

import (
	"io"
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cmgui/internal/config"
	"github.com/chazu/cmgui/pkg/field"
	"github.com/chazu/cmgui/pkg/fieldtypes"
	"github.com/chazu/cmgui/pkg/graphics"
	"github.com/chazu/cmgui/pkg/mesh"
	"github.com/chazu/cmgui/pkg/scene"
)

// stackedSquares returns a module over two unit square elements, element 1
// at z=0 over nodes 1-4 and element 2 at z=-1 over nodes 5-8.
func stackedSquares(t *testing.T) (*field.Module, *field.Field) {
	t.Helper()
	msh := mesh.New()
	for id := 1; id <= 8; id++ {
		_, err := msh.AddNode(id)
		require.NoError(t, err)
	}
	_, err := msh.AddElement(1, mesh.ShapeSquare, []int{1, 2, 3, 4})
	require.NoError(t, err)
	_, err = msh.AddElement(2, mesh.ShapeSquare, []int{5, 6, 7, 8})
	require.NoError(t, err)

	m := field.NewModule(msh)
	require.NoError(t, fieldtypes.RegisterAll(m.Registry()))
	coords, err := fieldtypes.CreateFiniteElement(m, "coordinates", 3)
	require.NoError(t, err)
	corners := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i, c := range corners {
		require.True(t, fieldtypes.SetNodeValues(coords, msh.Node(i+1), 0, []float64{c[0], c[1], 0}))
		require.True(t, fieldtypes.SetNodeValues(coords, msh.Node(i+5), 0, []float64{c[0], c[1], -1}))
	}
	return m, coords
}

func groupScene(t *testing.T, kind graphics.SettingsKind, objects ...string) *scene.Scene {
	t.Helper()
	m, coords := stackedSquares(t)
	g, err := graphics.NewElementGroup("squares", m, nil, 1)
	require.NoError(t, err)
	_, err = g.AddSettings(graphics.Settings{Kind: kind, Coordinate: coords, Visible: true})
	require.NoError(t, err)
	s, err := scene.New(scene.NewContext(), "root")
	require.NoError(t, err)
	for _, name := range objects {
		_, err = s.AddElementGroup(name, g, 0)
		require.NoError(t, err)
	}
	return s
}

func downRay(t *testing.T, x, y float64) *InteractionVolume {
	t.Helper()
	v, err := Ray(r3.Vec{X: x, Y: y, Z: 10}, r3.Vec{Z: -1}, 0.1, 100)
	require.NoError(t, err)
	return v
}

func TestRayProjection(t *testing.T) {
	v := downRay(t, 0.5, 0.5)
	q := v.Project(r3.Vec{X: 0.55, Y: 0.5, Z: 0})
	assert.InDelta(t, 0.5, q.X, 1e-9)
	assert.InDelta(t, 0, q.Y, 1e-9)
	assert.InDelta(t, -0.8, q.Z, 1e-9)
	assert.True(t, v.Contains(r3.Vec{X: 0.5, Y: 0.5, Z: -50}))
	assert.False(t, v.Contains(r3.Vec{X: 0.5, Y: 0.5, Z: 11}))
	assert.False(t, v.Contains(r3.Vec{X: 0.7, Y: 0.5, Z: 0}))

	_, err := Ray(r3.Vec{}, r3.Vec{}, 1, 1)
	assert.Error(t, err)
	_, err = Ray(r3.Vec{}, r3.Vec{Z: 1}, 0, 1)
	assert.Error(t, err)
}

func TestRayAlongOtherAxes(t *testing.T) {
	for _, dir := range []r3.Vec{{X: 1}, {Y: -1}, {Z: 1}, {X: 1, Y: 1, Z: 1}} {
		v, err := Ray(r3.Vec{}, dir, 0.1, 10)
		require.NoError(t, err)
		d := r3.Unit(dir)
		assert.True(t, v.Contains(r3.Scale(5, d)), "along %v", dir)
		assert.False(t, v.Contains(r3.Scale(-5, d)), "behind %v", dir)
		q := v.Project(r3.Scale(5, d))
		assert.InDelta(t, 0, q.X, 1e-9)
		assert.InDelta(t, 0, q.Y, 1e-9)
		assert.InDelta(t, 0, q.Z, 1e-9)
	}
}

func TestBoxVolume(t *testing.T) {
	v, err := Box(r3.Vec{X: -1, Y: -1, Z: -1}, r3.Vec{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)
	assert.True(t, v.Contains(r3.Vec{X: 0.9, Y: -0.9}))
	assert.False(t, v.Contains(r3.Vec{X: 1.1}))
	assert.InDelta(t, -1, v.Project(r3.Vec{Z: 1}).Z, 1e-9)

	_, err = Box(r3.Vec{}, r3.Vec{X: 1, Y: 1})
	assert.Error(t, err)
	_, err = NewInteractionVolume(sdf.Identity3d(), sdf.Identity3d(), 0, 0, 0, 1)
	assert.Error(t, err)
}

// A volume that misses every primitive is not an error.
func TestPickNothingIsEmpty(t *testing.T) {
	s := groupScene(t, graphics.ElementSurfaces, "squares")
	hits, err := NewPicker(config.Default().Pick).Pick(s, downRay(t, 5, 5))
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
	_, ok := NearestElement(hits)
	assert.False(t, ok)
	_, ok = NearestNode(hits)
	assert.False(t, ok)
}

func TestPickStackedElements(t *testing.T) {
	s := groupScene(t, graphics.ElementSurfaces, "squares")
	hits, err := NewPicker(config.Default().Pick).Pick(s, downRay(t, 0.5, 0.5))
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "squares", hits[0].Object().Name())
	assert.Equal(t, []int{1, 1}, hits[0].Subobjects)
	assert.Equal(t, []int{1, 2}, hits[1].Subobjects)
	assert.Less(t, hits[0].Nearest, hits[1].Nearest)
	assert.InDelta(t, float64(depth(-0.8)), float64(hits[0].Nearest), 4)

	nearest, ok := NearestElement(hits)
	require.True(t, ok)
	assert.Equal(t, 1, nearest.Element.ID)
	assert.Equal(t, "squares", nearest.Group.Name())

	ids := []int{}
	for _, pe := range PickedElements(hits) {
		ids = append(ids, pe.Element.ID)
	}
	assert.Equal(t, []int{1, 2}, ids)
	assert.Empty(t, PickedNodes(hits))
}

func TestPickLines(t *testing.T) {
	s := groupScene(t, graphics.ElementLines, "squares")
	hits, err := NewPicker(config.Default().Pick).Pick(s, downRay(t, 1, 0.5))
	require.NoError(t, err)
	ids := []int{}
	for _, pe := range PickedElements(hits) {
		ids = append(ids, pe.Element.ID)
	}
	assert.Equal(t, []int{1, 2}, ids)

	hits, err = NewPicker(config.Default().Pick).Pick(s, downRay(t, 0.5, 0.5))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPickNodes(t *testing.T) {
	s := groupScene(t, graphics.NodePoints, "squares")
	hits, err := NewPicker(config.Default().Pick).Pick(s, downRay(t, 0, 0))
	require.NoError(t, err)

	nearest, ok := NearestNode(hits)
	require.True(t, ok)
	assert.Equal(t, 1, nearest.Node.ID)
	ids := []int{}
	for _, pn := range PickedNodes(hits) {
		ids = append(ids, pn.Node.ID)
	}
	assert.Equal(t, []int{1, 5}, ids)
	assert.Empty(t, PickedElements(hits))
}

func TestNearestTieGoesToFirstHit(t *testing.T) {
	s := groupScene(t, graphics.ElementSurfaces, "first", "second")
	hits, err := NewPicker(config.Default().Pick).Pick(s, downRay(t, 0.5, 0.5))
	require.NoError(t, err)
	require.Len(t, hits, 4)
	assert.Equal(t, hits[0].Nearest, hits[2].Nearest)

	nearest, ok := NearestElement(hits)
	require.True(t, ok)
	assert.Equal(t, 1, nearest.Element.ID)
	assert.Equal(t, "first", nearest.Hit.Object().Name())

	// Both members draw the same elements; each element is listed once.
	assert.Len(t, PickedElements(hits), 2)

	require.NoError(t, s.Reorder("first", 0))
	hits, err = NewPicker(config.Default().Pick).Pick(s, downRay(t, 0.5, 0.5))
	require.NoError(t, err)
	nearest, _ = NearestElement(hits)
	assert.Equal(t, "second", nearest.Hit.Object().Name())
}

func TestPickHiddenAndTransformed(t *testing.T) {
	s := groupScene(t, graphics.ElementSurfaces, "squares")
	shift := sdf.Translate3d(v3.Vec{X: 5})
	require.NoError(t, s.SetTransform("squares", &shift))

	p := NewPicker(config.Default().Pick)
	hits, err := p.Pick(s, downRay(t, 0.5, 0.5))
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = p.Pick(s, downRay(t, 5.5, 0.5))
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	require.NoError(t, s.SetVisibility("squares", false))
	hits, err = p.Pick(s, downRay(t, 5.5, 0.5))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPickThroughChildScene(t *testing.T) {
	child := groupScene(t, graphics.ElementSurfaces, "squares")
	root, err := scene.New(child.Context(), "outer")
	require.NoError(t, err)
	_, err = root.AddGraphicsObject("marker", graphics.NewObject("marker"), 0)
	require.NoError(t, err)
	_, err = root.AddChildScene("nested", child, 0)
	require.NoError(t, err)

	hits, err := NewPicker(config.Default().Pick).Pick(root, downRay(t, 0.5, 0.5))
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Len(t, hits[0].Path, 2)
	assert.Equal(t, "nested", hits[0].Path[0].Name())
	assert.Equal(t, "squares", hits[0].Path[1].Name())
	assert.Equal(t, []int{1, 1}, hits[0].Subobjects)

	nearest, ok := NearestElement(hits)
	require.True(t, ok)
	assert.Equal(t, 1, nearest.Element.ID)
}

func TestPickSeesChangesInChildFromAnotherContext(t *testing.T) {
	child, err := scene.New(scene.NewContext(), "child")
	require.NoError(t, err)
	root, err := scene.New(scene.NewContext(), "root")
	require.NoError(t, err)
	_, err = root.AddChildScene("nested", child, 0)
	require.NoError(t, err)
	require.NoError(t, root.Compile())

	obj := graphics.NewObject("dot")
	obj.Add(0, graphics.Primitive{Kind: graphics.Points, Vertices: []r3.Vec{{X: 0.5, Y: 0.5}}})
	_, err = child.AddGraphicsObject("dot", obj, 0)
	require.NoError(t, err)

	hits, err := NewPicker(config.Default().Pick).Pick(root, downRay(t, 0.5, 0.5))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Len(t, hits[0].Path, 2)
	assert.Equal(t, "dot", hits[0].Object().Name())
}

// Every hit comes back and the buffer grows one increment per retry.
func TestPickGrowsBuffer(t *testing.T) {
	obj := graphics.NewObject("cloud")
	for i := 1; i <= 20; i++ {
		obj.Add(0, graphics.Primitive{Kind: graphics.Points, Names: []uint32{uint32(i)}, Vertices: []r3.Vec{{}}})
	}
	s, err := scene.New(scene.NewContext(), "root")
	require.NoError(t, err)
	_, err = s.AddGraphicsObject("cloud", obj, 0)
	require.NoError(t, err)

	p := NewPicker(config.PickConfig{InitialBufferSize: 10, BufferIncrement: 10})
	hits, err := p.Pick(s, downRay(t, 0, 0))
	require.NoError(t, err)
	require.Len(t, hits, 20)
	for i, h := range hits {
		assert.Equal(t, []int{i + 1}, h.Subobjects)
		assert.Equal(t, "cloud", h.Object().Name())
	}
	assert.Equal(t, 100, p.BufferSize())
	assert.Equal(t, 9, p.Retries())

	// The grown buffer is kept.
	_, err = p.Pick(s, downRay(t, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 9, p.Retries())
}

func TestPickerDefaults(t *testing.T) {
	p := NewPicker(config.PickConfig{})
	assert.Equal(t, 10000, p.BufferSize())
	assert.Zero(t, p.Retries())

	_, err := p.Pick(nil, nil)
	assert.Error(t, err)
}

func TestSelectRendererOverflow(t *testing.T) {
	v := downRay(t, 0, 0)
	r := newSelectRenderer(v, 4)
	r.PushName(1)
	r.PushName(2)
	r.Draw(&graphics.Primitive{Kind: graphics.Points, Vertices: []r3.Vec{{}}})
	r.PopName()
	r.PopName()
	assert.Equal(t, -1, r.Finish())

	r = newSelectRenderer(v, 5)
	r.PushName(1)
	r.PushName(2)
	r.Draw(&graphics.Primitive{Kind: graphics.Points, Vertices: []r3.Vec{{}, {Z: -80}}})
	assert.Equal(t, 1, r.Finish())
	buf := r.Buffer()
	require.Len(t, buf, 5)
	assert.Equal(t, uint32(2), buf[0])
	assert.InDelta(t, float64(depth(-0.8)), float64(buf[1]), 4)
	assert.InDelta(t, float64(depth(0.8)), float64(buf[2]), 4)
	assert.Equal(t, []uint32{1, 2}, buf[3:])
}

func TestSelectRendererToleratesEmptyStack(t *testing.T) {
	r := newSelectRenderer(downRay(t, 0, 0), 10)
	r.LoadName(3)
	r.PopName()
	r.PopMatrix()
	r.Draw(&graphics.Primitive{Kind: graphics.Points, Vertices: []r3.Vec{{}}})
	assert.Equal(t, 1, r.Finish())
	buf := r.Buffer()
	require.Len(t, buf, 3)
	assert.Equal(t, uint32(0), buf[0])
	assert.Equal(t, buf[1], buf[2])
}

func TestDepth(t *testing.T) {
	assert.Equal(t, uint32(0), depth(-1))
	assert.Equal(t, uint32(math.MaxUint32), depth(1))
	assert.Equal(t, uint32(0), depth(-2))
	assert.Less(t, depth(-0.5), depth(0.5))
}

func TestDecoder(t *testing.T) {
	buf := []uint32{2, 10, 20, 1, 7, 0, 5, 5}
	d := NewDecoder(buf, 2)
	h, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, Hit{Near: 10, Far: 20, Names: []uint32{1, 7}}, h)
	h, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, Hit{Near: 5, Far: 5, Names: []uint32{}}, h)
	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)

	hits, err := Decode(buf, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDecoderMalformed(t *testing.T) {
	tests := []struct {
		name string
		buf  []uint32
		hits int
	}{
		{"overflow count", []uint32{0, 1, 1}, -1},
		{"truncated header", []uint32{1, 2}, 1},
		{"names past end", []uint32{3, 1, 2, 9}, 1},
		{"missing record", []uint32{0, 1, 1}, 2},
		{"depth order", []uint32{0, 9, 1}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.buf, tc.hits)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestClipping(t *testing.T) {
	lo, hi := [3]float64{-1, -1, -1}, [3]float64{1, 1, 1}

	a, b, ok := clipSegment([3]float64{-2, 0, 0}, [3]float64{2, 0, 0.5}, lo, hi)
	require.True(t, ok)
	assert.InDelta(t, -1, a[0], 1e-12)
	assert.InDelta(t, 1, b[0], 1e-12)
	assert.InDelta(t, 0.375, b[2], 1e-12)

	_, _, ok = clipSegment([3]float64{-2, 2, 0}, [3]float64{2, 2, 0}, lo, hi)
	assert.False(t, ok)

	tri := [][3]float64{{-3, -3, 0}, {3, -3, 0}, {0, 3, 0}}
	poly := clipPolygon(tri, lo, hi)
	require.NotEmpty(t, poly)
	for _, p := range poly {
		assert.True(t, inside(p, [3]float64{-1 - 1e-9, -1 - 1e-9, -1}, [3]float64{1 + 1e-9, 1 + 1e-9, 1}))
	}
	assert.Empty(t, clipPolygon([][3]float64{{2, 2, 0}, {3, 2, 0}, {2, 3, 0}}, lo, hi))
}
