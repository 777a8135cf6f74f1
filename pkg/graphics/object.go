package graphics

import (
	"slices"
	"sort"
)

// Drawable is a scene member that compiles to a display list.
type Drawable interface {
	Name() string
	// Compile returns the display list for time, rebuilding it if the
	// drawable changed since the last call.
	Compile(time float64) (*DisplayList, error)
	// TimeDependent reports whether Compile results vary with time.
	TimeDependent() bool
	// Materials and Spectra name the resources the drawable uses.
	Materials() []string
	Spectra() []string
	// AddListener registers fn to run whenever the drawable changes.
	AddListener(fn func()) int
	RemoveListener(id int)
}

type listeners struct {
	next int
	fns  []listenerFn
}

type listenerFn struct {
	id int
	fn func()
}

func (ls *listeners) add(fn func()) int {
	ls.next++
	ls.fns = append(ls.fns, listenerFn{id: ls.next, fn: fn})
	return ls.next
}

func (ls *listeners) remove(id int) {
	ls.fns = slices.DeleteFunc(ls.fns, func(l listenerFn) bool { return l.id == id })
}

func (ls *listeners) notify() {
	for _, l := range slices.Clone(ls.fns) {
		l.fn()
	}
}

// Object is a graphics object holding explicit primitives, optionally as
// a time series. Compile at time t uses the last set at or before t, or
// the first set if t precedes them all.
type Object struct {
	name     string
	material string
	spectrum string
	times    []float64
	sets     [][]Primitive
	version  uint64

	list        *DisplayList
	listVersion uint64
	listIndex   int
	listeners   listeners
}

var _ Drawable = (*Object)(nil)

// NewObject returns an empty graphics object.
func NewObject(name string) *Object {
	return &Object{name: name, listIndex: -1}
}

func (o *Object) Name() string { return o.name }

// Version increments on every change.
func (o *Object) Version() uint64 { return o.version }

// SetMaterial sets the material used by primitives that name none.
func (o *Object) SetMaterial(name string) {
	o.material = name
	o.changed()
}

// SetSpectrum sets the spectrum used by primitives that name none.
func (o *Object) SetSpectrum(name string) {
	o.spectrum = name
	o.changed()
}

// Add appends p to the primitive set at time.
func (o *Object) Add(time float64, p Primitive) {
	i := sort.SearchFloat64s(o.times, time)
	if i == len(o.times) || o.times[i] != time {
		o.times = slices.Insert(o.times, i, time)
		o.sets = slices.Insert(o.sets, i, []Primitive(nil))
	}
	o.sets[i] = append(o.sets[i], p)
	o.changed()
}

// Clear removes all primitives.
func (o *Object) Clear() {
	o.times = nil
	o.sets = nil
	o.changed()
}

// Times returns the times primitives are stored at.
func (o *Object) Times() []float64 { return slices.Clone(o.times) }

func (o *Object) TimeDependent() bool { return len(o.times) > 1 }

func (o *Object) Materials() []string { return o.used(func(p *Primitive) string { return p.Material }, o.material) }

func (o *Object) Spectra() []string { return o.used(func(p *Primitive) string { return p.Spectrum }, o.spectrum) }

func (o *Object) used(get func(*Primitive) string, fallback string) []string {
	var names []string
	for _, set := range o.sets {
		for i := range set {
			name := get(&set[i])
			if name == "" {
				name = fallback
			}
			if name != "" && !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

func (o *Object) AddListener(fn func()) int { return o.listeners.add(fn) }

func (o *Object) RemoveListener(id int) { o.listeners.remove(id) }

func (o *Object) changed() {
	o.version++
	o.listeners.notify()
}

func (o *Object) setAt(time float64) int {
	if len(o.times) == 0 {
		return -1
	}
	i := sort.SearchFloat64s(o.times, time)
	if i < len(o.times) && o.times[i] == time {
		return i
	}
	return max(0, i-1)
}

// Compile returns the primitives for time with default resources applied.
func (o *Object) Compile(time float64) (*DisplayList, error) {
	idx := o.setAt(time)
	if o.list != nil && o.listVersion == o.version && o.listIndex == idx {
		return o.list, nil
	}
	dl := &DisplayList{}
	if idx >= 0 {
		for _, p := range o.sets[idx] {
			if p.Material == "" {
				p.Material = o.material
			}
			if p.Spectrum == "" {
				p.Spectrum = o.spectrum
			}
			dl.Add(p)
		}
	}
	o.list, o.listVersion, o.listIndex = dl, o.version, idx
	return dl, nil
}
