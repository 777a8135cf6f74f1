// Package manager holds named shared resources (materials, spectra,
// textures, lights, scenes) and tells registered listeners when they
// change. Changes are batched between BeginChange and
// EndChange; listeners see one Message per outermost batch.
package manager

import (
	"errors"
	"fmt"

	"cogentcore.org/core/base/ordmap"

	"github.com/chazu/cmgui/internal/logging"
)

var (
	// ErrNameInUse reports an Add or Rename onto an existing name.
	ErrNameInUse = errors.New("manager: name in use")
	// ErrNotFound reports an operation on a name the manager does not hold.
	ErrNotFound = errors.New("manager: not found")
)

// Named is anything a Manager can hold.
type Named interface {
	Name() string
}

// Change describes what happened to one managed object.
type Change int

const (
	ChangeAdd Change = 1 << iota
	ChangeRemove
	ChangeObject
	ChangeIdentifier
)

// Message collects the changes of one batch, in first-change order.
type Message[T Named] struct {
	changes *ordmap.Map[string, Change]
	objects map[string]T
}

func newMessage[T Named]() *Message[T] {
	return &Message[T]{changes: ordmap.New[string, Change](), objects: make(map[string]T)}
}

func (msg *Message[T]) add(obj T, c Change) {
	name := obj.Name()
	prev, _ := msg.changes.ValueByKeyTry(name)
	msg.changes.Add(name, prev|c)
	msg.objects[name] = obj
}

// Names returns the changed names in the order they first changed.
func (msg *Message[T]) Names() []string { return msg.changes.Keys() }

// Change returns the accumulated change for name, or zero.
func (msg *Message[T]) Change(name string) Change {
	return msg.changes.ValueByKey(name)
}

// Object returns the object the change for name refers to. Removed objects
// are still returned so listeners can drop their references.
func (msg *Message[T]) Object(name string) (T, bool) {
	obj, ok := msg.objects[name]
	return obj, ok
}

// Has reports whether obj changed in any of the given ways.
func (msg *Message[T]) Has(name string, c Change) bool {
	return msg.Change(name)&c != 0
}

// Len returns the number of changed objects.
func (msg *Message[T]) Len() int { return msg.changes.Len() }

type listener[T Named] struct {
	id int
	fn func(*Message[T])
}

// Manager is an ordered set of named objects with change notification.
// It is not safe for concurrent use.
type Manager[T Named] struct {
	items     *ordmap.Map[string, T]
	depth     int
	pending   *Message[T]
	listeners []listener[T]
	nextID    int
}

// New returns an empty manager.
func New[T Named]() *Manager[T] {
	return &Manager[T]{items: ordmap.New[string, T]()}
}

// Add inserts obj. Names must be unique.
func (m *Manager[T]) Add(obj T) error {
	name := obj.Name()
	if _, exists := m.items.ValueByKeyTry(name); exists {
		return fmt.Errorf("%w: %q", ErrNameInUse, name)
	}
	m.items.Add(name, obj)
	m.notify(obj, ChangeAdd)
	return nil
}

// Remove drops the object called name.
func (m *Manager[T]) Remove(name string) error {
	obj, ok := m.items.ValueByKeyTry(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	m.items.DeleteKey(name)
	m.notify(obj, ChangeRemove)
	return nil
}

// Rename changes the key of a held object. rename is called to update the
// object itself before listeners are notified.
func (m *Manager[T]) Rename(oldName, newName string, rename func(T)) error {
	idx, ok := m.items.IndexByKeyTry(oldName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, oldName)
	}
	if _, exists := m.items.ValueByKeyTry(newName); exists {
		return fmt.Errorf("%w: %q", ErrNameInUse, newName)
	}
	obj := m.items.ValueByIndex(idx)
	rename(obj)
	m.items.ReplaceIndex(idx, newName, obj)
	m.notify(obj, ChangeIdentifier)
	return nil
}

// Get returns the object called name.
func (m *Manager[T]) Get(name string) (T, bool) {
	return m.items.ValueByKeyTry(name)
}

// Contains reports whether name is held.
func (m *Manager[T]) Contains(name string) bool {
	_, ok := m.items.IndexByKeyTry(name)
	return ok
}

// All returns the held objects in insertion order.
func (m *Manager[T]) All() []T { return m.items.Values() }

// Names returns the held names in insertion order.
func (m *Manager[T]) Names() []string { return m.items.Keys() }

// Len returns the number of held objects.
func (m *Manager[T]) Len() int { return m.items.Len() }

// Changed records that the object called name was modified.
func (m *Manager[T]) Changed(name string) error {
	obj, ok := m.items.ValueByKeyTry(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	m.notify(obj, ChangeObject)
	return nil
}

// BeginChange starts a batch. Batches nest.
func (m *Manager[T]) BeginChange() {
	m.depth++
}

// EndChange closes a batch and notifies listeners when the outermost
// batch ends.
func (m *Manager[T]) EndChange() {
	if m.depth == 0 {
		logging.Logger().Warn("manager: EndChange without BeginChange")
		return
	}
	m.depth--
	if m.depth == 0 {
		m.flush()
	}
}

// Register adds a listener and returns an id for Unregister.
func (m *Manager[T]) Register(fn func(*Message[T])) int {
	m.nextID++
	m.listeners = append(m.listeners, listener[T]{id: m.nextID, fn: fn})
	return m.nextID
}

// Unregister removes a listener. It reports whether id was registered.
func (m *Manager[T]) Unregister(id int) bool {
	for i, l := range m.listeners {
		if l.id == id {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Listeners returns the number of registered listeners.
func (m *Manager[T]) Listeners() int { return len(m.listeners) }

func (m *Manager[T]) notify(obj T, c Change) {
	if m.pending == nil {
		m.pending = newMessage[T]()
	}
	m.pending.add(obj, c)
	if m.depth == 0 {
		m.flush()
	}
}

func (m *Manager[T]) flush() {
	msg := m.pending
	m.pending = nil
	if msg == nil || msg.Len() == 0 {
		return
	}
	// Listeners may unregister themselves while being called.
	ls := append([]listener[T](nil), m.listeners...)
	for _, l := range ls {
		l.fn(msg)
	}
}
