package field

import "github.com/chazu/cmgui/internal/logging"

// ChangeFlags describe how a field changed.
type ChangeFlags uint8

const (
	ChangeAdd ChangeFlags = 1 << iota
	ChangeRemove
	ChangeDefinition
	ChangeValues
	ChangeIdentifier
	// ChangeRelated marks a field whose sources changed.
	ChangeRelated
)

// ChangeFull is any change that alters the values of a field.
const ChangeFull = ChangeAdd | ChangeRemove | ChangeDefinition | ChangeValues | ChangeRelated

// Changes summarises the field changes made since the last notification.
type Changes struct {
	flags map[*Field]ChangeFlags
	order []*Field
}

func (c *Changes) add(f *Field, flags ChangeFlags) {
	if c.flags == nil {
		c.flags = make(map[*Field]ChangeFlags)
	}
	if _, seen := c.flags[f]; !seen {
		c.order = append(c.order, f)
	}
	c.flags[f] |= flags
}

// Fields returns the changed fields in the order they first changed.
func (c *Changes) Fields() []*Field { return append([]*Field(nil), c.order...) }

// Flags returns the accumulated flags for f.
func (c *Changes) Flags(f *Field) ChangeFlags { return c.flags[f] }

// Any reports whether any field has one of the given flags.
func (c *Changes) Any(mask ChangeFlags) bool {
	for _, fl := range c.flags {
		if fl&mask != 0 {
			return true
		}
	}
	return false
}

// Affects reports whether f changed in a way that alters its values.
func (c *Changes) Affects(f *Field) bool { return c.flags[f]&ChangeFull != 0 }

// Len returns the number of changed fields.
func (c *Changes) Len() int { return len(c.order) }

// BeginChange starts a batch of edits. Notifications are held until the
// matching EndChange brings the depth back to zero.
func (m *Module) BeginChange() { m.changeDepth++ }

// EndChange closes a batch started by BeginChange.
func (m *Module) EndChange() {
	if m.changeDepth == 0 {
		logging.Logger().Warn("field module end change without begin change")
		return
	}
	m.changeDepth--
	if m.changeDepth == 0 {
		m.flush()
	}
}

// ChangeDepth returns the current begin/end change nesting.
func (m *Module) ChangeDepth() int { return m.changeDepth }

// AddCallback registers fn to receive change summaries and returns an id
// for RemoveCallback.
func (m *Module) AddCallback(fn func(*Changes)) int {
	m.nextID++
	m.callbacks = append(m.callbacks, callback{id: m.nextID, fn: fn})
	return m.nextID
}

// RemoveCallback unregisters a callback.
func (m *Module) RemoveCallback(id int) {
	for i, cb := range m.callbacks {
		if cb.id == id {
			m.callbacks = append(m.callbacks[:i], m.callbacks[i+1:]...)
			return
		}
	}
}

// changed records a change to f and to every field using it, then notifies
// unless a change batch is open.
func (m *Module) changed(f *Field, flags ChangeFlags) {
	m.generation++
	if m.pending == nil {
		m.pending = &Changes{}
	}
	m.pending.add(f, flags)
	if flags&ChangeFull != 0 && flags&ChangeRemove == 0 {
		for _, d := range m.dependants(f) {
			m.pending.add(d, ChangeRelated)
		}
	}
	if m.changeDepth == 0 {
		m.flush()
	}
}

func (m *Module) flush() {
	if m.pending == nil || m.pending.Len() == 0 {
		return
	}
	changes := m.pending
	m.pending = nil
	for _, cb := range append([]callback(nil), m.callbacks...) {
		cb.fn(changes)
	}
}
