package scene

import "slices"

// TimeKeeper is a shared clock scene objects can be bound to.
type TimeKeeper struct {
	time      float64
	next      int
	listeners []timeListener
}

type timeListener struct {
	id int
	fn func(float64)
}

// NewTimeKeeper returns a clock at time t.
func NewTimeKeeper(t float64) *TimeKeeper {
	return &TimeKeeper{time: t}
}

// Time returns the current time.
func (tk *TimeKeeper) Time() float64 { return tk.time }

// SetTime moves the clock and notifies listeners if the time changed.
func (tk *TimeKeeper) SetTime(t float64) {
	if t == tk.time {
		return
	}
	tk.time = t
	for _, l := range slices.Clone(tk.listeners) {
		l.fn(t)
	}
}

func (tk *TimeKeeper) addListener(fn func(float64)) int {
	tk.next++
	tk.listeners = append(tk.listeners, timeListener{id: tk.next, fn: fn})
	return tk.next
}

func (tk *TimeKeeper) removeListener(id int) {
	tk.listeners = slices.DeleteFunc(tk.listeners, func(l timeListener) bool { return l.id == id })
}
