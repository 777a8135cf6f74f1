// Package scene composes graphics into ordered scenes with lights and a
// compiled display list whose currency degrades on change and is restored
// only by Compile.
package scene

import (
	"errors"

	"github.com/chazu/cmgui/pkg/graphics"
	"github.com/chazu/cmgui/pkg/manager"
)

var (
	// ErrNameInUse reports a scene object or light name collision.
	ErrNameInUse = errors.New("scene: name in use")
	// ErrNotFound reports an unknown scene object or light.
	ErrNotFound = errors.New("scene: not found")
	// ErrCycle reports a child scene that contains its parent.
	ErrCycle = errors.New("scene: child scene cycle")
	// ErrInvalidArgument reports nil or out-of-range arguments.
	ErrInvalidArgument = errors.New("scene: invalid argument")
)

// Context holds the resource managers scenes listen to.
type Context struct {
	Materials *manager.Manager[*graphics.Material]
	Spectra   *manager.Manager[*graphics.Spectrum]
	Textures  *manager.Manager[*graphics.Texture]
	Lights    *manager.Manager[*graphics.Light]
	Scenes    *manager.Manager[*Scene]
}

// NewContext returns a context with empty managers.
func NewContext() *Context {
	return &Context{
		Materials: manager.New[*graphics.Material](),
		Spectra:   manager.New[*graphics.Spectrum](),
		Textures:  manager.New[*graphics.Texture](),
		Lights:    manager.New[*graphics.Light](),
		Scenes:    manager.New[*Scene](),
	}
}
