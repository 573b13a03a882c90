// Package module holds the lifecycle machinery of the qudi daemon: the
// module interface the instrument implementations satisfy, the Base they
// embed for state tracking, and the Manager that wires and activates the
// modules declared in the configuration.
package module

import (
	"sync"

	"github.com/mvchalupnik/qudi/config"
	"github.com/mvchalupnik/qudi/events"
)

// State the state of a managed module
type State int

const (
	// Deactivated the module is loaded but not activated
	Deactivated State = 0

	// Idle the module is activated and ready
	Idle State = 10

	// Running the module performs a continuous activity, e.g. monitoring or acquisition
	Running State = 20

	// Locked the module holds exclusive hardware and must not be interrupted
	Locked State = 30
)

// String convert State to human-readable string
func (s State) String() string {
	switch s {
	case Deactivated:
		return "Deactivated"
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Locked:
		return "Locked"
	default:
		return "Unknown"
	}
}

// Module is implemented by every local instrument, logic and gui module
type Module interface {
	GetName() string
	Activate() error
	Deactivate() error
	State() State
}

// Connectable is implemented by modules with a connect mapping in their
// descriptor. The manager injects every resolved dependency before
// activation; target is either the local instance or a *remote.Proxy.
type Connectable interface {
	Connect(role string, target interface{}) error
}

// Base carries the descriptor-derived identity and the state machine of a
// module implementation. Embed it and use SetState for Idle/Running/Locked
// transitions during operation.
type Base struct {
	name string
	base string

	stateLock sync.RWMutex
	state     State
}

// NewBase creates the Base for a module built from the given descriptor
func NewBase(d *config.Descriptor) Base {
	return Base{name: d.Name, base: d.Base, state: Deactivated}
}

// GetName returns the configured name of the module
func (b *Base) GetName() string {
	return b.name
}

// GetBase returns the group the module belongs to (hardware, logic or gui)
func (b *Base) GetBase() string {
	return b.base
}

// State returns the current module state
func (b *Base) State() State {
	b.stateLock.RLock()
	defer b.stateLock.RUnlock()
	return b.state
}

// SetState transitions the module state and emits a state change event
func (b *Base) SetState(s State) {
	b.stateLock.Lock()
	from := b.state
	b.state = s
	b.stateLock.Unlock()
	if from != s {
		events.Emit(events.CreateModuleStateEvent(b.name, b.base, from.String(), s.String()))
	}
}
