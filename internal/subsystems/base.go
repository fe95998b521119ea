// Package subsystems holds the robot mechanisms. Each one owns its hal ports
// and a single authority slot naming the controller that drives it; an empty
// slot means open loop, where callers set outputs directly.
//
// Lock order is authority (Base) before any controller lock, and controller
// locks before a subsystem's output lock. The fast loop holds the authority
// lock for the whole controller step, so switching controllers never
// interleaves with a step in progress.
package subsystems

import "sync"

// OpenLoop is the controller name reported when no controller has authority.
const OpenLoop = "OpenLoop"

// Controller is what a subsystem runs every fast-loop tick while the
// controller has authority.
type Controller interface {
	Run()
	Reset()
	String() string
}

// Base is embedded by every subsystem.
type Base struct {
	name string

	mu      sync.Mutex
	current Controller // machine-owned; read by the loop under mu
}

func (b *Base) Name() string { return b.name }

// SetCurrentController gives c authority. The outgoing controller is reset
// so it leaves nothing behind; c itself is not reset, keeping the goal the
// caller set before handing over. Re-selecting the current controller does
// nothing. A nil c is the same as SetOpenLoop.
func (b *Base) SetCurrentController(c Controller) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c == b.current {
		return
	}
	if b.current != nil {
		b.current.Reset()
	}
	b.current = c
}

// SetOpenLoop revokes authority from the current controller, if any.
func (b *Base) SetOpenLoop() {
	b.SetCurrentController(nil)
}

func (b *Base) CurrentController() Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// ControllerName is the current controller's name or OpenLoop.
func (b *Base) ControllerName() string {
	if c := b.CurrentController(); c != nil {
		return c.String()
	}
	return OpenLoop
}

// RunCurrentController steps the controller with authority. It is a no-op in
// open loop.
func (b *Base) RunCurrentController() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.current.Run()
	}
}

func (b *Base) RunInputFilters()  {}
func (b *Base) RunOutputFilters() {}
