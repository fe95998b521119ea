// Package vision exposes the goal tracker as an opaque source of target
// visibility, bearing and range.
package vision

import "sync"

// Source is read by the aiming controllers and states.
type Source interface {
	SeesTarget() bool
	// Angle is the bearing to the target in degrees, positive clockwise.
	Angle() float64
	// Range is the distance to the target in inches.
	Range() float64
}

type Target struct {
	Visible bool
	Angle   float64
	Range   float64
}

// Static is a Source whose reading is pushed by a producer, such as the
// simulated plant or a network listener.
type Static struct {
	mu     sync.RWMutex
	target Target
}

func NewStatic(t Target) *Static {
	return &Static{target: t}
}

func (s *Static) Set(t Target) {
	s.mu.Lock()
	s.target = t
	s.mu.Unlock()
}

func (s *Static) Target() Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

func (s *Static) SeesTarget() bool { return s.Target().Visible }
func (s *Static) Angle() float64   { return s.Target().Angle }
func (s *Static) Range() float64   { return s.Target().Range }
