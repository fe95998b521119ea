// Package statemachine sequences autonomous behavior. A Machine holds an
// ordered list of States and advances through them one tick at a time:
//
//	tick: enter the current state if it has not been entered,
//	      call Running,
//	      if IsDone, call Exit and move to the next state.
//
// The next state is entered on the following tick, never the same one. Once
// every state has exited, further ticks do nothing.
package statemachine

import (
	"time"

	"github.com/benbjohnson/clock"
)

type State interface {
	Name() string
	Enter()
	Running()
	IsDone() bool
	Exit()
}

// Base supplies a name and empty Enter, Running and Exit hooks. Embedders
// provide IsDone.
type Base struct {
	name string
}

func NewBase(name string) Base { return Base{name: name} }

func (b Base) Name() string   { return b.name }
func (b Base) String() string { return b.name }
func (b Base) Enter()         {}
func (b Base) Running()       {}
func (b Base) Exit()          {}

// TimeoutState is done once its timeout has elapsed since the first Enter.
// States embedding it OR their own completion condition with TimedOut and
// must call TimeoutState.Enter from their own Enter.
type TimeoutState struct {
	Base
	clk     clock.Clock
	timeout time.Duration
	start   time.Time
	started bool
}

func NewTimeoutState(name string, timeout time.Duration, clk clock.Clock) TimeoutState {
	if clk == nil {
		clk = clock.New()
	}
	return TimeoutState{Base: NewBase(name), clk: clk, timeout: timeout}
}

// Enter starts the timer. Later calls keep the original start.
func (t *TimeoutState) Enter() {
	if t.started {
		return
	}
	t.start = t.clk.Now()
	t.started = true
}

func (t *TimeoutState) Timeout() time.Duration { return t.timeout }

// Elapsed is zero before Enter.
func (t *TimeoutState) Elapsed() time.Duration {
	if !t.started {
		return 0
	}
	return t.clk.Since(t.start)
}

// TimedOut reports elapsed >= timeout. It is false before Enter.
func (t *TimeoutState) TimedOut() bool {
	return t.started && t.Elapsed() >= t.timeout
}

func (t *TimeoutState) IsDone() bool { return t.TimedOut() }
