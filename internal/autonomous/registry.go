// Package autonomous turns a program written in the property store into a
// sequence of states. Each step names a registered state and supplies its
// numeric parameters:
//
//	AutonomousNumStates = 2
//	AutonomousState1 = DriveOverDefense
//	AutonomousState1Param1 = 100
//	AutonomousState1Param2 = 0.8
//	AutonomousState1Param3 = 60
//	AutonomousState2 = JustShoot
//	AutonomousState2Param1 = 5000
//
// Any step that cannot be built becomes WaitForTime(0); building a program
// never fails.
package autonomous

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/san-kum/robocore/internal/statemachine"
)

var (
	// ErrUnknownState indicates a step naming no registered state.
	ErrUnknownState = errors.New("autonomous: unknown state")

	// ErrInvalidParam indicates parameters a state factory rejected.
	ErrInvalidParam = errors.New("autonomous: invalid parameter")

	// ErrNoStates indicates a program declaring fewer than one state.
	ErrNoStates = errors.New("autonomous: program has no states")
)

// ParamKind is the numeric kind of one factory parameter.
type ParamKind int

const (
	Real ParamKind = iota
	Int
)

func (k ParamKind) String() string {
	if k == Int {
		return "int"
	}
	return "real"
}

// Params holds parameter values already coerced to their declared kind.
type Params []float64

// Real returns parameter i, or 0 when absent.
func (p Params) Real(i int) float64 {
	if i < 0 || i >= len(p) {
		return 0
	}
	return p[i]
}

// Int returns parameter i truncated toward zero.
func (p Params) Int(i int) int {
	return int(p.Real(i))
}

// Factory builds a state from coerced parameters.
type Factory func(env *Env, p Params) (statemachine.State, error)

type Entry struct {
	Name   string
	Params []ParamKind
	New    Factory
}

// Signature renders the entry as Name(kind, ...).
func (e Entry) Signature() string {
	kinds := lo.Map(e.Params, func(k ParamKind, _ int) string { return k.String() })
	s := e.Name + "("
	for i, k := range kinds {
		if i > 0 {
			s += ", "
		}
		s += k
	}
	return s + ")"
}

type Registry struct {
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, params []ParamKind, f Factory) {
	r.entries[name] = Entry{Name: name, Params: params, New: f}
}

func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names lists registered state names in order.
func (r *Registry) Names() []string {
	names := lo.Keys(r.entries)
	sort.Strings(names)
	return names
}

// New builds the named state. Panics inside the factory are returned as
// errors.
func (r *Registry) New(env *Env, name string, p Params) (statemachine.State, error) {
	e, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return e.build(env, p)
}

func (e Entry) build(env *Env, p Params) (s statemachine.State, err error) {
	if len(p) != len(e.Params) {
		return nil, fmt.Errorf("%w: %s takes %d parameters, got %d", ErrInvalidParam, e.Name, len(e.Params), len(p))
	}
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("autonomous: building %s panicked: %v", e.Name, r)
		}
	}()
	s, err = e.New(env, p)
	if err == nil && s == nil {
		err = fmt.Errorf("autonomous: %s factory returned no state", e.Name)
	}
	return s, err
}

// DefaultRegistry registers every state the robot's program files use.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("WaitForTime", []ParamKind{Int}, func(env *Env, p Params) (statemachine.State, error) {
		if p.Int(0) < 0 {
			return nil, fmt.Errorf("%w: negative wait %d", ErrInvalidParam, p.Int(0))
		}
		return NewWaitForTime(env, p.Int(0)), nil
	})
	r.Register("ResetHeading", []ParamKind{Real}, func(env *Env, p Params) (statemachine.State, error) {
		return NewResetHeading(env, p.Real(0)), nil
	})
	r.Register("DeployIntake", []ParamKind{Real}, func(env *Env, p Params) (statemachine.State, error) {
		return NewDeployIntake(env, p.Real(0)), nil
	})
	r.Register("StartShooter", []ParamKind{Real}, func(env *Env, p Params) (statemachine.State, error) {
		if p.Real(0) < 0 {
			return nil, fmt.Errorf("%w: negative rpm %g", ErrInvalidParam, p.Real(0))
		}
		return NewStartShooter(env, p.Real(0)), nil
	})
	r.Register("JustShoot", []ParamKind{Int}, func(env *Env, p Params) (statemachine.State, error) {
		if p.Int(0) < 0 {
			return nil, fmt.Errorf("%w: negative timeout %d", ErrInvalidParam, p.Int(0))
		}
		return NewJustShoot(env, p.Int(0)), nil
	})
	r.Register("StealBall", nil, func(env *Env, _ Params) (statemachine.State, error) {
		return NewStealBall(env), nil
	})
	r.Register("DriveToDefense", []ParamKind{Real, Real}, func(env *Env, p Params) (statemachine.State, error) {
		return NewDriveToDefense(env, p.Real(0), p.Real(1)), nil
	})
	r.Register("DriveOverDefense", []ParamKind{Real, Real, Real}, func(env *Env, p Params) (statemachine.State, error) {
		return NewDriveOverDefense(env, p.Real(0), p.Real(1), p.Real(2)), nil
	})
	r.Register("AltDriveOverDefense", []ParamKind{Real, Int}, func(env *Env, p Params) (statemachine.State, error) {
		if p.Int(1) < 0 {
			return nil, fmt.Errorf("%w: negative timeout %d", ErrInvalidParam, p.Int(1))
		}
		return NewAltDriveOverDefense(env, p.Real(0), p.Int(1)), nil
	})
	r.Register("AutoAimAndShoot", []ParamKind{Real}, func(env *Env, p Params) (statemachine.State, error) {
		return NewAutoAimAndShoot(env, p.Real(0)), nil
	})
	r.Register("DriveDistance", []ParamKind{Real, Real}, func(env *Env, p Params) (statemachine.State, error) {
		return NewDriveDistance(env, p.Real(0), p.Real(1)), nil
	})
	r.Register("TurnToAngle", []ParamKind{Real}, func(env *Env, p Params) (statemachine.State, error) {
		return NewTurnToAngle(env, p.Real(0)), nil
	})

	return r
}
