package autonomous

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/robocore/internal/properties"
	"github.com/san-kum/robocore/internal/statemachine"
)

// Program keys in the property store.
const (
	NumStatesKey = properties.AutonomousPrefix + "NumStates"
)

func stateKey(i int) string { return fmt.Sprintf("%sState%d", properties.AutonomousPrefix, i) }

func paramKey(i, k int) string {
	return fmt.Sprintf("%sState%dParam%d", properties.AutonomousPrefix, i, k)
}

// Program is a built state list. Err collects every step that fell back to
// WaitForTime(0); States is usable regardless.
type Program struct {
	States []statemachine.State
	Err    error
}

// Names lists the state names in order.
func (p Program) Names() []string {
	return lo.Map(p.States, func(s statemachine.State, _ int) string { return s.Name() })
}

type Loader struct {
	reg    *Registry
	env    *Env
	logger *zap.Logger
}

// MaxStates bounds AutonomousNumStates. No match routine comes close.
const MaxStates = 64

func NewLoader(reg *Registry, env *Env, logger *zap.Logger) *Loader {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{reg: reg, env: env, logger: logger.Named("autonomous")}
}

func (l *Loader) Registry() *Registry { return l.reg }

// Build reads the program from src. Unknown names, rejected parameters and
// factory panics each yield WaitForTime(0) in that slot. A program with
// fewer than one or more than MaxStates states is a single WaitForTime(0).
func (l *Loader) Build(src properties.Source) Program {
	n := src.GetInt(NumStatesKey, -1)
	if n < 1 || n > MaxStates {
		l.logger.Warn("number of states out of range", zap.Int("num_states", n), zap.Int("max", MaxStates))
		return Program{
			States: []statemachine.State{l.fallback()},
			Err:    fmt.Errorf("%w: %s = %d", ErrNoStates, NumStatesKey, n),
		}
	}

	var (
		states []statemachine.State
		errs   error
	)
	for i := 1; i <= n; i++ {
		s, err := l.buildStep(src, i)
		if err != nil {
			l.logger.Warn("state replaced with WaitForTime(0)",
				zap.Int("step", i), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("step %d: %w", i, err))
			s = l.fallback()
		}
		states = append(states, s)
	}
	return Program{States: states, Err: errs}
}

func (l *Loader) buildStep(src properties.Source, i int) (statemachine.State, error) {
	name := src.GetString(stateKey(i), "")
	e, ok := l.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}

	params := make(Params, len(e.Params))
	for k, kind := range e.Params {
		v := src.GetDouble(paramKey(i, k+1), 0)
		if kind == Int {
			v = math.Trunc(v)
		}
		params[k] = v
	}

	s, err := e.build(l.env, params)
	if err != nil {
		return nil, err
	}
	l.logger.Info("instantiated state",
		zap.Int("step", i), zap.String("state", name), zap.Float64s("params", params))
	return s, nil
}

func (l *Loader) fallback() statemachine.State {
	return NewWaitForTime(l.env, 0)
}
