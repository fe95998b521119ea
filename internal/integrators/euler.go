package integrators

import (
	"fmt"

	"github.com/san-kum/robocore/internal/dynamo"
)

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return x.Add(sys.Derive(x, u, t).Scale(dt))
}

// Names lists the integrators New accepts.
func Names() []string { return []string{"euler", "rk4"} }

// New returns a fresh integrator by name.
func New(name string) (dynamo.Integrator, error) {
	switch name {
	case "rk4", "":
		return NewRK4(), nil
	case "euler":
		return NewEuler(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}
