package autonomous

import (
	"github.com/san-kum/robocore/internal/statemachine"
)

// Field positions with special meaning. Positions 1-5 are defense slots.
const (
	PositionDoNothing = 7
	PositionReach     = 8
	PositionSpyBot    = 9
	PositionChevy     = 10
)

// Defenses selectable for the default routine.
const (
	DefenseRoughTerrain = 1
	DefenseRockWall     = 2
	DefenseRamparts     = 3
	DefenseMoat         = 4
)

const (
	reachDistance     = 75.0
	reachSpeed        = 0.5
	settleBeforeAimMs = 750
)

// Mode is the operator's auto selection.
type Mode struct {
	Position  int
	Defense   int
	StealBall bool
}

// ProgramFile is the autonomous file the mode loads, or "" when the mode
// needs none.
func ProgramFile(m Mode) string {
	switch m.Position {
	case PositionDoNothing, PositionReach:
		return ""
	case PositionSpyBot:
		return "Spybot.txt"
	case PositionChevy:
		return "CDF.txt"
	}
	switch m.Defense {
	case DefenseRoughTerrain:
		return "RoughTerrain.txt"
	case DefenseRockWall:
		return "RockWall.txt"
	case DefenseRamparts:
		return "Rampparts.txt"
	case DefenseMoat:
		return "Moat.txt"
	}
	return ""
}

// aimHeading is the heading to face the goal from a defense position.
func aimHeading(position int) (float64, bool) {
	switch position {
	case 2:
		return 15, true
	case 3, 4:
		return 5, true
	case 5:
		return 345, true
	}
	return 0, false
}

// Compose wraps a loaded program into the full routine for the mode. The
// spy bot and chevy positions run the program as loaded; other defense
// positions reset the heading, optionally steal a ball, cross the defense,
// turn toward the goal and take an aimed shot.
func (l *Loader) Compose(m Mode, program Program) Program {
	env := l.env
	switch m.Position {
	case PositionDoNothing:
		return Program{States: []statemachine.State{NewWaitForTime(env, 0)}}
	case PositionReach:
		return Program{States: []statemachine.State{NewDriveDistance(env, reachDistance, reachSpeed)}}
	case PositionSpyBot, PositionChevy:
		return l.fill(program)
	}

	states := []statemachine.State{NewResetHeading(env, 0)}
	if m.StealBall {
		states = append(states, NewStealBall(env))
	}
	states = append(states, program.States...)
	states = append(states, NewWaitForTime(env, settleBeforeAimMs))

	angle, ok := aimHeading(m.Position)
	if ok {
		states = append(states, NewTurnToAngle(env, angle))
	} else {
		states = append(states, NewWaitForTime(env, 0))
	}
	// A blind sweep starts toward the aim heading.
	states = append(states, NewAutoAimAndShoot(env, angle))

	return l.fill(Program{States: states, Err: program.Err})
}

// fill replaces nil slots with WaitForTime(0).
func (l *Loader) fill(p Program) Program {
	out := make([]statemachine.State, len(p.States))
	for i, s := range p.States {
		if s == nil {
			s = l.fallback()
		}
		out[i] = s
	}
	if len(out) == 0 {
		out = append(out, l.fallback())
	}
	return Program{States: out, Err: p.Err}
}
