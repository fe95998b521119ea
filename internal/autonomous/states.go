package autonomous

import (
	"time"

	"github.com/san-kum/robocore/internal/statemachine"
)

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// WaitForTime does nothing for a fixed number of milliseconds.
type WaitForTime struct {
	statemachine.TimeoutState
}

func NewWaitForTime(env *Env, ms int) *WaitForTime {
	return &WaitForTime{TimeoutState: statemachine.NewTimeoutState("WaitForTime", millis(ms), env.clock())}
}

// ResetHeading makes the current heading read as the given angle.
type ResetHeading struct {
	statemachine.Base
	env   *Env
	angle float64
}

func NewResetHeading(env *Env, angle float64) *ResetHeading {
	return &ResetHeading{Base: statemachine.NewBase("ResetHeading"), env: env, angle: angle}
}

func (s *ResetHeading) Enter()       { s.env.Nav.ResetHeading(s.angle) }
func (s *ResetHeading) IsDone() bool { return true }

// DeployIntake moves the intake piston: a positive parameter retracts, any
// other value deploys.
type DeployIntake struct {
	statemachine.Base
	env     *Env
	retract bool
}

func NewDeployIntake(env *Env, v float64) *DeployIntake {
	return &DeployIntake{Base: statemachine.NewBase("DeployIntake"), env: env, retract: v > 0}
}

func (s *DeployIntake) Enter() {
	if s.retract {
		s.env.Intake.Retract()
	} else {
		s.env.Intake.Deploy()
	}
}

func (s *DeployIntake) IsDone() bool { return true }

// StartShooter hands the flywheel to the speed controller at the given rpm
// and finishes immediately; the wheel keeps spinning up behind later states.
type StartShooter struct {
	statemachine.Base
	env *Env
	rpm float64
}

func NewStartShooter(env *Env, rpm float64) *StartShooter {
	return &StartShooter{Base: statemachine.NewBase("StartShooter"), env: env, rpm: rpm}
}

func (s *StartShooter) Enter() {
	s.env.Shooter.SetOpenLoop()
	s.env.ShooterSpeed.SetGoal(s.rpm)
	s.env.Shooter.SetCurrentController(s.env.ShooterSpeed)
}

func (s *StartShooter) IsDone() bool { return true }

const (
	stealBallTimeout       = 2000 * time.Millisecond
	stealBallIntakeSpeed   = 1.0
	stealBallConveyorSpeed = 0.6
)

// StealBall runs the intake until the ball sensor trips or two seconds
// pass, then puts the intake back down.
type StealBall struct {
	statemachine.TimeoutState
	env *Env
}

func NewStealBall(env *Env) *StealBall {
	return &StealBall{
		TimeoutState: statemachine.NewTimeoutState("StealBall", stealBallTimeout, env.clock()),
		env:          env,
	}
}

func (s *StealBall) Enter() {
	s.TimeoutState.Enter()
	s.env.Intake.Retract()
}

func (s *StealBall) Running() {
	if s.env.Intake.SeesBall() {
		s.env.Intake.SetIntakeSpeed(0)
		s.env.Intake.SetConveyorSpeed(0)
		return
	}
	s.env.Intake.SetIntakeSpeed(stealBallIntakeSpeed)
	s.env.Intake.SetConveyorSpeed(stealBallConveyorSpeed)
}

func (s *StealBall) IsDone() bool {
	return s.env.Intake.SeesBall() || s.TimedOut()
}

func (s *StealBall) Exit() {
	s.env.Intake.SetIntakeSpeed(0)
	s.env.Intake.SetConveyorSpeed(0)
	s.env.Intake.Deploy()
}
