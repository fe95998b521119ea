package autonomous

import (
	"time"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/statemachine"
)

const (
	justShootRPM        = 4750
	justShootSettle     = 5
	shotDuration        = 2 * time.Second
	conveyorFeedSpeed   = 1.0
	autoAimRPM          = 4000
	autoAimSettle       = 10
	autoAimMinRange     = 230.0
	autoAimMaxRange     = 300.0
	autoAimRangeSpeed   = 0.5
	autoAimSweepTurn    = 0.5
	autoAimRangeOnly    = time.Second
	autoAimSweepInitial = 250 * time.Millisecond
	autoAimSweepGrowth  = 250 * time.Millisecond
)

// JustShoot spins the flywheel up where it stands and feeds the ball once
// the wheel has held speed for a few consecutive ticks.
type JustShoot struct {
	statemachine.TimeoutState
	env       *Env
	settled   int
	feeding   bool
	feedStart time.Time
	fired     bool
}

func NewJustShoot(env *Env, timeoutMs int) *JustShoot {
	return &JustShoot{
		TimeoutState: statemachine.NewTimeoutState("JustShoot", millis(timeoutMs), env.clock()),
		env:          env,
	}
}

func (s *JustShoot) Enter() {
	s.TimeoutState.Enter()
	s.settled, s.feeding, s.fired = 0, false, false
	s.env.ShooterSpeed.SetGoal(justShootRPM)
	s.env.Shooter.SetCurrentController(s.env.ShooterSpeed)
}

func (s *JustShoot) Running() {
	clk := s.env.clock()
	if s.fired {
		return
	}
	if s.env.ShooterSpeed.OnTarget() {
		s.env.Shooter.SetStatusLight(true)
		s.settled++
		if s.settled > justShootSettle {
			s.env.Intake.SetConveyorSpeed(conveyorFeedSpeed)
			if !s.feeding {
				s.feeding = true
				s.feedStart = clk.Now()
			}
		}
	} else {
		s.env.Shooter.SetStatusLight(false)
		s.settled = 0
		s.feeding = false
	}

	if s.feeding && clk.Since(s.feedStart) >= shotDuration {
		s.fired = true
		s.env.Intake.SetConveyorSpeed(0)
		s.env.Shooter.SetSpeed(0)
	}
}

func (s *JustShoot) IsDone() bool { return s.TimedOut() || s.fired }

func (s *JustShoot) Exit() {
	s.env.Shooter.SetOpenLoop()
	s.env.Shooter.SetSpeed(0)
	s.env.Shooter.SetStatusLight(false)
	s.env.Intake.SetConveyorSpeed(0)
}

// AutoAimAndShoot finds the goal, closes to shooting range, aims with the
// vision controller and fires once drive, range, and flywheel all agree.
// While the goal is out of view it sweeps left and right of aimAngle with
// a widening window.
type AutoAimAndShoot struct {
	statemachine.Base
	env      *Env
	aimAngle float64

	driveStart time.Time
	sweepDir   float64
	sweepStart time.Time
	sweepWait  time.Duration
	settled    int
	feeding    bool
	feedStart  time.Time
	fired      bool
}

func NewAutoAimAndShoot(env *Env, aimAngle float64) *AutoAimAndShoot {
	return &AutoAimAndShoot{Base: statemachine.NewBase("AutoAimAndShoot"), env: env, aimAngle: aimAngle}
}

func (s *AutoAimAndShoot) Enter() {
	sh := s.env.Shooter
	sh.SetOuterworksPosition()
	sh.RetractBarrier()
	sh.SetVisionLight(true)
	s.env.ShooterSpeed.SetGoal(autoAimRPM)
	s.env.Drive.UseAlphaFilter(true)
	sh.SetCurrentController(s.env.ShooterSpeed)

	s.driveStart = s.env.clock().Now()
	s.sweepDir = 0
	s.sweepWait = autoAimSweepInitial
	s.settled, s.feeding, s.fired = 0, false, false
}

func (s *AutoAimAndShoot) Running() {
	clk := s.env.clock()
	s.env.Shooter.RetractBarrier()

	inRange := s.inRange()
	if inRange {
		s.env.Drive.SetCurrentController(s.env.AutoAimDrive)
	} else {
		s.env.Drive.SetOpenLoop()
		if clk.Since(s.driveStart) >= autoAimRangeOnly && !s.env.Vision.SeesTarget() {
			s.sweep()
		} else {
			s.seekRange()
		}
	}

	if s.fired {
		return
	}
	if inRange && s.env.AutoAimDrive.OnTarget() && s.env.ShooterSpeed.OnTarget() {
		s.env.Shooter.SetStatusLight(true)
		s.settled++
		if s.settled > autoAimSettle {
			s.env.Intake.SetConveyorSpeed(conveyorFeedSpeed)
			if !s.feeding {
				s.feeding = true
				s.feedStart = clk.Now()
			}
		}
	} else {
		s.env.Shooter.SetStatusLight(false)
	}

	if s.feeding && clk.Since(s.feedStart) >= shotDuration {
		s.fired = true
		s.env.Intake.SetConveyorSpeed(0)
		s.env.Shooter.SetSpeed(0)
	}
}

func (s *AutoAimAndShoot) inRange() bool {
	v := s.env.Vision
	if !v.SeesTarget() {
		return false
	}
	r := v.Range()
	return r >= autoAimMinRange && r <= autoAimMaxRange
}

// seekRange backs away when too close or blind and closes in when too far.
func (s *AutoAimAndShoot) seekRange() {
	v := s.env.Vision
	switch {
	case !v.SeesTarget() || v.Range() < autoAimMinRange:
		s.env.Drive.SetSpeedTurn(-autoAimRangeSpeed, 0)
	case v.Range() > autoAimMaxRange:
		s.env.Drive.SetSpeedTurn(autoAimRangeSpeed, 0)
	default:
		s.env.Drive.SetSpeedTurn(0, 0)
	}
}

func (s *AutoAimAndShoot) sweep() {
	clk := s.env.clock()
	if s.sweepDir == 0 {
		delta := control.BoundAngleNeg180To180(s.aimAngle - s.env.Nav.HeadingInDegrees())
		s.sweepDir = control.Signum(delta)
		if s.sweepDir == 0 {
			s.sweepDir = 1
		}
		s.sweepStart = clk.Now()
	}
	s.env.Drive.SetSpeedTurn(0, s.sweepDir*autoAimSweepTurn)
	if clk.Since(s.sweepStart) > s.sweepWait {
		s.sweepDir = -s.sweepDir
		s.sweepStart = clk.Now()
		s.sweepWait += autoAimSweepGrowth
	}
}

func (s *AutoAimAndShoot) IsDone() bool { return s.fired }

func (s *AutoAimAndShoot) Exit() {
	s.env.Drive.SetOpenLoop()
	s.env.Drive.SetSpeed(0, 0)
	s.env.Shooter.SetOpenLoop()
	s.env.Shooter.SetSpeed(0)
	s.env.Shooter.SetVisionLight(false)
	s.env.Shooter.SetStatusLight(false)
	s.env.Intake.SetConveyorSpeed(0)
}
