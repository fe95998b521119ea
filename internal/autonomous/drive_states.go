package autonomous

import (
	"math"
	"time"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/statemachine"
)

// Budgets for states that wait on the encoders or the defense sensor.
const (
	driveDistanceTimeout    = 6 * time.Second
	turnToAngleTimeout      = 3 * time.Second
	driveToDefenseTimeout   = 5 * time.Second
	driveOverDefenseTimeout = 8 * time.Second
)

// DriveDistance drives straight for a distance at a capped speed, or until
// its budget runs out.
type DriveDistance struct {
	statemachine.TimeoutState
	env      *Env
	distance float64
	speed    float64
}

func NewDriveDistance(env *Env, distance, speed float64) *DriveDistance {
	return &DriveDistance{
		TimeoutState: statemachine.NewTimeoutState("DriveDistance", driveDistanceTimeout, env.clock()),
		env:          env,
		distance:     distance,
		speed:        speed,
	}
}

func (s *DriveDistance) Enter() {
	s.TimeoutState.Enter()
	s.env.DriveDistance.SetGoal(s.distance, s.speed)
	s.env.Drive.SetCurrentController(s.env.DriveDistance)
}

func (s *DriveDistance) IsDone() bool { return s.env.DriveDistance.OnTarget() || s.TimedOut() }
func (s *DriveDistance) Exit()        { s.env.Drive.SetOpenLoop() }

// TurnToAngle turns in place to an absolute heading. It gives up after a
// few seconds so a turn that never settles cannot stall the program.
type TurnToAngle struct {
	statemachine.TimeoutState
	env   *Env
	angle float64
}

func NewTurnToAngle(env *Env, angle float64) *TurnToAngle {
	return &TurnToAngle{
		TimeoutState: statemachine.NewTimeoutState("TurnToAngle", turnToAngleTimeout, env.clock()),
		env:          env,
		angle:        angle,
	}
}

func (s *TurnToAngle) Enter() {
	s.TimeoutState.Enter()
	s.env.DriveTurn.SetGoal(s.angle)
	s.env.Drive.SetCurrentController(s.env.DriveTurn)
}

func (s *TurnToAngle) IsDone() bool { return s.env.DriveTurn.OnTarget() || s.TimedOut() }
func (s *TurnToAngle) Exit()        { s.env.Drive.SetOpenLoop() }

// DriveToDefense approaches the outer works until the defense sensor
// trips. The travel is the current vision range less the desired standoff.
type DriveToDefense struct {
	statemachine.TimeoutState
	env       *Env
	standoff  float64
	speed     float64
	travelled float64
}

func NewDriveToDefense(env *Env, distanceFromTarget, speed float64) *DriveToDefense {
	return &DriveToDefense{
		TimeoutState: statemachine.NewTimeoutState("DriveToDefense", driveToDefenseTimeout, env.clock()),
		env:          env,
		standoff:     distanceFromTarget,
		speed:        speed,
	}
}

func (s *DriveToDefense) Enter() {
	s.TimeoutState.Enter()
	s.travelled = s.env.Vision.Range() - s.standoff
	s.env.DriveDistance.SetGoal(s.travelled, s.speed)
	s.env.Drive.SetCurrentController(s.env.DriveDistance)
}

func (s *DriveToDefense) IsDone() bool {
	return s.env.Drive.SeesDefense() || s.env.DriveDistance.OnTarget() || s.TimedOut()
}

func (s *DriveToDefense) Exit() { s.env.Drive.SetOpenLoop() }

// DriveOverDefense crosses a defense under the heading-holding defense
// controller with the vision light on for the shot that follows.
type DriveOverDefense struct {
	statemachine.TimeoutState
	env         *Env
	distance    float64
	speed       float64
	minDistance float64
}

func NewDriveOverDefense(env *Env, distanceToTarget, speed, minDistance float64) *DriveOverDefense {
	return &DriveOverDefense{
		TimeoutState: statemachine.NewTimeoutState("DriveOverDefense", driveOverDefenseTimeout, env.clock()),
		env:          env,
		distance:     distanceToTarget,
		speed:        speed,
		minDistance:  minDistance,
	}
}

func (s *DriveOverDefense) Enter() {
	s.TimeoutState.Enter()
	s.env.Shooter.SetVisionLight(true)
	s.env.DriveOverDefense.SetGoal(s.distance, s.speed, s.minDistance)
	s.env.Drive.SetCurrentController(s.env.DriveOverDefense)
}

func (s *DriveOverDefense) Running() {
	if s.env.DriveOverDefense.OnTarget() {
		s.env.Drive.SetSpeedTurn(0, 0)
	}
	s.env.DriveOverDefense.LogToDashboard(s.env.dashboard())
}

func (s *DriveOverDefense) IsDone() bool {
	return s.env.DriveOverDefense.OnTarget() || s.TimedOut()
}

func (s *DriveOverDefense) Exit() {
	s.env.Drive.SetOpenLoop()
	s.env.Drive.SetSpeed(0, 0)
	s.env.Shooter.SetVisionLight(false)
}

const (
	altDefenseYawKp          = 0.03
	altDefenseMinDistance    = 65.0
	altDefensePitchTolerance = 3.0
)

// AltDriveOverDefense crosses a defense open loop, steering back to the
// yaw it started with. It is done once the robot has covered a minimum
// distance and is level again, or when the timeout expires.
type AltDriveOverDefense struct {
	statemachine.TimeoutState
	env        *Env
	speed      float64
	startYaw   float64
	startPitch float64
	startDist  float64
}

func NewAltDriveOverDefense(env *Env, speed float64, timeoutMs int) *AltDriveOverDefense {
	return &AltDriveOverDefense{
		TimeoutState: statemachine.NewTimeoutState("AltDriveOverDefense", millis(timeoutMs), env.clock()),
		env:          env,
		speed:        speed,
	}
}

func (s *AltDriveOverDefense) Enter() {
	s.TimeoutState.Enter()
	s.env.Drive.SetOpenLoop()
	s.startYaw = s.env.Nav.HeadingInDegrees()
	s.startPitch = s.env.Nav.PitchInDegrees()
	s.env.Nav.ResetEncoders()
	s.startDist = s.env.Nav.AverageEncoderDistance()
}

func (s *AltDriveOverDefense) Running() {
	yawErr := control.BoundAngleNeg180To180(s.startYaw - s.env.Nav.HeadingInDegrees())
	s.env.Drive.SetSpeedTurn(s.speed, yawErr*altDefenseYawKp)
}

func (s *AltDriveOverDefense) level() bool {
	err := control.BoundAngleNeg180To180(s.startPitch - s.env.Nav.PitchInDegrees())
	return math.Abs(err) < altDefensePitchTolerance
}

func (s *AltDriveOverDefense) crossed() bool {
	return math.Abs(s.env.Nav.AverageEncoderDistance()) > altDefenseMinDistance+s.startDist
}

func (s *AltDriveOverDefense) IsDone() bool {
	return s.TimedOut() || (s.level() && s.crossed())
}

func (s *AltDriveOverDefense) Exit() { s.env.Drive.SetSpeed(0, 0) }
