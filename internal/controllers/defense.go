package controllers

import (
	"math"
	"sync"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/navigation"
	"github.com/san-kum/robocore/internal/properties"
	"github.com/san-kum/robocore/internal/subsystems"
	"github.com/san-kum/robocore/internal/vision"
)

// DefensePitchTolerance is how close to the starting pitch the robot must be
// to count as level again.
const DefensePitchTolerance = 5.0

// DriveOverDefense drives at a fixed speed on the starting heading until the
// robot has covered the minimum distance and is level again, or has covered
// three times the minimum distance regardless of pitch.
type DriveOverDefense struct {
	drive  *subsystems.Drive
	nav    *navigation.Navigation
	vision vision.Source
	props  properties.Source

	mu               sync.Mutex
	active           bool
	distance         *control.PID
	heading          *control.PID
	speed            float64
	startPitch       float64
	startDistance    float64
	minDistance      float64
	distanceToTarget float64
}

func NewDriveOverDefense(drive *subsystems.Drive, nav *navigation.Navigation, vis vision.Source, props properties.Source) *DriveOverDefense {
	c := &DriveOverDefense{
		drive:    drive,
		nav:      nav,
		vision:   vis,
		props:    props,
		distance: control.NewPID(control.Gains{OutputMin: -1, OutputMax: 1}),
		heading:  headingPID(-0.2, 0.2, DefaultAngleTolerance),
		speed:    1,
	}
	c.LoadProperties()
	return c
}

// SetGoal zeroes the encoders and captures the starting heading and pitch.
// distanceToTarget is the vision range the crossing aims to end inside;
// speed is clamped to [0, 1].
func (c *DriveOverDefense) SetGoal(distanceToTarget, speed, minDistance float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.distance.Reset()
	c.heading.Reset()
	c.nav.ResetEncoders()
	c.startDistance = c.nav.AverageEncoderDistance()
	c.startPitch = c.nav.PitchInDegrees()
	c.heading.SetSetpoint(c.nav.HeadingInDegrees())

	c.speed = math.Min(math.Abs(speed), 1)
	c.distance.SetOutputRange(-c.speed, c.speed)
	c.minDistance = minDistance
	c.distanceToTarget = distanceToTarget
	c.distance.SetSetpoint(c.startDistance + minDistance)
	c.active = true
}

func (c *DriveOverDefense) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn := c.heading.Calculate(c.nav.HeadingInDegrees())
	if c.onTarget() {
		c.drive.SetSpeedTurn(0, 0)
		return
	}
	c.drive.SetSpeedTurn(c.speed, turn)
}

func (c *DriveOverDefense) OnTarget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onTarget()
}

// onTarget is false between a Reset and the next SetGoal.
func (c *DriveOverDefense) onTarget() bool {
	if !c.active {
		return false
	}
	dist := c.nav.AverageEncoderDistance()
	if math.Abs(dist-c.startDistance) > 3*c.minDistance {
		return true
	}
	return dist > c.distance.Setpoint() && c.pitchError() < DefensePitchTolerance
}

func (c *DriveOverDefense) pitchError() float64 {
	return math.Abs(control.BoundAngleNeg180To180(c.startPitch - c.nav.PitchInDegrees()))
}

func (c *DriveOverDefense) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.distance.Reset()
	c.heading.Reset()
	c.active = false
	c.speed = 1
	c.drive.SetSpeed(0, 0)
}

func (c *DriveOverDefense) LoadProperties() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.distance.SetGains(
		c.props.GetDouble("distanceKp", 0.05),
		c.props.GetDouble("distanceKi", 0.0),
		c.props.GetDouble("distanceKd", 0.0),
	)
	c.heading.SetGains(c.props.GetDouble("angleKp", 0.01), 0, 0)
}

func (c *DriveOverDefense) LogToDashboard(s dashboard.Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.PutBoolean("DOD_MetDistance", c.nav.AverageEncoderDistance() > c.distance.Setpoint())
	s.PutBoolean("DOD_VisionDistToTarget", c.vision.Range() < c.distanceToTarget)
	s.PutBoolean("DOD_PitchOnTarget", c.pitchError() < DefensePitchTolerance)
}

func (c *DriveOverDefense) String() string { return "DriveOverDefenseController" }

// AutoAimDrive turns toward the vision target. While the target is in view
// the heading goal follows the current heading plus the target bearing; when
// the target is lost the last goal is held.
type AutoAimDrive struct {
	drive  *subsystems.Drive
	nav    *navigation.Navigation
	vision vision.Source
	props  properties.Source

	mu             sync.Mutex
	pid            *control.PID
	hasGoal        bool
	tolerance      float64
	minOutput      float64
	maxOutput      float64
	onTargetCycles int
	onTargetCount  int
}

func NewAutoAimDrive(drive *subsystems.Drive, nav *navigation.Navigation, vis vision.Source, props properties.Source) *AutoAimDrive {
	c := &AutoAimDrive{
		drive:          drive,
		nav:            nav,
		vision:         vis,
		props:          props,
		pid:            headingPID(-DefaultTurnMaxOutput, DefaultTurnMaxOutput, DefaultAngleTolerance),
		tolerance:      DefaultAngleTolerance,
		minOutput:      DefaultTurnMinOutput,
		maxOutput:      DefaultTurnMaxOutput,
		onTargetCycles: DefaultOnTargetCycles,
	}
	c.LoadProperties()
	return c
}

func (c *AutoAimDrive) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()

	heading := c.nav.HeadingInDegrees()
	sees := c.vision.SeesTarget()
	bearing := c.vision.Angle()
	if sees {
		c.pid.SetSetpoint(control.BoundAngle0To360(heading + bearing))
		c.hasGoal = true
	}
	if !c.hasGoal {
		c.onTargetCount = 0
		c.drive.SetSpeedTurn(0, 0)
		return
	}

	out := c.pid.Calculate(heading)
	if sees && math.Abs(bearing) < c.tolerance {
		c.onTargetCount++
		out = 0
	} else {
		c.onTargetCount = 0
		out = limitMagnitude(out, c.minOutput, c.maxOutput)
	}
	c.drive.SetSpeedTurn(0, out)
}

func (c *AutoAimDrive) OnTarget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onTargetCount >= c.onTargetCycles
}

func (c *AutoAimDrive) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid.Reset()
	c.hasGoal = false
	c.onTargetCount = 0
	c.drive.SetSpeed(0, 0)
}

func (c *AutoAimDrive) LoadProperties() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid.SetGains(
		c.props.GetDouble("aimKp", 0.02),
		c.props.GetDouble("aimKi", 0.0),
		c.props.GetDouble("aimKd", 0.0),
	)
	c.tolerance = c.props.GetDouble("aimTolerance", DefaultAngleTolerance)
	c.pid.SetTolerance(c.tolerance)
	c.minOutput = c.props.GetDouble("turnMinOutput", DefaultTurnMinOutput)
	c.maxOutput = c.props.GetDouble("turnMaxOutput", DefaultTurnMaxOutput)
	c.pid.SetOutputRange(-c.maxOutput, c.maxOutput)
	c.onTargetCycles = c.props.GetInt("aimOnTargetCycles", DefaultOnTargetCycles)
}

func (c *AutoAimDrive) String() string { return "AutoAimDriveController" }
