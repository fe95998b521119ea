package controllers

import (
	"math"
	"sync"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/navigation"
	"github.com/san-kum/robocore/internal/properties"
	"github.com/san-kum/robocore/internal/subsystems"
)

func headingPID(min, max, tolerance float64) *control.PID {
	pid := control.NewPID(control.Gains{OutputMin: min, OutputMax: max})
	pid.SetContinuous(0, 360)
	pid.SetTolerance(tolerance)
	return pid
}

// DriveTurn turns in place to an absolute heading. The output magnitude is
// kept between a floor that overcomes stall and a ceiling that limits
// overshoot.
type DriveTurn struct {
	drive *subsystems.Drive
	nav   *navigation.Navigation
	props properties.Source

	mu             sync.Mutex
	pid            *control.PID
	minOutput      float64
	maxOutput      float64
	onTargetCycles int
	onTargetCount  int
}

func NewDriveTurn(drive *subsystems.Drive, nav *navigation.Navigation, props properties.Source) *DriveTurn {
	c := &DriveTurn{
		drive:          drive,
		nav:            nav,
		props:          props,
		pid:            headingPID(-DefaultTurnMaxOutput, DefaultTurnMaxOutput, DefaultAngleTolerance),
		minOutput:      DefaultTurnMinOutput,
		maxOutput:      DefaultTurnMaxOutput,
		onTargetCycles: DefaultOnTargetCycles,
	}
	c.LoadProperties()
	return c
}

// SetGoal sets the target heading in degrees.
func (c *DriveTurn) SetGoal(heading float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid.Reset()
	c.pid.SetSetpoint(control.BoundAngle0To360(heading))
	c.onTargetCount = 0
}

func (c *DriveTurn) Goal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid.Setpoint()
}

func (c *DriveTurn) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.pid.Calculate(c.nav.HeadingInDegrees())
	if c.pid.OnTarget() {
		c.onTargetCount++
		out = 0
	} else {
		c.onTargetCount = 0
		out = limitMagnitude(out, c.minOutput, c.maxOutput)
	}
	c.drive.SetSpeedTurn(0, out)
}

func (c *DriveTurn) OnTarget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onTargetCount >= c.onTargetCycles
}

func (c *DriveTurn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid.Reset()
	c.onTargetCount = 0
	c.drive.SetSpeed(0, 0)
}

func (c *DriveTurn) LoadProperties() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid.SetGains(
		c.props.GetDouble("turnKp", 0.02),
		c.props.GetDouble("turnKi", 0.0),
		c.props.GetDouble("turnKd", 0.0),
	)
	c.pid.SetTolerance(c.props.GetDouble("turnTolerance", DefaultAngleTolerance))
	c.minOutput = c.props.GetDouble("turnMinOutput", DefaultTurnMinOutput)
	c.maxOutput = c.props.GetDouble("turnMaxOutput", DefaultTurnMaxOutput)
	c.pid.SetOutputRange(-c.maxOutput, c.maxOutput)
	c.onTargetCycles = c.props.GetInt("turnOnTargetCycles", DefaultOnTargetCycles)
}

func (c *DriveTurn) String() string { return "DriveTurnController" }

// DriveDistance drives a straight line: one loop on travelled distance sets
// the speed, a second loop holds the heading captured when the goal was set.
type DriveDistance struct {
	drive *subsystems.Drive
	nav   *navigation.Navigation
	props properties.Source

	mu       sync.Mutex
	distance *control.PID
	heading  *control.PID
}

func NewDriveDistance(drive *subsystems.Drive, nav *navigation.Navigation, props properties.Source) *DriveDistance {
	c := &DriveDistance{
		drive:    drive,
		nav:      nav,
		props:    props,
		distance: control.NewPID(control.Gains{OutputMin: -1, OutputMax: 1, Tolerance: DefaultDistanceTolerance}),
		heading:  headingPID(-0.2, 0.2, DefaultAngleTolerance),
	}
	c.LoadProperties()
	return c
}

// SetGoal zeroes the encoders and targets distance inches at no more than
// maxSpeed.
func (c *DriveDistance) SetGoal(distance, maxSpeed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nav.ResetEncoders()
	maxSpeed = math.Min(math.Abs(maxSpeed), 1)
	c.distance.Reset()
	c.distance.SetOutputRange(-maxSpeed, maxSpeed)
	c.distance.SetSetpoint(distance)
	c.heading.Reset()
	c.heading.SetSetpoint(c.nav.HeadingInDegrees())
}

func (c *DriveDistance) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()

	speed := c.distance.Calculate(c.nav.AverageEncoderDistance())
	turn := c.heading.Calculate(c.nav.HeadingInDegrees())
	if c.distance.OnTarget() {
		c.drive.SetSpeedTurn(0, 0)
		return
	}
	c.drive.SetSpeedTurn(speed, turn)
}

func (c *DriveDistance) OnTarget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.distance.OnTarget()
}

func (c *DriveDistance) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.distance.Reset()
	c.heading.Reset()
	c.drive.SetSpeed(0, 0)
}

func (c *DriveDistance) LoadProperties() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.distance.SetGains(
		c.props.GetDouble("distanceKp", 0.05),
		c.props.GetDouble("distanceKi", 0.0),
		c.props.GetDouble("distanceKd", 0.0),
	)
	c.distance.SetTolerance(c.props.GetDouble("distanceTolerance", DefaultDistanceTolerance))
	c.heading.SetGains(c.props.GetDouble("angleKp", 0.01), 0, 0)
}

func (c *DriveDistance) String() string { return "DriveDistanceController" }
