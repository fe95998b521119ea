package controllers

import (
	"math"
	"sync"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/properties"
	"github.com/san-kum/robocore/internal/subsystems"
)

// ShooterSpeed holds the flywheel at a goal rpm with bang-bang control: full
// power below goal minus tolerance, off above goal, and the previous output
// in between. The PID gains are loaded and kept for tuning display but do not
// drive the wheel.
type ShooterSpeed struct {
	shooter *subsystems.Shooter
	props   properties.Source
	tuner   Tuner

	mu        sync.Mutex
	pid       *control.PID
	goal      float64
	output    float64
	tolerance float64
	onTarget  bool
}

// NewShooterSpeed reads gains from props, or from tuner when it is not nil.
func NewShooterSpeed(shooter *subsystems.Shooter, props properties.Source, tuner Tuner) *ShooterSpeed {
	c := &ShooterSpeed{
		shooter:   shooter,
		props:     props,
		tuner:     tuner,
		pid:       control.NewPID(control.Gains{OutputMin: 0, OutputMax: 1}),
		tolerance: DefaultShooterRPMTolerance,
	}
	if tuner != nil {
		tuner.PutNumber("ShooterkP", 0.005)
		tuner.PutNumber("ShooterkI", 0.0)
		tuner.PutNumber("ShooterkD", 0.001)
	}
	c.LoadProperties()
	c.Reset()
	return c
}

// SetGoal sets the target rpm and reloads the gains.
func (c *ShooterSpeed) SetGoal(rpm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goal = rpm
	c.pid.SetSetpoint(rpm)
	c.loadProperties()
}

func (c *ShooterSpeed) Goal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goal
}

func (c *ShooterSpeed) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()

	rpm := c.shooter.RPM()
	if rpm > c.goal {
		c.output = 0
	} else if rpm < c.goal-c.tolerance {
		c.output = 1
	}
	c.shooter.SetSpeed(c.output)
	c.onTarget = math.Abs(c.goal-rpm) < c.tolerance
}

func (c *ShooterSpeed) OnTarget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onTarget
}

// Output is the last commanded wheel power.
func (c *ShooterSpeed) Output() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

// Reset drops the goal to zero and stops the wheel.
func (c *ShooterSpeed) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid.Reset()
	c.goal = 0
	c.pid.SetSetpoint(0)
	c.output = 0
	c.onTarget = false
	c.shooter.SetSpeed(0)
}

func (c *ShooterSpeed) LoadProperties() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadProperties()
}

func (c *ShooterSpeed) loadProperties() {
	if c.tuner != nil {
		c.pid.SetGains(
			c.tuner.GetNumber("ShooterkP", 0.1),
			c.tuner.GetNumber("ShooterkI", 0.0),
			c.tuner.GetNumber("ShooterkD", 0.0),
		)
		return
	}
	c.pid.SetGains(
		c.props.GetDouble("shooterKp", 0.008),
		c.props.GetDouble("shooterKi", 0.0),
		c.props.GetDouble("shooterKd", 0.0001),
	)
	c.tolerance = c.props.GetDouble("shooterRPMTolerance", DefaultShooterRPMTolerance)
}

// Gains returns the loaded PID gains.
func (c *ShooterSpeed) Gains() control.Gains {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid.Gains()
}

func (c *ShooterSpeed) String() string { return "ShooterSpeedController" }

// AutoAimShooter picks the flywheel goal from the hood position and
// delegates the control law to a ShooterSpeed.
type AutoAimShooter struct {
	mu      sync.Mutex
	shooter *subsystems.Shooter
	speed   *ShooterSpeed
}

func NewAutoAimShooter(shooter *subsystems.Shooter, speed *ShooterSpeed) *AutoAimShooter {
	return &AutoAimShooter{shooter: shooter, speed: speed}
}

// SetGoal selects the batter or outerworks rpm for the current hood.
func (c *AutoAimShooter) SetGoal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shooter.IsHoodBatterPosition() {
		c.speed.SetGoal(ShooterRPMBatter)
	} else {
		c.speed.SetGoal(ShooterRPMOuterworks)
	}
}

func (c *AutoAimShooter) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed.Run()
}

func (c *AutoAimShooter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed.Reset()
}

func (c *AutoAimShooter) OnTarget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed.OnTarget()
}

func (c *AutoAimShooter) LoadProperties() {}

func (c *AutoAimShooter) String() string { return "AutoAimShooterController" }
