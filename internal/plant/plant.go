// Package plant simulates the robot on the field. It owns in-memory hal
// ports, reads the actuator commands each step, integrates the drive and
// flywheel dynamics, and writes the sensor readings back.
//
// Headings are compass style: degrees clockwise from the +Y axis, which
// points from the starting position toward the goal.
package plant

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/dynamo"
	"github.com/san-kum/robocore/internal/hal"
	"github.com/san-kum/robocore/internal/integrators"
	"github.com/san-kum/robocore/internal/scheduler"
	"github.com/san-kum/robocore/internal/subsystems"
	"github.com/san-kum/robocore/internal/vision"
)

type Config struct {
	Integrator string `yaml:"integrator"`

	MaxSpeed   float64 `yaml:"max_speed"`   // in/s at full output
	TrackWidth float64 `yaml:"track_width"` // in
	DriveLag   float64 `yaml:"drive_lag"`   // s

	MaxRPM        float64 `yaml:"max_rpm"`
	FlywheelLag   float64 `yaml:"flywheel_lag"`   // s, under power
	FlywheelCoast float64 `yaml:"flywheel_coast"` // s, spinning down
	FireRPM       float64 `yaml:"fire_rpm"`
	Preloaded     bool    `yaml:"preloaded"`

	DefenseStart float64 `yaml:"defense_start"` // in along Y
	DefenseEnd   float64 `yaml:"defense_end"`
	DefensePitch float64 `yaml:"defense_pitch"` // peak pitch in degrees

	GoalX       float64 `yaml:"goal_x"`
	GoalY       float64 `yaml:"goal_y"`
	VisionFOV   float64 `yaml:"vision_fov"`   // full width in degrees
	VisionRange float64 `yaml:"vision_range"` // in

	StartHeading float64 `yaml:"start_heading"`
}

func DefaultConfig() Config {
	return Config{
		Integrator:    "rk4",
		MaxSpeed:      150,
		TrackWidth:    25,
		DriveLag:      0.1,
		MaxRPM:        6000,
		FlywheelLag:   0.5,
		FlywheelCoast: 3,
		FireRPM:       2500,
		Preloaded:     true,
		DefenseStart:  60,
		DefenseEnd:    110,
		DefensePitch:  15,
		GoalX:         0,
		GoalY:         370,
		VisionFOV:     60,
		VisionRange:   500,
	}
}

// Validate rejects configurations the dynamics cannot integrate.
func (c Config) Validate() error {
	switch {
	case c.MaxSpeed <= 0, c.TrackWidth <= 0, c.DriveLag <= 0:
		return fmt.Errorf("plant: drive parameters must be positive")
	case c.MaxRPM <= 0, c.FlywheelLag <= 0, c.FlywheelCoast <= 0:
		return fmt.Errorf("plant: flywheel parameters must be positive")
	case c.DefenseEnd < c.DefenseStart:
		return fmt.Errorf("plant: defense ends before it starts")
	}
	return nil
}

// Robot is the simulated robot. Its ports are safe to use from the control
// loops while Step runs.
type Robot struct {
	cfg    Config
	sys    *system
	integ  dynamo.Integrator
	logger *zap.Logger

	leftMotor, rightMotor *hal.MemMotor
	wheel                 *hal.MemMotor
	roller, conveyor      *hal.MemMotor
	winch                 *hal.MemMotor

	hood, ballLight, statusLight, visionLight *hal.MemSolenoid
	hangerPiston                              *hal.MemSolenoid
	intakePiston, popper                      *hal.MemDoubleSolenoid
	leftBarrier, rightBarrier                 *hal.MemServo

	defenseSensor, railSensor, ballSensor *hal.MemSwitch
	counter                               *hal.MemCounter
	gyro                                  *hal.MemGyro
	leftEncoder, rightEncoder             *hal.MemEncoder

	mu     sync.Mutex
	x      dynamo.State
	t      float64
	steps  int
	path   float64
	loaded bool
	shots  int
	target vision.Target
}

func New(cfg Config, logger *zap.Logger) (*Robot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Robot{
		cfg:    cfg,
		sys:    &system{cfg: cfg},
		integ:  integ,
		logger: logger.Named("plant"),

		leftMotor:  hal.NewMemMotor(false),
		rightMotor: hal.NewMemMotor(true),
		wheel:      hal.NewMemMotor(true),
		roller:     hal.NewMemMotor(false),
		conveyor:   hal.NewMemMotor(true),
		winch:      hal.NewMemMotor(false),

		hood:         &hal.MemSolenoid{},
		ballLight:    &hal.MemSolenoid{},
		statusLight:  &hal.MemSolenoid{},
		visionLight:  &hal.MemSolenoid{},
		hangerPiston: &hal.MemSolenoid{},
		intakePiston: &hal.MemDoubleSolenoid{},
		popper:       &hal.MemDoubleSolenoid{},
		leftBarrier:  &hal.MemServo{},
		rightBarrier: &hal.MemServo{},

		defenseSensor: &hal.MemSwitch{},
		railSensor:    &hal.MemSwitch{},
		ballSensor:    &hal.MemSwitch{},
		counter:       &hal.MemCounter{},
		gyro:          &hal.MemGyro{},
		leftEncoder:   &hal.MemEncoder{},
		rightEncoder:  &hal.MemEncoder{},

		loaded: cfg.Preloaded,
	}
	r.x = make(dynamo.State, stateDim)
	r.x[iHeading] = control.BoundAngle0To360(cfg.StartHeading)

	r.mu.Lock()
	r.publish()
	r.mu.Unlock()
	return r, nil
}

func (r *Robot) DrivePorts() subsystems.DrivePorts {
	return subsystems.DrivePorts{
		Left:          r.leftMotor,
		Right:         r.rightMotor,
		DefenseSensor: r.defenseSensor,
		RailSensor:    r.railSensor,
	}
}

func (r *Robot) ShooterPorts() subsystems.ShooterPorts {
	return subsystems.ShooterPorts{
		Wheel:        r.wheel,
		Counter:      r.counter,
		Hood:         r.hood,
		BallLight:    r.ballLight,
		StatusLight:  r.statusLight,
		VisionLight:  r.visionLight,
		LeftBarrier:  r.leftBarrier,
		RightBarrier: r.rightBarrier,
	}
}

func (r *Robot) IntakePorts() subsystems.IntakePorts {
	return subsystems.IntakePorts{
		Roller:     r.roller,
		Conveyor:   r.conveyor,
		Piston:     r.intakePiston,
		Popper:     r.popper,
		BallSensor: r.ballSensor,
	}
}

func (r *Robot) HangerPorts() subsystems.HangerPorts {
	return subsystems.HangerPorts{Winch: r.winch, Piston: r.hangerPiston}
}

func (r *Robot) Gyro() hal.Gyro { return r.gyro }

func (r *Robot) Encoders() (left, right hal.Encoder) {
	return r.leftEncoder, r.rightEncoder
}

// Step advances the simulation by dt seconds.
func (r *Robot) Step(dt float64) error {
	u := dynamo.Control{r.leftMotor.Get(), r.rightMotor.Get(), r.wheel.Get()}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := dynamo.Check(r.sys, r.x, u); err != nil {
		return &dynamo.StepError{Step: r.steps, Time: r.t, Wrapped: err}
	}
	next := r.integ.Step(r.sys, r.x, u, r.t, dt)
	if !next.IsValid() {
		return &dynamo.StepError{Step: r.steps, Time: r.t, Wrapped: dynamo.ErrUnstable}
	}

	r.path += math.Hypot(next[iX]-r.x[iX], next[iY]-r.x[iY])
	next[iHeading] = control.BoundAngle0To360(next[iHeading])
	r.x = next
	r.t += dt
	r.steps++

	r.fire()
	r.publish()
	return nil
}

// Run steps the plant every period of clk until ctx is done.
func (r *Robot) Run(ctx context.Context, clk clock.Clock, period time.Duration) error {
	var stepErr error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := scheduler.Every(ctx, clk, period, func() {
		if err := r.Step(period.Seconds()); err != nil {
			stepErr = err
			cancel()
		}
	})
	if stepErr != nil {
		return stepErr
	}
	return err
}

// fire releases the ball when the conveyor feeds a spun-up flywheel.
func (r *Robot) fire() {
	if !r.loaded || r.conveyor.Get() <= 0 || r.x[iRPM] < r.cfg.FireRPM {
		return
	}
	r.loaded = false
	r.shots++
	r.logger.Info("ball fired",
		zap.Float64("t", r.t),
		zap.Float64("rpm", r.x[iRPM]),
		zap.Float64("range", r.target.Range))
}

// publish writes sensor readings for the current state. Callers hold mu.
func (r *Robot) publish() {
	x := r.x
	r.gyro.Put(x[iHeading], r.pitch())
	r.leftEncoder.Put(x[iLeftDist])
	r.rightEncoder.Put(x[iRightDist])

	if x[iRPM] > 1 {
		r.counter.Put(60 / (x[iRPM] * 2))
	} else {
		r.counter.Put(0)
	}

	y := x[iY]
	r.defenseSensor.Put(y >= r.cfg.DefenseStart-defenseSensorLead && y <= r.cfg.DefenseEnd)
	r.railSensor.Put(true)
	r.ballSensor.Put(r.loaded)
	r.target = r.sight()
}

const defenseSensorLead = 12.0

func (r *Robot) pitch() float64 {
	y, start, end := r.x[iY], r.cfg.DefenseStart, r.cfg.DefenseEnd
	if y < start || y > end || end == start {
		return 0
	}
	return r.cfg.DefensePitch * math.Sin(math.Pi*(y-start)/(end-start))
}

func (r *Robot) sight() vision.Target {
	dx := r.cfg.GoalX - r.x[iX]
	dy := r.cfg.GoalY - r.x[iY]
	rng := math.Hypot(dx, dy)
	bearing := control.BoundAngleNeg180To180(math.Atan2(dx, dy)*180/math.Pi - r.x[iHeading])

	visible := r.visionLight.Get() && math.Abs(bearing) <= r.cfg.VisionFOV/2 && rng <= r.cfg.VisionRange
	if !visible {
		return vision.Target{}
	}
	return vision.Target{Visible: true, Angle: bearing, Range: rng}
}

func (r *Robot) SeesTarget() bool { return r.Target().Visible }
func (r *Robot) Angle() float64   { return r.Target().Angle }
func (r *Robot) Range() float64   { return r.Target().Range }

func (r *Robot) Target() vision.Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// Sample is one telemetry row.
type Sample struct {
	T        float64
	X, Y     float64
	Heading  float64
	Pitch    float64
	Left     float64
	Right    float64
	Flywheel float64
	RPM      float64
	Conveyor float64
	Path     float64
	Shots    int
	Target   vision.Target
}

func (r *Robot) Sample() Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Sample{
		T:        r.t,
		X:        r.x[iX],
		Y:        r.x[iY],
		Heading:  r.x[iHeading],
		Pitch:    r.pitch(),
		Left:     r.leftMotor.Get(),
		Right:    r.rightMotor.Get(),
		Flywheel: r.wheel.Get(),
		RPM:      r.x[iRPM],
		Conveyor: r.conveyor.Get(),
		Path:     r.path,
		Shots:    r.shots,
		Target:   r.target,
	}
}

// SetPose teleports the robot, for tests and presets.
func (r *Robot) SetPose(x, y, heading float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.x[iX], r.x[iY] = x, y
	r.x[iHeading] = control.BoundAngle0To360(heading)
	r.publish()
}
