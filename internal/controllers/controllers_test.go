package controllers

import (
	"math"
	"testing"

	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/hal"
	"github.com/san-kum/robocore/internal/navigation"
	"github.com/san-kum/robocore/internal/properties"
	"github.com/san-kum/robocore/internal/subsystems"
	"github.com/san-kum/robocore/internal/vision"
)

type rig struct {
	gyro        *hal.MemGyro
	left, right *hal.MemEncoder
	counter     *hal.MemCounter
	leftMotor   *hal.MemMotor
	rightMotor  *hal.MemMotor
	wheel       *hal.MemMotor
	hood        *hal.MemSolenoid

	nav     *navigation.Navigation
	drive   *subsystems.Drive
	shooter *subsystems.Shooter
	vision  *vision.Static
	props   *properties.Store
}

func newRig() *rig {
	r := &rig{
		gyro:       &hal.MemGyro{},
		left:       &hal.MemEncoder{},
		right:      &hal.MemEncoder{},
		counter:    &hal.MemCounter{},
		leftMotor:  hal.NewMemMotor(false),
		rightMotor: hal.NewMemMotor(true),
		wheel:      hal.NewMemMotor(true),
		hood:       &hal.MemSolenoid{},
		vision:     vision.NewStatic(vision.Target{}),
		props:      properties.NewStore(),
	}
	r.nav = navigation.New(r.gyro, r.left, r.right)
	r.drive = subsystems.NewDrive(subsystems.DrivePorts{
		Left: r.leftMotor, Right: r.rightMotor,
		DefenseSensor: &hal.MemSwitch{}, RailSensor: &hal.MemSwitch{},
	})
	r.drive.UseAlphaFilter(false)
	intake := subsystems.NewIntake(subsystems.IntakePorts{
		Roller: hal.NewMemMotor(false), Conveyor: hal.NewMemMotor(true),
		Piston: &hal.MemDoubleSolenoid{}, Popper: &hal.MemDoubleSolenoid{},
		BallSensor: &hal.MemSwitch{},
	})
	r.shooter = subsystems.NewShooter(subsystems.ShooterPorts{
		Wheel: r.wheel, Counter: r.counter, Hood: r.hood,
		BallLight: &hal.MemSolenoid{}, StatusLight: &hal.MemSolenoid{}, VisionLight: &hal.MemSolenoid{},
		LeftBarrier: &hal.MemServo{}, RightBarrier: &hal.MemServo{},
	}, intake)
	return r
}

// setRPM primes the shooter's moving average with a steady reading.
func (r *rig) setRPM(rpm float64) {
	r.counter.Put(60 / (rpm * 2))
	for i := 0; i < 10; i++ {
		r.shooter.RunInputFilters()
	}
}

func (r *rig) pose(heading, pitch, distance float64) {
	r.gyro.Put(heading, pitch)
	r.left.Put(distance)
	r.right.Put(distance)
	r.nav.Run()
}

func TestShooterSpeedBangBang(t *testing.T) {
	r := newRig()
	c := NewShooterSpeed(r.shooter, r.props, nil)
	c.SetGoal(4000)

	tests := []struct {
		rpm      float64
		output   float64
		onTarget bool
	}{
		{1000, 1, false},
		{3960, 1, true},  // inside the band: hold full power
		{4010, 0, true},  // over goal: off
		{3980, 0, true},  // inside the band: hold off
		{3900, 1, false}, // below the band: full power
	}

	for _, tt := range tests {
		r.setRPM(tt.rpm)
		c.Run()
		if c.Output() != tt.output {
			t.Errorf("rpm %.0f: expected output %.0f, got %f", tt.rpm, tt.output, c.Output())
		}
		if r.wheel.Get() != tt.output {
			t.Errorf("rpm %.0f: wheel not driven, got %f", tt.rpm, r.wheel.Get())
		}
		if c.OnTarget() != tt.onTarget {
			t.Errorf("rpm %.0f: expected onTarget=%v", tt.rpm, tt.onTarget)
		}
	}

	c.Reset()
	if c.Goal() != 0 || r.wheel.Get() != 0 {
		t.Errorf("reset should zero goal and wheel, got goal %f wheel %f", c.Goal(), r.wheel.Get())
	}
}

func TestShooterSpeedGainSources(t *testing.T) {
	r := newRig()
	r.props.Set("shooterKp", "0.02")
	r.props.Set("shooterRPMTolerance", "100")

	c := NewShooterSpeed(r.shooter, r.props, nil)
	if g := c.Gains(); g.P != 0.02 || g.D != 0.0001 {
		t.Errorf("expected property gains, got %+v", g)
	}
	c.SetGoal(3000)
	r.setRPM(2920)
	c.Run()
	if !c.OnTarget() {
		t.Error("expected tolerance of 100 rpm from properties")
	}

	board := dashboard.New()
	tuned := NewShooterSpeed(r.shooter, r.props, board)
	if g := tuned.Gains(); g.P != 0.005 || g.D != 0.001 {
		t.Errorf("expected seeded dashboard gains, got %+v", g)
	}
	board.PutNumber("ShooterkP", 0.3)
	tuned.LoadProperties()
	if g := tuned.Gains(); g.P != 0.3 {
		t.Errorf("expected live-tuned kP 0.3, got %f", g.P)
	}
}

func TestAutoAimShooterGoalFollowsHood(t *testing.T) {
	r := newRig()
	speed := NewShooterSpeed(r.shooter, r.props, nil)
	c := NewAutoAimShooter(r.shooter, speed)

	r.shooter.SetBatterPosition()
	c.SetGoal()
	if speed.Goal() != ShooterRPMBatter {
		t.Errorf("expected batter rpm, got %f", speed.Goal())
	}

	r.shooter.SetOuterworksPosition()
	c.SetGoal()
	if speed.Goal() != ShooterRPMOuterworks {
		t.Errorf("expected outerworks rpm, got %f", speed.Goal())
	}
}

func TestDriveTurnShortestWayAndMinimumOutput(t *testing.T) {
	r := newRig()
	c := NewDriveTurn(r.drive, r.nav, r.props)

	r.pose(10, 0, 0)
	c.SetGoal(350)
	c.Run()
	l, rr := r.drive.Outputs()
	if l >= 0 || rr <= 0 {
		t.Errorf("expected counter-clockwise turn across 0, got %f/%f", l, rr)
	}
	if math.Abs(l) < DefaultTurnMinOutput-1e-12 || math.Abs(l) > DefaultTurnMaxOutput+1e-12 {
		t.Errorf("turn magnitude %f outside [%f, %f]", math.Abs(l), DefaultTurnMinOutput, DefaultTurnMaxOutput)
	}

	// 2 degrees of error: raw output 0.04 is lifted to the floor
	r.pose(348, 0, 0)
	c.Run()
	l, _ = r.drive.Outputs()
	if math.Abs(math.Abs(l)-DefaultTurnMinOutput) > 1e-12 {
		t.Errorf("expected floor output %f, got %f", DefaultTurnMinOutput, l)
	}

	r.pose(350.5, 0, 0)
	for i := 0; i < DefaultOnTargetCycles; i++ {
		if c.OnTarget() {
			t.Fatalf("on target after only %d cycles", i)
		}
		c.Run()
	}
	if !c.OnTarget() {
		t.Error("expected on target after consecutive in-tolerance cycles")
	}
}

func TestDriveDistanceHoldsHeading(t *testing.T) {
	r := newRig()
	c := NewDriveDistance(r.drive, r.nav, r.props)

	r.pose(90, 0, 40)
	c.SetGoal(75, 0.5)
	r.nav.Run()

	r.pose(92, 0, 40)
	c.Run()
	l, rr := r.drive.Outputs()
	if l >= rr {
		t.Errorf("expected correction back toward 90, got left %f right %f", l, rr)
	}
	if math.Abs((l+rr)/2-0.5) > 1e-12 {
		t.Errorf("expected speed capped at 0.5, got %f", (l+rr)/2)
	}

	r.pose(90, 0, 40+74.8)
	c.Run()
	if !c.OnTarget() {
		t.Error("expected on target within half an inch")
	}
	if l, rr := r.drive.Outputs(); l != 0 || rr != 0 {
		t.Errorf("expected stop on target, got %f/%f", l, rr)
	}
}

func TestDriveOverDefenseCompletion(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		pitch    float64
		done     bool
	}{
		{"short", 30, 0, false},
		{"past minimum level", 61, 2, true},
		{"past minimum tilted", 61, 12, false},
		{"three times minimum tilted", 181, 12, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig()
			c := NewDriveOverDefense(r.drive, r.nav, r.vision, r.props)
			c.SetGoal(100, 0.8, 60)

			r.pose(0, tt.pitch, tt.distance)
			c.Run()
			if c.OnTarget() != tt.done {
				t.Errorf("expected done=%v", tt.done)
			}
			l, _ := r.drive.Outputs()
			if tt.done && l != 0 {
				t.Errorf("expected stop when done, got %f", l)
			}
			if !tt.done && l != 0.8 {
				t.Errorf("expected drive at 0.8, got %f", l)
			}
		})
	}
}

func TestAutoAimDriveTracksBearing(t *testing.T) {
	r := newRig()
	c := NewAutoAimDrive(r.drive, r.nav, r.vision, r.props)

	c.Run()
	if l, rr := r.drive.Outputs(); l != 0 || rr != 0 {
		t.Errorf("no target ever seen: expected no turn, got %f/%f", l, rr)
	}

	r.pose(0, 0, 0)
	r.vision.Set(vision.Target{Visible: true, Angle: 20, Range: 250})
	c.Run()
	l, _ := r.drive.Outputs()
	if l <= 0 {
		t.Errorf("expected clockwise turn toward +20, got %f", l)
	}

	r.vision.Set(vision.Target{Visible: true, Angle: 0.2, Range: 250})
	for i := 0; i < DefaultOnTargetCycles; i++ {
		c.Run()
	}
	if !c.OnTarget() {
		t.Error("expected on target once bearing stays inside tolerance")
	}

	r.vision.Set(vision.Target{})
	c.Run()
	if c.OnTarget() {
		t.Error("losing the target should clear on target")
	}
}

func TestOnTargetFalseAfterReset(t *testing.T) {
	r := newRig()
	speed := NewShooterSpeed(r.shooter, r.props, nil)
	all := []Controller{
		speed,
		NewAutoAimShooter(r.shooter, speed),
		NewDriveTurn(r.drive, r.nav, r.props),
		NewDriveDistance(r.drive, r.nav, r.props),
		NewDriveOverDefense(r.drive, r.nav, r.vision, r.props),
		NewAutoAimDrive(r.drive, r.nav, r.vision, r.props),
	}

	r.vision.Set(vision.Target{Visible: true})
	for _, c := range all {
		for i := 0; i < 5; i++ {
			c.Run()
		}
		c.Reset()
		if c.OnTarget() {
			t.Errorf("%s: on target right after reset", c)
		}
	}
}
