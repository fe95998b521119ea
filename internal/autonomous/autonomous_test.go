package autonomous

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/robocore/internal/controllers"
	"github.com/san-kum/robocore/internal/hal"
	"github.com/san-kum/robocore/internal/navigation"
	"github.com/san-kum/robocore/internal/properties"
	"github.com/san-kum/robocore/internal/statemachine"
	"github.com/san-kum/robocore/internal/subsystems"
	"github.com/san-kum/robocore/internal/vision"
)

type rig struct {
	clock *clock.Mock
	env   *Env

	motors     []*hal.MemMotor
	gyro       *hal.MemGyro
	left       *hal.MemEncoder
	right      *hal.MemEncoder
	counter    *hal.MemCounter
	ballSensor *hal.MemSwitch
	piston     *hal.MemDoubleSolenoid
	vision     *vision.Static
}

func newRig(t *testing.T) *rig {
	r := &rig{
		clock:      clock.NewMock(),
		gyro:       &hal.MemGyro{},
		left:       &hal.MemEncoder{},
		right:      &hal.MemEncoder{},
		counter:    &hal.MemCounter{},
		ballSensor: &hal.MemSwitch{},
		piston:     &hal.MemDoubleSolenoid{},
		vision:     vision.NewStatic(vision.Target{}),
	}
	motor := func(inverted bool) *hal.MemMotor {
		m := hal.NewMemMotor(inverted)
		r.motors = append(r.motors, m)
		return m
	}

	nav := navigation.New(r.gyro, r.left, r.right)
	drive := subsystems.NewDrive(subsystems.DrivePorts{
		Left: motor(false), Right: motor(true),
		DefenseSensor: &hal.MemSwitch{}, RailSensor: &hal.MemSwitch{},
	})
	drive.UseAlphaFilter(false)
	intake := subsystems.NewIntake(subsystems.IntakePorts{
		Roller: motor(false), Conveyor: motor(true),
		Piston: r.piston, Popper: &hal.MemDoubleSolenoid{},
		BallSensor: r.ballSensor,
	})
	shooter := subsystems.NewShooter(subsystems.ShooterPorts{
		Wheel: motor(true), Counter: r.counter, Hood: &hal.MemSolenoid{},
		BallLight: &hal.MemSolenoid{}, StatusLight: &hal.MemSolenoid{}, VisionLight: &hal.MemSolenoid{},
		LeftBarrier: &hal.MemServo{}, RightBarrier: &hal.MemServo{},
	}, intake)
	props := properties.NewStore()

	r.env = &Env{
		Clock:            r.clock,
		Logger:           zaptest.NewLogger(t),
		Drive:            drive,
		Shooter:          shooter,
		Intake:           intake,
		Nav:              nav,
		Vision:           r.vision,
		ShooterSpeed:     controllers.NewShooterSpeed(shooter, props, nil),
		DriveTurn:        controllers.NewDriveTurn(drive, nav, props),
		DriveDistance:    controllers.NewDriveDistance(drive, nav, props),
		DriveOverDefense: controllers.NewDriveOverDefense(drive, nav, r.vision, props),
		AutoAimDrive:     controllers.NewAutoAimDrive(drive, nav, r.vision, props),
	}
	return r
}

func (r *rig) loader(t *testing.T) *Loader {
	return NewLoader(DefaultRegistry(), r.env, zaptest.NewLogger(t))
}

func (r *rig) writes() int {
	n := 0
	for _, m := range r.motors {
		n += m.Writes()
	}
	return n
}

func (r *rig) setRPM(rpm float64) {
	r.counter.Put(60 / (rpm * 2))
	for i := 0; i < 10; i++ {
		r.env.Shooter.RunInputFilters()
	}
}

func TestBuildResolvesProgram(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]string
		want  []string
		err   error
	}{
		{
			name:  "missing count",
			props: map[string]string{},
			want:  []string{"WaitForTime"},
			err:   ErrNoStates,
		},
		{
			name:  "zero count",
			props: map[string]string{"AutonomousNumStates": "0", "AutonomousState1": "StealBall"},
			want:  []string{"WaitForTime"},
			err:   ErrNoStates,
		},
		{
			name:  "count past the limit",
			props: map[string]string{"AutonomousNumStates": "99999999999999", "AutonomousState1": "StealBall"},
			want:  []string{"WaitForTime"},
			err:   ErrNoStates,
		},
		{
			name:  "count one past the limit",
			props: map[string]string{"AutonomousNumStates": "65"},
			want:  []string{"WaitForTime"},
			err:   ErrNoStates,
		},
		{
			name: "known states",
			props: map[string]string{
				"AutonomousNumStates":    "3",
				"AutonomousState1":       "DeployIntake",
				"AutonomousState1Param1": "1",
				"AutonomousState2":       "DriveOverDefense",
				"AutonomousState2Param1": "100",
				"AutonomousState2Param2": "0.8",
				"AutonomousState2Param3": "60",
				"AutonomousState3":       "JustShoot",
				"AutonomousState3Param1": "5000",
			},
			want: []string{"DeployIntake", "DriveOverDefense", "JustShoot"},
		},
		{
			name: "unknown name keeps its slot",
			props: map[string]string{
				"AutonomousNumStates": "3",
				"AutonomousState1":    "StealBall",
				"AutonomousState2":    "Cartwheel",
				"AutonomousState3":    "StealBall",
			},
			want: []string{"StealBall", "WaitForTime", "StealBall"},
			err:  ErrUnknownState,
		},
		{
			name: "rejected parameter",
			props: map[string]string{
				"AutonomousNumStates":    "1",
				"AutonomousState1":       "JustShoot",
				"AutonomousState1Param1": "-5",
			},
			want: []string{"WaitForTime"},
			err:  ErrInvalidParam,
		},
		{
			name: "missing name",
			props: map[string]string{
				"AutonomousNumStates": "2",
				"AutonomousState1":    "StealBall",
			},
			want: []string{"StealBall", "WaitForTime"},
			err:  ErrUnknownState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			p := r.loader(t).Build(properties.FromMap(tt.props))

			if diff := cmp.Diff(tt.want, p.Names()); diff != "" {
				t.Errorf("states mismatch (-want +got):\n%s", diff)
			}
			if tt.err == nil && p.Err != nil {
				t.Errorf("unexpected error: %v", p.Err)
			}
			if tt.err != nil && !errors.Is(p.Err, tt.err) {
				t.Errorf("err = %v, want %v", p.Err, tt.err)
			}
		})
	}
}

func TestBuildTruncatesIntegerParams(t *testing.T) {
	r := newRig(t)
	p := r.loader(t).Build(properties.FromMap(map[string]string{
		"AutonomousNumStates":    "2",
		"AutonomousState1":       "WaitForTime",
		"AutonomousState1Param1": "1500.9",
		"AutonomousState2":       "WaitForTime",
		"AutonomousState2Param1": "-0.5",
	}))
	if p.Err != nil {
		t.Fatalf("unexpected error: %v", p.Err)
	}

	got := []time.Duration{
		p.States[0].(*WaitForTime).Timeout(),
		p.States[1].(*WaitForTime).Timeout(),
	}
	want := []time.Duration{1500 * time.Millisecond, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("timeouts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRecoversFactoryPanic(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)

	reg := DefaultRegistry()
	reg.Register("Boom", nil, func(*Env, Params) (statemachine.State, error) {
		panic("boom")
	})
	reg.Register("Nothing", nil, func(*Env, Params) (statemachine.State, error) {
		return nil, nil
	})
	l := NewLoader(reg, r.env, zaptest.NewLogger(t))

	p := l.Build(properties.FromMap(map[string]string{
		"AutonomousNumStates": "3",
		"AutonomousState1":    "Boom",
		"AutonomousState2":    "Nothing",
		"AutonomousState3":    "StealBall",
	}))

	g.Expect(p.Names()).To(Equal([]string{"WaitForTime", "WaitForTime", "StealBall"}))
	g.Expect(p.Err).To(MatchError(ContainSubstring("panicked")))
	g.Expect(p.Err.Error()).To(ContainSubstring("no state"))
}

func TestZeroWaitProgramFinishesWithoutActuation(t *testing.T) {
	r := newRig(t)
	p := r.loader(t).Build(properties.FromMap(map[string]string{
		"AutonomousNumStates":    "2",
		"AutonomousState1":       "WaitForTime",
		"AutonomousState1Param1": "0",
		"AutonomousState2":       "WaitForTime",
		"AutonomousState2Param1": "0",
	}))
	before := r.writes()

	m := statemachine.New(p.States, zaptest.NewLogger(t))
	for i := 0; i < 2; i++ {
		m.Tick()
	}

	if !m.Done() {
		t.Fatalf("machine not done after 2 ticks, at index %d", m.Index())
	}
	if got := r.writes(); got != before {
		t.Errorf("actuator writes = %d, want %d", got, before)
	}
}

func TestRegistryNames(t *testing.T) {
	want := []string{
		"AltDriveOverDefense", "AutoAimAndShoot", "DeployIntake", "DriveDistance",
		"DriveOverDefense", "DriveToDefense", "JustShoot", "ResetHeading",
		"StartShooter", "StealBall", "TurnToAngle", "WaitForTime",
	}
	if diff := cmp.Diff(want, DefaultRegistry().Names()); diff != "" {
		t.Errorf("registry mismatch (-want +got):\n%s", diff)
	}

	e, _ := DefaultRegistry().Lookup("AltDriveOverDefense")
	if got := e.Signature(); got != "AltDriveOverDefense(real, int)" {
		t.Errorf("Signature() = %q", got)
	}
}

func TestRegistryArity(t *testing.T) {
	r := newRig(t)
	_, err := DefaultRegistry().New(r.env, "DriveDistance", Params{10})
	if !errors.Is(err, ErrInvalidParam) {
		t.Errorf("err = %v, want ErrInvalidParam", err)
	}
}

func TestDeployIntakeDirection(t *testing.T) {
	tests := []struct {
		param float64
		want  hal.DoubleSolenoidValue
	}{
		{1, hal.Forward},
		{0, hal.Reverse},
		{-1, hal.Reverse},
	}
	for _, tt := range tests {
		r := newRig(t)
		m := statemachine.New([]statemachine.State{NewDeployIntake(r.env, tt.param)}, nil)
		m.Tick()
		if !m.Done() {
			t.Errorf("DeployIntake(%g) not done after one tick", tt.param)
		}
		if got := r.piston.Get(); got != tt.want {
			t.Errorf("DeployIntake(%g) piston = %v, want %v", tt.param, got, tt.want)
		}
	}
}

func TestStealBall(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	m := statemachine.New([]statemachine.State{NewStealBall(r.env)}, nil)

	m.Tick()
	g.Expect(r.env.Intake.IntakeSpeed()).To(Equal(1.0))
	g.Expect(r.env.Intake.ConveyorSpeed()).To(Equal(0.6))
	g.Expect(r.piston.Get()).To(Equal(hal.Forward))

	r.ballSensor.Put(true)
	m.Tick()
	g.Expect(m.Done()).To(BeTrue())
	g.Expect(r.env.Intake.IntakeSpeed()).To(BeZero())
	g.Expect(r.env.Intake.ConveyorSpeed()).To(BeZero())
	g.Expect(r.piston.Get()).To(Equal(hal.Reverse))
}

func TestStealBallTimesOut(t *testing.T) {
	r := newRig(t)
	m := statemachine.New([]statemachine.State{NewStealBall(r.env)}, nil)
	m.Tick()
	r.clock.Add(2 * time.Second)
	m.Tick()
	if !m.Done() {
		t.Error("StealBall still running after 2s")
	}
}

func TestStartShooterHandsOverFlywheel(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	m := statemachine.New([]statemachine.State{NewStartShooter(r.env, 3200)}, nil)
	m.Tick()

	g.Expect(m.Done()).To(BeTrue())
	g.Expect(r.env.Shooter.ControllerName()).To(Equal("ShooterSpeedController"))
	g.Expect(r.env.ShooterSpeed.Goal()).To(Equal(3200.0))
}

func TestJustShootFiresAfterSettling(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	m := statemachine.New([]statemachine.State{NewJustShoot(r.env, 10000)}, nil)

	tick := func() {
		r.env.Shooter.RunCurrentController()
		m.Tick()
	}

	r.setRPM(4750)
	tick() // enter: controller takes the flywheel
	for i := 0; i < 6; i++ {
		tick()
	}
	g.Expect(r.env.Intake.ConveyorSpeed()).To(Equal(1.0))
	g.Expect(m.Done()).To(BeFalse())

	r.clock.Add(2 * time.Second)
	tick()
	g.Expect(m.Done()).To(BeTrue())
	g.Expect(r.env.Intake.ConveyorSpeed()).To(BeZero())
	g.Expect(r.env.Shooter.ControllerName()).To(Equal(subsystems.OpenLoop))
}

func TestJustShootResetsWhenSpeedDrops(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	s := NewJustShoot(r.env, 10000)
	m := statemachine.New([]statemachine.State{s}, nil)

	tick := func() {
		r.env.Shooter.RunCurrentController()
		m.Tick()
	}

	r.setRPM(4750)
	for i := 0; i < 7; i++ {
		tick()
	}
	g.Expect(r.env.Intake.ConveyorSpeed()).To(Equal(1.0))

	r.setRPM(3000)
	tick()
	g.Expect(s.settled).To(BeZero())
	g.Expect(s.feeding).To(BeFalse())

	r.clock.Add(3 * time.Second)
	tick()
	g.Expect(m.Done()).To(BeFalse())
}

func TestJustShootTimesOut(t *testing.T) {
	r := newRig(t)
	m := statemachine.New([]statemachine.State{NewJustShoot(r.env, 500)}, nil)
	m.Tick()
	r.clock.Add(500 * time.Millisecond)
	m.Tick()
	if !m.Done() {
		t.Error("JustShoot still running at its timeout")
	}
}

func TestAltDriveOverDefense(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	r.gyro.Put(90, 0)
	r.env.Nav.Run()

	s := NewAltDriveOverDefense(r.env, 0.6, 5000)
	m := statemachine.New([]statemachine.State{s}, nil)
	m.Tick()

	left, right := r.env.Drive.Outputs()
	g.Expect(left).To(BeNumerically("~", 0.6, 1e-9))
	g.Expect(right).To(BeNumerically("~", 0.6, 1e-9))

	// Drifted right and climbing: steer back left, not done.
	r.gyro.Put(100, 12)
	r.left.Put(80)
	r.right.Put(80)
	r.env.Nav.Run()
	m.Tick()
	left, right = r.env.Drive.Outputs()
	g.Expect(left).To(BeNumerically("<", right))
	g.Expect(m.Done()).To(BeFalse())

	// Level again past the minimum distance.
	r.gyro.Put(90, 1)
	r.env.Nav.Run()
	m.Tick()
	g.Expect(m.Done()).To(BeTrue())
}

func TestDriveDistanceState(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	m := statemachine.New([]statemachine.State{NewDriveDistance(r.env, 75, 0.5)}, nil)

	m.Tick()
	g.Expect(m.Done()).To(BeFalse())
	g.Expect(r.env.Drive.ControllerName()).To(Equal("DriveDistanceController"))

	r.left.Put(75)
	r.right.Put(75)
	r.env.Nav.Run()
	r.env.Drive.RunCurrentController()
	m.Tick()
	g.Expect(m.Done()).To(BeTrue())
	g.Expect(r.env.Drive.ControllerName()).To(Equal(subsystems.OpenLoop))
}

func TestSensorGatedDrivesTimeOut(t *testing.T) {
	tests := []struct {
		name   string
		build  func(env *Env) statemachine.State
		budget time.Duration
	}{
		{"DriveDistance", func(env *Env) statemachine.State { return NewDriveDistance(env, 75, 0.5) }, driveDistanceTimeout},
		// Blind vision: the travel comes out negative and the defense
		// sensor never trips.
		{"DriveToDefense", func(env *Env) statemachine.State { return NewDriveToDefense(env, 40, 0.5) }, driveToDefenseTimeout},
		{"DriveOverDefense", func(env *Env) statemachine.State { return NewDriveOverDefense(env, 250, 0.8, 50) }, driveOverDefenseTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			m := statemachine.New([]statemachine.State{tt.build(r.env)}, nil)

			m.Tick()
			r.clock.Add(tt.budget - time.Millisecond)
			m.Tick()
			if m.Done() {
				t.Fatalf("%s finished before its budget with the wheels still", tt.name)
			}

			r.clock.Add(time.Millisecond)
			m.Tick()
			if !m.Done() {
				t.Errorf("%s still running after %v", tt.name, tt.budget)
			}
			if got := r.env.Drive.ControllerName(); got != subsystems.OpenLoop {
				t.Errorf("drive controller after timeout = %q, want open loop", got)
			}
		})
	}
}

func TestAutoAimAndShootSeeksRange(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	r.env.Drive.SetAlpha(1)
	s := NewAutoAimAndShoot(r.env, 0)
	m := statemachine.New([]statemachine.State{s}, nil)

	// Blind: back away while ranging.
	m.Tick()
	left, _ := r.env.Drive.Outputs()
	g.Expect(left).To(BeNumerically("~", -0.5, 1e-9))

	// Too far: close in.
	r.vision.Set(vision.Target{Visible: true, Range: 400})
	m.Tick()
	left, _ = r.env.Drive.Outputs()
	g.Expect(left).To(BeNumerically("~", 0.5, 1e-9))

	// In range: the aiming controller takes the drive.
	r.vision.Set(vision.Target{Visible: true, Range: 260})
	m.Tick()
	g.Expect(r.env.Drive.ControllerName()).To(Equal("AutoAimDriveController"))
}

func TestAutoAimAndShootSweepsWhenBlind(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	r.gyro.Put(350, 0)
	r.env.Nav.Run()
	r.env.Drive.SetAlpha(1)
	m := statemachine.New([]statemachine.State{NewAutoAimAndShoot(r.env, 0)}, nil)

	m.Tick()
	r.clock.Add(time.Second)
	m.Tick()
	left, right := r.env.Drive.Outputs()
	// Aim is 10 degrees clockwise: turn right first.
	g.Expect(left).To(BeNumerically(">", right))

	r.clock.Add(300 * time.Millisecond)
	m.Tick()
	m.Tick()
	left, right = r.env.Drive.Outputs()
	g.Expect(left).To(BeNumerically("<", right))
}

func TestAutoAimAndShootSweepsTowardAimAngle(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	r.gyro.Put(350, 0)
	r.env.Nav.Run()
	r.env.Drive.SetAlpha(1)
	m := statemachine.New([]statemachine.State{NewAutoAimAndShoot(r.env, 345)}, nil)

	m.Tick()
	r.clock.Add(time.Second)
	m.Tick()
	left, right := r.env.Drive.Outputs()
	// Aim is 5 degrees counterclockwise: turn left first.
	g.Expect(left).To(BeNumerically("<", right))
}

func TestAutoAimAndShootExitRestoresOpenLoop(t *testing.T) {
	g := NewWithT(t)
	r := newRig(t)
	s := NewAutoAimAndShoot(r.env, 0)
	s.Enter()
	r.vision.Set(vision.Target{Visible: true, Range: 260})
	s.Running()
	s.Exit()

	g.Expect(r.env.Drive.ControllerName()).To(Equal(subsystems.OpenLoop))
	g.Expect(r.env.Shooter.ControllerName()).To(Equal(subsystems.OpenLoop))
	g.Expect(r.env.Intake.ConveyorSpeed()).To(BeZero())
}

func TestCompose(t *testing.T) {
	defense := map[string]string{
		"AutonomousNumStates":    "1",
		"AutonomousState1":       "AltDriveOverDefense",
		"AutonomousState1Param1": "0.7",
		"AutonomousState1Param2": "4000",
	}

	tests := []struct {
		name string
		mode Mode
		want []string
	}{
		{"do nothing", Mode{Position: PositionDoNothing}, []string{"WaitForTime"}},
		{"reach", Mode{Position: PositionReach}, []string{"DriveDistance"}},
		{"spy bot", Mode{Position: PositionSpyBot}, []string{"AltDriveOverDefense"}},
		{
			"defense with turn",
			Mode{Position: 2},
			[]string{"ResetHeading", "AltDriveOverDefense", "WaitForTime", "TurnToAngle", "AutoAimAndShoot"},
		},
		{
			"low bar steals a ball",
			Mode{Position: 1, StealBall: true},
			[]string{"ResetHeading", "StealBall", "AltDriveOverDefense", "WaitForTime", "WaitForTime", "AutoAimAndShoot"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			l := r.loader(t)
			p := l.Compose(tt.mode, l.Build(properties.FromMap(defense)))
			if diff := cmp.Diff(tt.want, p.Names()); diff != "" {
				t.Errorf("composed program mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComposeAimsFromPosition(t *testing.T) {
	tests := []struct {
		position int
		want     float64
	}{
		{1, 0},
		{2, 15},
		{3, 5},
		{4, 5},
		{5, 345},
	}
	for _, tt := range tests {
		r := newRig(t)
		l := r.loader(t)
		p := l.Compose(Mode{Position: tt.position}, l.Build(properties.FromMap(nil)))

		last, ok := p.States[len(p.States)-1].(*AutoAimAndShoot)
		if !ok {
			t.Fatalf("position %d: last state is %T, want *AutoAimAndShoot", tt.position, p.States[len(p.States)-1])
		}
		if last.aimAngle != tt.want {
			t.Errorf("position %d: aim angle = %v, want %v", tt.position, last.aimAngle, tt.want)
		}
	}
}

func TestComposeFillsNilSlots(t *testing.T) {
	r := newRig(t)
	l := r.loader(t)
	p := l.Compose(Mode{Position: PositionChevy}, Program{States: []statemachine.State{nil}})
	if diff := cmp.Diff([]string{"WaitForTime"}, p.Names()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestProgramFile(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{Mode{Position: PositionSpyBot}, "Spybot.txt"},
		{Mode{Position: PositionChevy}, "CDF.txt"},
		{Mode{Position: PositionReach}, ""},
		{Mode{Position: 2, Defense: DefenseRoughTerrain}, "RoughTerrain.txt"},
		{Mode{Position: 3, Defense: DefenseRockWall}, "RockWall.txt"},
		{Mode{Position: 4, Defense: DefenseRamparts}, "Rampparts.txt"},
		{Mode{Position: 5, Defense: DefenseMoat}, "Moat.txt"},
		{Mode{Position: 5}, ""},
	}
	for _, tt := range tests {
		if got := ProgramFile(tt.mode); got != tt.want {
			t.Errorf("ProgramFile(%+v) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
