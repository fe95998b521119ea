// Package robot is the top-level application context. New builds every
// subsystem, controller and loop from the hardware it is given; nothing is
// global, so tests can run isolated robots side by side.
package robot

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/robocore/internal/autonomous"
	"github.com/san-kum/robocore/internal/controllers"
	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/hal"
	"github.com/san-kum/robocore/internal/navigation"
	"github.com/san-kum/robocore/internal/properties"
	"github.com/san-kum/robocore/internal/scheduler"
	"github.com/san-kum/robocore/internal/statemachine"
	"github.com/san-kum/robocore/internal/subsystems"
	"github.com/san-kum/robocore/internal/vision"
)

// Hardware is every port the robot is wired to.
type Hardware struct {
	Drive        subsystems.DrivePorts
	Shooter      subsystems.ShooterPorts
	Intake       subsystems.IntakePorts
	Hanger       subsystems.HangerPorts
	Gyro         hal.Gyro
	LeftEncoder  hal.Encoder
	RightEncoder hal.Encoder
	Vision       vision.Source
}

type Deps struct {
	Hardware   Hardware
	Properties *properties.Store
	Dashboard  *dashboard.Board
	Clock      clock.Clock
	Logger     *zap.Logger
	Registry   *autonomous.Registry

	FastPeriod  time.Duration
	StatePeriod time.Duration

	// LiveTuning lets the dashboard override shooter gains.
	LiveTuning bool

	Mode autonomous.Mode

	// AutonomousDir holds the per-mode program files. Empty means the
	// program is whatever is already in Properties.
	AutonomousDir string
}

// Phase is the match phase the robot is in.
type Phase int

const (
	Disabled Phase = iota
	Autonomous
	Teleop
)

func (p Phase) String() string {
	switch p {
	case Autonomous:
		return "autonomous"
	case Teleop:
		return "teleop"
	default:
		return "disabled"
	}
}

type Robot struct {
	deps   Deps
	clk    clock.Clock
	logger *zap.Logger
	board  *dashboard.Board

	Drive   *subsystems.Drive
	Shooter *subsystems.Shooter
	Intake  *subsystems.Intake
	Hanger  *subsystems.Hanger
	Nav     *navigation.Navigation

	ShooterSpeed     *controllers.ShooterSpeed
	AutoAimShooter   *controllers.AutoAimShooter
	DriveTurn        *controllers.DriveTurn
	DriveDistance    *controllers.DriveDistance
	DriveOverDefense *controllers.DriveOverDefense
	AutoAimDrive     *controllers.AutoAimDrive

	loader *autonomous.Loader
	loop   *scheduler.Loop

	mu      sync.Mutex
	phase   Phase
	mode    autonomous.Mode
	program autonomous.Program
	machine *statemachine.Machine
}

func New(d Deps) *Robot {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Properties == nil {
		d.Properties = properties.NewStore()
	}
	if d.Dashboard == nil {
		d.Dashboard = dashboard.New()
	}
	if d.FastPeriod <= 0 {
		d.FastPeriod = scheduler.DefaultPeriod
	}
	if d.StatePeriod <= 0 {
		d.StatePeriod = 2 * d.FastPeriod
	}

	hw := d.Hardware
	r := &Robot{
		deps:   d,
		clk:    d.Clock,
		logger: d.Logger.Named("robot"),
		board:  d.Dashboard,
		mode:   d.Mode,
	}

	r.Nav = navigation.New(hw.Gyro, hw.LeftEncoder, hw.RightEncoder)
	r.Drive = subsystems.NewDrive(hw.Drive)
	r.Intake = subsystems.NewIntake(hw.Intake)
	r.Shooter = subsystems.NewShooter(hw.Shooter, r.Intake)
	r.Hanger = subsystems.NewHanger(hw.Hanger)

	var tuner controllers.Tuner
	if d.LiveTuning {
		tuner = d.Dashboard
	}
	props := d.Properties
	r.ShooterSpeed = controllers.NewShooterSpeed(r.Shooter, props, tuner)
	r.AutoAimShooter = controllers.NewAutoAimShooter(r.Shooter, r.ShooterSpeed)
	r.DriveTurn = controllers.NewDriveTurn(r.Drive, r.Nav, props)
	r.DriveDistance = controllers.NewDriveDistance(r.Drive, r.Nav, props)
	r.DriveOverDefense = controllers.NewDriveOverDefense(r.Drive, r.Nav, hw.Vision, props)
	r.AutoAimDrive = controllers.NewAutoAimDrive(r.Drive, r.Nav, hw.Vision, props)

	r.loader = autonomous.NewLoader(d.Registry, &autonomous.Env{
		Clock:            d.Clock,
		Logger:           d.Logger,
		Dashboard:        d.Dashboard,
		Drive:            r.Drive,
		Shooter:          r.Shooter,
		Intake:           r.Intake,
		Nav:              r.Nav,
		Vision:           hw.Vision,
		ShooterSpeed:     r.ShooterSpeed,
		DriveTurn:        r.DriveTurn,
		DriveDistance:    r.DriveDistance,
		DriveOverDefense: r.DriveOverDefense,
		AutoAimDrive:     r.AutoAimDrive,
	}, d.Logger)

	r.loop = scheduler.NewLoop(r.Nav,
		[]scheduler.Subsystem{r.Drive, r.Shooter, r.Intake, r.Hanger},
		scheduler.WithClock(d.Clock),
		scheduler.WithPeriod(d.FastPeriod),
		scheduler.WithLogger(d.Logger),
	)
	return r
}

func (r *Robot) Loader() *autonomous.Loader   { return r.loader }
func (r *Robot) Loop() *scheduler.Loop       { return r.loop }
func (r *Robot) Dashboard() *dashboard.Board { return r.board }

// LoadAllProperties pushes the current property values into every
// controller.
func (r *Robot) LoadAllProperties() {
	for _, c := range []controllers.Controller{
		r.ShooterSpeed, r.DriveTurn, r.DriveDistance, r.DriveOverDefense, r.AutoAimDrive,
	} {
		c.LoadProperties()
	}
}

// Init is called once at power on.
func (r *Robot) Init() {
	r.LoadAllProperties()
	r.Drive.Reset()
	r.Shooter.Reset()
	r.Intake.Reset()
	r.Hanger.Reset()
	r.logger.Info("robot initialized", zap.Int("properties", len(r.deps.Properties.Keys())))
}

// DisabledPeriodic keeps every mechanism in open loop.
func (r *Robot) DisabledPeriodic() {
	r.setPhase(Disabled)
	r.Drive.SetOpenLoop()
	r.Shooter.SetOpenLoop()
}

// AutonomousInit loads the program for the selected mode and starts a new
// machine over it.
func (r *Robot) AutonomousInit() {
	r.mu.Lock()
	mode := r.mode
	r.mu.Unlock()

	if name := autonomous.ProgramFile(mode); name != "" && r.deps.AutonomousDir != "" {
		path := filepath.Join(r.deps.AutonomousDir, name)
		if err := r.deps.Properties.LoadAutonomousFile(path); err != nil {
			r.logger.Warn("autonomous file not loaded", zap.String("path", path), zap.Error(err))
		}
	}
	r.LoadAllProperties()

	program := r.loader.Compose(mode, r.loader.Build(r.deps.Properties))
	if program.Err != nil {
		r.logger.Warn("autonomous program has substitutions", zap.Error(program.Err))
	}
	machine := statemachine.New(program.States, r.deps.Logger)

	r.mu.Lock()
	r.phase = Autonomous
	r.program = program
	r.machine = machine
	r.mu.Unlock()

	r.logger.Info("autonomous started",
		zap.Int("position", mode.Position),
		zap.Strings("states", program.Names()))
}

// AutonomousPeriodic advances the program by one tick.
func (r *Robot) AutonomousPeriodic() {
	r.mu.Lock()
	m := r.machine
	r.mu.Unlock()
	if m != nil {
		m.Tick()
	}
	r.publish()
}

// TeleopInit hands the drive back to the operator.
func (r *Robot) TeleopInit() {
	r.setPhase(Teleop)
	r.Drive.SetOpenLoop()
}

func (r *Robot) TeleopPeriodic() {
	r.publish()
}

func (r *Robot) setPhase(p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = p
}

// SetMode selects the autonomous routine for the next AutonomousInit.
func (r *Robot) SetMode(m autonomous.Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
}

func (r *Robot) publish() {
	b := r.board
	r.Drive.LogToDashboard(b)
	r.Shooter.LogToDashboard(b)
	r.Intake.LogToDashboard(b)
	r.Hanger.LogToDashboard(b)
	r.Nav.LogToDashboard(b)

	st := r.Status()
	b.PutString("RobotPhase", st.Phase.String())
	b.PutString("AutoState", st.State)
	b.PutNumber("AutoStateIndex", float64(st.StateIndex))
}

// Status is a point-in-time summary for displays.
type Status struct {
	Phase      Phase
	State      string
	StateIndex int
	StateCount int
	Done       bool
}

func (r *Robot) Status() Status {
	r.mu.Lock()
	st := Status{Phase: r.phase}
	m := r.machine
	r.mu.Unlock()

	if m == nil {
		return st
	}
	st.StateIndex = m.Index()
	st.StateCount = m.Len()
	st.Done = m.Done()
	if s := m.Current(); s != nil {
		st.State = s.Name()
	}
	return st
}

// Program returns the program built by the last AutonomousInit.
func (r *Robot) Program() autonomous.Program {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.program
}

var errMatchOver = errors.New("robot: match over")

// Plant is a simulated world stepped alongside the robot.
type Plant interface {
	Step(dt float64) error
}

type Match struct {
	Autonomous time.Duration
	Teleop     time.Duration

	// Plant, when set, is stepped once per fast-loop period.
	Plant Plant

	// Observe, when set, is called after every fast-loop period.
	Observe func()
}

func (m Match) total() time.Duration { return m.Autonomous + m.Teleop }

// phaseAt is the phase for elapsed match time.
func (m Match) phaseAt(elapsed time.Duration) Phase {
	switch {
	case elapsed < m.Autonomous:
		return Autonomous
	case elapsed < m.total():
		return Teleop
	default:
		return Disabled
	}
}

// periodic runs the hook for phase, calling the phase's init on entry.
func (r *Robot) periodic(phase Phase, last *Phase) {
	if phase != *last {
		switch phase {
		case Autonomous:
			r.AutonomousInit()
		case Teleop:
			r.TeleopInit()
		}
		*last = phase
	}
	switch phase {
	case Autonomous:
		r.AutonomousPeriodic()
	case Teleop:
		r.TeleopPeriodic()
	default:
		r.DisabledPeriodic()
	}
}

func isMatchOver(err error) bool {
	return errors.Is(err, errMatchOver) || errors.Is(err, context.Canceled)
}
