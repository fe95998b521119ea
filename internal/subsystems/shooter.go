package subsystems

import (
	"sync"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/hal"
)

const (
	// MaxValidRPM rejects spurious counter readings.
	MaxValidRPM = 8000.0

	countsPerRev   = 2
	rpmFilterTaps  = 10
	hoodBatter     = true
	hoodOuterworks = false
)

type ShooterPorts struct {
	Wheel        hal.Motor
	Counter      hal.Counter
	Hood         hal.Solenoid
	BallLight    hal.Solenoid
	StatusLight  hal.Solenoid
	VisionLight  hal.Solenoid
	LeftBarrier  hal.Servo
	RightBarrier hal.Servo
}

// Shooter is the flywheel with its hood, barrier arms and lights. It feeds
// balls through the intake's conveyor.
type Shooter struct {
	Base
	ports  ShooterPorts
	intake *Intake

	mu        sync.Mutex
	rpmFilter *control.MovingAverage // loop-owned writes
	blink     int
}

func NewShooter(p ShooterPorts, intake *Intake) *Shooter {
	return &Shooter{
		Base:      Base{name: "Shooter"},
		ports:     p,
		intake:    intake,
		rpmFilter: control.NewMovingAverage(rpmFilterTaps),
	}
}

// RunInputFilters converts the counter period into rpm and feeds the moving
// average. Readings at or above MaxValidRPM are dropped.
func (s *Shooter) RunInputFilters() {
	period := s.ports.Counter.Period()
	if period <= 0 {
		return
	}
	rpm := 60.0 / (period * countsPerRev)
	if rpm >= MaxValidRPM {
		return
	}
	s.mu.Lock()
	s.rpmFilter.Add(rpm)
	s.mu.Unlock()
}

// RPM is the filtered wheel speed.
func (s *Shooter) RPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rpmFilter.Average()
}

func (s *Shooter) SetSpeed(v float64) { s.ports.Wheel.Set(v) }
func (s *Shooter) Speed() float64     { return s.ports.Wheel.Get() }

// Shoot runs the conveyor into the wheel.
func (s *Shooter) Shoot() { s.intake.SetConveyorSpeed(1.0) }

func (s *Shooter) SetBatterPosition()     { s.ports.Hood.Set(hoodBatter) }
func (s *Shooter) SetOuterworksPosition() { s.ports.Hood.Set(hoodOuterworks) }

func (s *Shooter) IsHoodBatterPosition() bool     { return s.ports.Hood.Get() == hoodBatter }
func (s *Shooter) IsHoodOuterworksPosition() bool { return s.ports.Hood.Get() == hoodOuterworks }

func (s *Shooter) DeployBarrier() {
	s.ports.LeftBarrier.SetAngle(0)
	s.ports.RightBarrier.SetAngle(90)
}

func (s *Shooter) RetractBarrier() {
	s.ports.LeftBarrier.SetAngle(90)
	s.ports.RightBarrier.SetAngle(0)
}

func (s *Shooter) SetBallLight(on bool)   { s.ports.BallLight.Set(on) }
func (s *Shooter) SetStatusLight(on bool) { s.ports.StatusLight.Set(on) }
func (s *Shooter) SetVisionLight(on bool) { s.ports.VisionLight.Set(on) }

// LightShow steps a 60-call blink pattern on the status and ball lights.
func (s *Shooter) LightShow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.blink {
	case 1:
		s.SetStatusLight(true)
	case 10:
		s.SetStatusLight(false)
	case 20:
		s.SetBallLight(true)
	case 30:
		s.SetBallLight(false)
	case 40:
		s.SetStatusLight(true)
		s.SetBallLight(true)
	case 50:
		s.SetStatusLight(false)
		s.SetBallLight(false)
	case 59:
		s.blink = 0
	}
	s.blink++
}

// Reset stops the wheel, lowers the hood to outerworks and clears the rpm
// history.
func (s *Shooter) Reset() {
	s.SetSpeed(0)
	s.SetOuterworksPosition()
	s.mu.Lock()
	s.rpmFilter.Reset()
	s.mu.Unlock()
}

func (s *Shooter) LogToDashboard(d dashboard.Sink) {
	d.PutNumber("ShooterRPM", s.RPM())
	hood := "Outerworks"
	if s.IsHoodBatterPosition() {
		hood = "Batter"
	}
	d.PutString("ShooterHoodPosition", hood)
	d.PutString("ShooterCurrentController", s.ControllerName())
}
