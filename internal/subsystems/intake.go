package subsystems

import (
	"sync"

	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/hal"
)

type IntakePorts struct {
	Roller     hal.Motor
	Conveyor   hal.Motor
	Piston     hal.DoubleSolenoid
	Popper     hal.DoubleSolenoid
	BallSensor hal.DigitalInput
}

// Intake picks balls off the floor and conveys them to the shooter.
//
// Deploy fires the piston Reverse and Retract fires it Forward. On the robot
// these names are swapped relative to the arm's motion: Retract is what
// lowers the arm to the floor. Callers rely on the valve positions, not the
// names.
type Intake struct {
	Base
	ports IntakePorts

	mu             sync.Mutex
	popperDeployed bool
}

func NewIntake(p IntakePorts) *Intake {
	return &Intake{Base: Base{name: "Intake"}, ports: p}
}

func (i *Intake) SetIntakeSpeed(v float64)   { i.ports.Roller.Set(v) }
func (i *Intake) IntakeSpeed() float64       { return i.ports.Roller.Get() }
func (i *Intake) SetConveyorSpeed(v float64) { i.ports.Conveyor.Set(v) }
func (i *Intake) ConveyorSpeed() float64     { return i.ports.Conveyor.Get() }

func (i *Intake) Deploy()  { i.ports.Piston.Set(hal.Reverse) }
func (i *Intake) Retract() { i.ports.Piston.Set(hal.Forward) }

// SetPosition calls Deploy for true and Retract for false.
func (i *Intake) SetPosition(deploy bool) {
	if deploy {
		i.Deploy()
	} else {
		i.Retract()
	}
}

func (i *Intake) Position() hal.DoubleSolenoidValue { return i.ports.Piston.Get() }

func (i *Intake) SeesBall() bool { return i.ports.BallSensor.Get() }

func (i *Intake) DeployPopper() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ports.Popper.Set(hal.Forward)
	i.popperDeployed = true
}

func (i *Intake) RetractPopper() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ports.Popper.Set(hal.Reverse)
	i.popperDeployed = false
}

func (i *Intake) PopperDeployed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.popperDeployed
}

// Reset stops the rollers and fires Retract.
func (i *Intake) Reset() {
	i.SetIntakeSpeed(0)
	i.SetConveyorSpeed(0)
	i.Retract()
}

func (i *Intake) LogToDashboard(s dashboard.Sink) {
	s.PutBoolean("ConveyorSeesBall", i.SeesBall())
	switch i.Position() {
	case hal.Forward:
		s.PutString("IntakePosition", "Deployed")
	case hal.Reverse:
		s.PutString("IntakePosition", "Retracted")
	}
}
