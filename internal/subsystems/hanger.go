package subsystems

import (
	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/hal"
)

type HangerPorts struct {
	Winch  hal.Motor
	Piston hal.Solenoid
}

// Hanger is the end-game climber.
type Hanger struct {
	Base
	ports HangerPorts
}

func NewHanger(p HangerPorts) *Hanger {
	return &Hanger{Base: Base{name: "Hanger"}, ports: p}
}

func (h *Hanger) SetSpeed(v float64) { h.ports.Winch.Set(v) }
func (h *Hanger) Speed() float64     { return h.ports.Winch.Get() }

// Deploy vents the piston; Retract energizes it.
func (h *Hanger) Deploy()  { h.ports.Piston.Set(false) }
func (h *Hanger) Retract() { h.ports.Piston.Set(true) }

func (h *Hanger) Reset() { h.SetSpeed(0) }

func (h *Hanger) LogToDashboard(s dashboard.Sink) {
	s.PutString("HangerCurrentController", h.ControllerName())
}
