package subsystems

import (
	"sync"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/hal"
)

// DefaultDriveAlpha limits acceleration on SetSpeedTurn.
const DefaultDriveAlpha = 0.05

type DrivePorts struct {
	Left, Right   hal.Motor
	DefenseSensor hal.DigitalInput
	RailSensor    hal.DigitalInput
}

// Drive is the differential drive base. Motor inversion is a property of the
// ports; Drive deals in logical forward-positive commands.
type Drive struct {
	Base
	ports DrivePorts

	mu       sync.Mutex
	alpha    *control.AlphaFilter
	useAlpha bool
}

func NewDrive(p DrivePorts) *Drive {
	return &Drive{
		Base:     Base{name: "Drive"},
		ports:    p,
		alpha:    control.NewAlphaFilter(DefaultDriveAlpha),
		useAlpha: true,
	}
}

// SetSpeed drives each side independently, in [-1, 1].
func (d *Drive) SetSpeed(left, right float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.set(left, right)
}

// SetSpeedTurn is arcade drive: left = speed + turn, right = speed - turn.
// Speed passes through the alpha filter when enabled.
func (d *Drive) SetSpeedTurn(speed, turn float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.useAlpha {
		speed = d.alpha.Calculate(speed)
	}
	d.set(speed+turn, speed-turn)
}

func (d *Drive) set(left, right float64) {
	d.ports.Left.Set(left)
	d.ports.Right.Set(right)
}

func (d *Drive) UseAlphaFilter(use bool) {
	d.mu.Lock()
	d.useAlpha = use
	d.mu.Unlock()
}

func (d *Drive) SetAlpha(alpha float64) {
	d.mu.Lock()
	d.alpha.SetAlpha(alpha)
	d.mu.Unlock()
}

// Outputs returns the last left and right commands.
func (d *Drive) Outputs() (left, right float64) {
	return d.ports.Left.Get(), d.ports.Right.Get()
}

// SeesDefense reports an obstacle under the robot.
func (d *Drive) SeesDefense() bool { return d.ports.DefenseSensor.Get() }

// StuckOnDefense is true when the rail limit switch has opened.
func (d *Drive) StuckOnDefense() bool { return !d.ports.RailSensor.Get() }

// Reset stops both sides.
func (d *Drive) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alpha.Reset()
	d.set(0, 0)
}

func (d *Drive) LogToDashboard(s dashboard.Sink) {
	l, r := d.Outputs()
	s.PutNumber("DriveLeftMotorOutput", l)
	s.PutNumber("DriveRightMotorOutput", r)
	s.PutBoolean("DriveSeesDefense", d.SeesDefense())
	s.PutBoolean("DriveStuckOnDefense", d.StuckOnDefense())
	s.PutString("DriveCurrentController", d.ControllerName())
}
