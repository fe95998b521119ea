// Package hal defines the hardware ports the subsystems write to and the
// sensors they read from. Real drivers live outside this module; the in-memory
// implementations here back the simulated plant and the tests.
package hal

// Motor is a speed controller driven in the normalized range [-1, 1].
type Motor interface {
	Set(speed float64)
	Get() float64
}

type Solenoid interface {
	Set(on bool)
	Get() bool
}

// DoubleSolenoidValue is the position of a two-coil valve.
type DoubleSolenoidValue int

const (
	Off DoubleSolenoidValue = iota
	Forward
	Reverse
)

func (v DoubleSolenoidValue) String() string {
	switch v {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "off"
	}
}

type DoubleSolenoid interface {
	Set(v DoubleSolenoidValue)
	Get() DoubleSolenoidValue
}

type DigitalInput interface {
	Get() bool
}

// Counter measures the period between pulses on a digital line, in seconds.
type Counter interface {
	Period() float64
}

type Servo interface {
	SetAngle(deg float64)
	Angle() float64
}

// Gyro reports yaw and pitch in degrees.
type Gyro interface {
	Yaw() float64
	Pitch() float64
}

// Encoder reports travelled distance in inches since the last reset.
type Encoder interface {
	Distance() float64
	Reset()
}
