package control

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidGains indicates a gain set whose ranges are inverted or empty.
var ErrInvalidGains = errors.New("control: invalid gains")

// DefaultPeriod is the loop period assumed by a PID until SetPeriod is called.
const DefaultPeriod = 10 * time.Millisecond

// Gains configures a PID.
type Gains struct {
	P          float64 `yaml:"p"`
	I          float64 `yaml:"i"`
	D          float64 `yaml:"d"`
	OutputMin  float64 `yaml:"output_min"`
	OutputMax  float64 `yaml:"output_max"`
	Continuous bool    `yaml:"continuous"`
	InputMin   float64 `yaml:"input_min"`
	InputMax   float64 `yaml:"input_max"`
	Tolerance  float64 `yaml:"tolerance"`
}

// Validate checks outputMin <= outputMax and, for a continuous input,
// inputMin < inputMax.
func (g Gains) Validate() error {
	if g.OutputMin > g.OutputMax {
		return fmt.Errorf("%w: output range [%g, %g]", ErrInvalidGains, g.OutputMin, g.OutputMax)
	}
	if g.Continuous && g.InputMin >= g.InputMax {
		return fmt.Errorf("%w: continuous input range [%g, %g]", ErrInvalidGains, g.InputMin, g.InputMax)
	}
	return nil
}

type PID struct {
	gains  Gains
	period float64

	setpoint  float64
	integral  float64
	prevError float64
	lastError float64
	output    float64
	evaluated bool
}

// NewPID returns a PID with the given gains. A zero output range is widened
// to [-1, 1], the normalized actuator range.
func NewPID(g Gains) *PID {
	if g.OutputMin == 0 && g.OutputMax == 0 {
		g.OutputMin, g.OutputMax = -1, 1
	}
	return &PID{
		gains:  g,
		period: DefaultPeriod.Seconds(),
	}
}

func (p *PID) Gains() Gains { return p.gains }

// Configure replaces every gain at once. Invalid gains are rejected and the
// previous configuration is kept.
func (p *PID) Configure(g Gains) error {
	if err := g.Validate(); err != nil {
		return err
	}
	p.gains = g
	return nil
}

func (p *PID) SetGains(kp, ki, kd float64) {
	p.gains.P, p.gains.I, p.gains.D = kp, ki, kd
}

// SetOutputRange sets the clamp bounds. Swapped bounds are reordered.
func (p *PID) SetOutputRange(min, max float64) {
	if min > max {
		min, max = max, min
	}
	p.gains.OutputMin, p.gains.OutputMax = min, max
}

// SetContinuous marks the input as wrapping between inputMin and inputMax.
// An empty or inverted range disables wraparound.
func (p *PID) SetContinuous(inputMin, inputMax float64) {
	if inputMin >= inputMax {
		p.gains.Continuous = false
		return
	}
	p.gains.Continuous = true
	p.gains.InputMin, p.gains.InputMax = inputMin, inputMax
}

func (p *PID) SetTolerance(tolerance float64) { p.gains.Tolerance = math.Abs(tolerance) }

// SetPeriod sets the dt used by the integral and derivative terms.
func (p *PID) SetPeriod(d time.Duration) {
	if d > 0 {
		p.period = d.Seconds()
	}
}

func (p *PID) SetSetpoint(v float64) { p.setpoint = v }
func (p *PID) Setpoint() float64     { return p.setpoint }

// Error returns the error of the last evaluation.
func (p *PID) Error() float64 { return p.lastError }

// Output returns the last clamped output.
func (p *PID) Output() float64 { return p.output }

// Calculate runs one evaluation against measurement and returns the clamped
// output.
func (p *PID) Calculate(measurement float64) float64 {
	e := p.errorFor(measurement)

	deriv := 0.0
	if p.evaluated {
		deriv = (e - p.prevError) / p.period
	}

	g := p.gains
	integral := p.integral + e*p.period
	raw := g.P*e + g.I*integral + g.D*deriv
	if raw >= g.OutputMin && raw <= g.OutputMax {
		p.integral = integral
	} else {
		// saturated: hold the integral where it was
		raw = g.P*e + g.I*p.integral + g.D*deriv
	}

	p.output = Clamp(raw, g.OutputMin, g.OutputMax)
	p.prevError = e
	p.lastError = e
	p.evaluated = true
	return p.output
}

// OnTarget reports whether the last evaluated error was inside the
// tolerance. It is false after Reset until the next Calculate.
func (p *PID) OnTarget() bool {
	return p.evaluated && math.Abs(p.lastError) < p.gains.Tolerance
}

// Reset clears the integral, the error history and the last output. Gains and
// setpoint are kept.
func (p *PID) Reset() {
	p.integral = 0
	p.prevError = 0
	p.lastError = 0
	p.output = 0
	p.evaluated = false
}

func (p *PID) errorFor(measurement float64) float64 {
	e := p.setpoint - measurement
	if !p.gains.Continuous {
		return e
	}
	return wrapError(e, p.gains.InputMax-p.gains.InputMin)
}

// wrapError reduces e to the signed minimum-magnitude equivalent modulo span.
func wrapError(e, span float64) float64 {
	e = math.Mod(e, span)
	if e > span/2 {
		e -= span
	} else if e < -span/2 {
		e += span
	}
	return e
}
