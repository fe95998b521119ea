// Package controllers implements the closed-loop strategies that drive the
// subsystems. A controller is constructed once, handed authority over a
// subsystem through SetCurrentController, and stepped by the fast loop.
//
// Every exported method locks the controller, so goal changes from the state
// machine never interleave with a Run from the fast loop.
package controllers

import (
	"math"

	"github.com/san-kum/robocore/internal/control"
)

type Controller interface {
	// Run evaluates the control law once against live sensor state and
	// writes the subsystem output.
	Run()
	// Reset clears internal state and drives the subsystem output to
	// neutral.
	Reset()
	OnTarget() bool
	// LoadProperties re-reads gains from the property store, or from the
	// dashboard when live tuning is enabled.
	LoadProperties()
	String() string
}

// Tuner is the dashboard read-back used for live gain tuning.
type Tuner interface {
	GetNumber(key string, def float64) float64
	PutNumber(key string, v float64)
}

// Gain defaults.
const (
	DefaultShooterRPMTolerance = 50.0
	DefaultDistanceTolerance   = 0.5
	DefaultAngleTolerance      = 1.0
	DefaultTurnMinOutput       = 0.14
	DefaultTurnMaxOutput       = 0.5
	DefaultOnTargetCycles      = 3

	ShooterRPMBatter     = 3000.0
	ShooterRPMOuterworks = 5400.0
)

// limitMagnitude keeps a nonzero output's magnitude inside [min, max],
// preserving its sign.
func limitMagnitude(out, min, max float64) float64 {
	if out == 0 {
		return 0
	}
	mag := control.Clamp(math.Abs(out), min, max)
	return math.Copysign(mag, out)
}
