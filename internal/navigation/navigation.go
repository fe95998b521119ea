// Package navigation fuses the gyro and drive encoders into heading, pitch
// and travelled distance. Run is called once per fast-loop tick; readers get
// the values sampled by the last Run.
package navigation

import (
	"sync"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/hal"
)

type Navigation struct {
	gyro        hal.Gyro
	left, right hal.Encoder

	mu            sync.Mutex
	headingOffset float64
	heading       float64
	pitch         float64
	distance      float64
}

func New(gyro hal.Gyro, left, right hal.Encoder) *Navigation {
	n := &Navigation{gyro: gyro, left: left, right: right}
	n.Run()
	return n
}

// Run samples the sensors.
func (n *Navigation) Run() {
	yaw := n.gyro.Yaw()
	pitch := n.gyro.Pitch()
	dist := (n.left.Distance() + n.right.Distance()) / 2

	n.mu.Lock()
	n.heading = control.BoundAngle0To360(yaw - n.headingOffset)
	n.pitch = pitch
	n.distance = dist
	n.mu.Unlock()
}

// HeadingInDegrees is in [0, 360).
func (n *Navigation) HeadingInDegrees() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.heading
}

func (n *Navigation) PitchInDegrees() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pitch
}

// AverageEncoderDistance is the mean of both sides since the last reset, in
// inches.
func (n *Navigation) AverageEncoderDistance() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.distance
}

func (n *Navigation) ResetEncoders() {
	n.left.Reset()
	n.right.Reset()

	n.mu.Lock()
	n.distance = 0
	n.mu.Unlock()
}

// ResetHeading makes the current orientation read as deg.
func (n *Navigation) ResetHeading(deg float64) {
	yaw := n.gyro.Yaw()

	n.mu.Lock()
	n.headingOffset = yaw - deg
	n.heading = control.BoundAngle0To360(deg)
	n.mu.Unlock()
}

func (n *Navigation) LogToDashboard(s dashboard.Sink) {
	n.mu.Lock()
	heading, pitch, dist := n.heading, n.pitch, n.distance
	n.mu.Unlock()

	s.PutNumber("NavHeading", heading)
	s.PutNumber("NavPitch", pitch)
	s.PutNumber("NavAverageEncoderDistance", dist)
}
