package plant

import (
	"math"

	"github.com/san-kum/robocore/internal/control"
	"github.com/san-kum/robocore/internal/dynamo"
)

const (
	iX = iota
	iY
	iHeading
	iLeftVel
	iRightVel
	iLeftDist
	iRightDist
	iRPM
	stateDim
)

const (
	uLeft = iota
	uRight
	uWheel
	controlDim
)

// system is a differential drive with first-order wheel lag plus a
// flywheel that only spins forward. The flywheel motor cannot brake, so it
// spins down on the slower coast constant.
type system struct {
	cfg Config
}

func (s *system) StateDim() int   { return stateDim }
func (s *system) ControlDim() int { return controlDim }

func (s *system) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	c := s.cfg
	dx := make(dynamo.State, stateDim)

	v := (x[iLeftVel] + x[iRightVel]) / 2
	h := x[iHeading] * math.Pi / 180
	dx[iX] = v * math.Sin(h)
	dx[iY] = v * math.Cos(h)
	dx[iHeading] = (x[iLeftVel] - x[iRightVel]) / c.TrackWidth * 180 / math.Pi

	dx[iLeftVel] = (control.Clamp(u[uLeft], -1, 1)*c.MaxSpeed - x[iLeftVel]) / c.DriveLag
	dx[iRightVel] = (control.Clamp(u[uRight], -1, 1)*c.MaxSpeed - x[iRightVel]) / c.DriveLag
	dx[iLeftDist] = x[iLeftVel]
	dx[iRightDist] = x[iRightVel]

	target := control.Clamp(u[uWheel], 0, 1) * c.MaxRPM
	if target >= x[iRPM] {
		dx[iRPM] = (target - x[iRPM]) / c.FlywheelLag
	} else {
		dx[iRPM] = (target - x[iRPM]) / c.FlywheelCoast
	}
	return dx
}
