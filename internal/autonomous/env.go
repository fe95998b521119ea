package autonomous

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/san-kum/robocore/internal/controllers"
	"github.com/san-kum/robocore/internal/dashboard"
	"github.com/san-kum/robocore/internal/navigation"
	"github.com/san-kum/robocore/internal/subsystems"
	"github.com/san-kum/robocore/internal/vision"
)

// Env is everything a state may act on. It is built once by the robot and
// shared by every state in a program.
type Env struct {
	Clock     clock.Clock
	Logger    *zap.Logger
	Dashboard dashboard.Sink

	Drive   *subsystems.Drive
	Shooter *subsystems.Shooter
	Intake  *subsystems.Intake
	Nav     *navigation.Navigation
	Vision  vision.Source

	ShooterSpeed     *controllers.ShooterSpeed
	DriveTurn        *controllers.DriveTurn
	DriveDistance    *controllers.DriveDistance
	DriveOverDefense *controllers.DriveOverDefense
	AutoAimDrive     *controllers.AutoAimDrive
}

func (e *Env) clock() clock.Clock {
	if e == nil || e.Clock == nil {
		return clock.New()
	}
	return e.Clock
}

func (e *Env) dashboard() dashboard.Sink {
	if e == nil || e.Dashboard == nil {
		return dashboard.Discard
	}
	return e.Dashboard
}
