package metrics

import (
	"github.com/montanaflynn/stats"

	"github.com/san-kum/robocore/internal/plant"
)

// Distance is the path length driven, in inches.
type Distance struct{ last float64 }

func NewDistance() *Distance { return &Distance{} }

func (d *Distance) Name() string           { return "distance" }
func (d *Distance) Observe(s plant.Sample) { d.last = s.Path }
func (d *Distance) Value() float64         { return d.last }
func (d *Distance) Reset()                 { d.last = 0 }

// PeakRPM is the highest flywheel speed reached.
type PeakRPM struct{ rpm stats.Float64Data }

func NewPeakRPM() *PeakRPM { return &PeakRPM{} }

func (p *PeakRPM) Name() string           { return "peak_rpm" }
func (p *PeakRPM) Observe(s plant.Sample) { p.rpm = append(p.rpm, s.RPM) }
func (p *PeakRPM) Reset()                 { p.rpm = p.rpm[:0] }

func (p *PeakRPM) Value() float64 {
	max, err := p.rpm.Max()
	if err != nil {
		return 0
	}
	return max
}

// Shots counts balls fired.
type Shots struct{ n int }

func NewShots() *Shots { return &Shots{} }

func (s *Shots) Name() string             { return "shots" }
func (s *Shots) Observe(smp plant.Sample) { s.n = smp.Shots }
func (s *Shots) Value() float64           { return float64(s.n) }
func (s *Shots) Reset()                   { s.n = 0 }

// FirstShot is the match time of the first ball fired, or the length of
// the run when nothing was fired.
type FirstShot struct {
	t     float64
	fired bool
}

func NewFirstShot() *FirstShot { return &FirstShot{} }

func (f *FirstShot) Name() string   { return "first_shot" }
func (f *FirstShot) Value() float64 { return f.t }
func (f *FirstShot) Reset()         { *f = FirstShot{} }

func (f *FirstShot) Observe(s plant.Sample) {
	if f.fired {
		return
	}
	f.t = s.T
	f.fired = s.Shots > 0
}

// FinalY is how far downfield the robot ended, in inches.
type FinalY struct{ y float64 }

func NewFinalY() *FinalY { return &FinalY{} }

func (f *FinalY) Name() string           { return "final_y" }
func (f *FinalY) Observe(s plant.Sample) { f.y = s.Y }
func (f *FinalY) Value() float64         { return f.y }
func (f *FinalY) Reset()                 { f.y = 0 }
