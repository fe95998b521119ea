// Package metrics scores a recorded run from its telemetry samples.
package metrics

import (
	"github.com/samber/lo"

	"github.com/san-kum/robocore/internal/plant"
)

type Metric interface {
	Name() string
	Observe(s plant.Sample)
	Value() float64
	Reset()
}

// Default is the metric set recorded with every run.
func Default() []Metric {
	return []Metric{
		NewControlEffort(),
		NewDistance(),
		NewPeakRPM(),
		NewShots(),
		NewFirstShot(),
		NewFinalY(),
	}
}

// Evaluate runs every metric over samples and returns the values by name.
func Evaluate(ms []Metric, samples []plant.Sample) map[string]float64 {
	for _, m := range ms {
		m.Reset()
		for _, s := range samples {
			m.Observe(s)
		}
	}
	return lo.SliceToMap(ms, func(m Metric) (string, float64) {
		return m.Name(), m.Value()
	})
}
