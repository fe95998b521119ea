package metrics

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/san-kum/robocore/internal/plant"
)

// ControlEffort is the mean absolute drive command per sample.
type ControlEffort struct {
	name    string
	samples stats.Float64Data
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s plant.Sample) {
	c.samples = append(c.samples, (math.Abs(s.Left)+math.Abs(s.Right))/2)
}

func (c *ControlEffort) Value() float64 {
	if len(c.samples) == 0 {
		return 0
	}
	mean, err := c.samples.Mean()
	if err != nil {
		return 0
	}
	return mean
}

func (c *ControlEffort) Reset() {
	c.samples = c.samples[:0]
}
