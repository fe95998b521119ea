// Package export renders recorded matches for sharing outside the terminal.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/robocore/internal/plant"
)

// Point is a field position in inches.
type Point struct{ X, Y float64 }

// PathSVG draws the path a robot took across the field with the defense
// band and the goal for reference. Y points downfield, up the page.
func PathSVG(points []Point, cfg plant.Config, width, height int) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := math.Min(0, cfg.GoalX), math.Max(0, cfg.GoalX)
	minY, maxY := 0.0, math.Max(cfg.GoalY, cfg.DefenseEnd)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	px := func(x float64) float64 { return (x - minX) / rangeX * float64(width) }
	py := func(y float64) float64 { return float64(height) - (y-minY)/rangeY*float64(height) }

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	top, bottom := py(cfg.DefenseEnd), py(cfg.DefenseStart)
	sb.WriteString(fmt.Sprintf(`<rect class="defense" x="0" y="%.1f" width="%d" height="%.1f" fill="#332200"/>
`, top, width, bottom-top))

	sb.WriteString(fmt.Sprintf(`<circle class="goal" cx="%.1f" cy="%.1f" r="6" fill="none" stroke="#ffaa00" stroke-width="2"/>
`, px(cfg.GoalX), py(cfg.GoalY)))

	sb.WriteString(`<path class="path" fill="none" stroke="#00ff88" stroke-width="1.5" d="M`)
	for i, p := range points {
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", px(p.X), py(p.Y)))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px(p.X), py(p.Y)))
		}
	}
	sb.WriteString(`"/>
`)

	end := points[len(points)-1]
	sb.WriteString(fmt.Sprintf(`<circle class="robot" cx="%.1f" cy="%.1f" r="4" fill="#00ff88"/>
</svg>`, px(end.X), py(end.Y)))
	return sb.String()
}
