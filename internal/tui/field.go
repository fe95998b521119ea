package tui

import (
	"math"
	"strings"

	"github.com/san-kum/robocore/internal/plant"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// canvas is a braille dot grid of Width x Height cells.
type canvas struct {
	Width, Height int
	Grid          [][]rune
}

func newCanvas(w, h int) *canvas {
	c := &canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.clear()
	return c
}

// set lights the dot at (x, y) in dot coordinates.
func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *canvas) clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// line is Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// field draws the robot's view of the field from above: the goal at the
// top, the defense band, the path travelled and the robot with a heading
// tick.
type field struct {
	c      *canvas
	cfg    plant.Config
	halfW  float64 // in either side of the start line
	trail  [][2]int
	maxLen int
}

func newField(w, h int, cfg plant.Config) *field {
	return &field{c: newCanvas(w, h), cfg: cfg, halfW: cfg.GoalY / 2, maxLen: 400}
}

// dot maps field inches to dot coordinates, +Y up.
func (f *field) dot(x, y float64) (int, int) {
	dw, dh := float64(f.c.Width*2-1), float64(f.c.Height*4-1)
	top := f.cfg.GoalY + 10
	px := (x + f.halfW) / (2 * f.halfW) * dw
	py := (1 - (y+10)/(top+10)) * dh
	return int(math.Round(px)), int(math.Round(py))
}

func (f *field) draw(s plant.Sample) string {
	f.c.clear()

	for _, y := range []float64{f.cfg.DefenseStart, f.cfg.DefenseEnd} {
		x0, py := f.dot(-f.halfW, y)
		x1, _ := f.dot(f.halfW, y)
		for x := x0; x <= x1; x += 3 {
			f.c.set(x, py)
		}
	}

	gx, gy := f.dot(f.cfg.GoalX, f.cfg.GoalY)
	f.c.line(gx-3, gy, gx+3, gy)
	f.c.line(gx, gy, gx, gy+2)

	rx, ry := f.dot(s.X, s.Y)
	f.trail = append(f.trail, [2]int{rx, ry})
	if len(f.trail) > f.maxLen {
		f.trail = f.trail[1:]
	}
	for _, p := range f.trail {
		f.c.set(p[0], p[1])
	}

	h := s.Heading * math.Pi / 180
	hx, hy := f.dot(s.X+20*math.Sin(h), s.Y+20*math.Cos(h))
	f.c.line(rx, ry, hx, hy)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			f.c.set(rx+dx, ry+dy)
		}
	}
	return f.c.String()
}
