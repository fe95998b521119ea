package export

import (
	"fmt"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/robocore/internal/plant"
)

func TestPathSVG(t *testing.T) {
	g := NewWithT(t)
	points := []Point{{0, 0}, {0, 40}, {5, 80}, {10, 120}}

	svg := PathSVG(points, plant.DefaultConfig(), 200, 400)
	g.Expect(svg).To(HavePrefix("<?xml"))
	g.Expect(svg).To(HaveSuffix("</svg>"))
	g.Expect(svg).To(ContainSubstring(`width="200" height="400"`))
	g.Expect(svg).To(ContainSubstring(`class="defense"`))
	g.Expect(svg).To(ContainSubstring(`class="goal"`))
	g.Expect(strings.Count(svg, " L")).To(Equal(len(points) - 1))
}

func TestPathSVGNeedsTwoPoints(t *testing.T) {
	if got := PathSVG([]Point{{0, 0}}, plant.DefaultConfig(), 100, 100); got != "" {
		t.Errorf("PathSVG() with one point = %q, want empty", got)
	}
}

func TestPathSVGUpIsDownfield(t *testing.T) {
	g := NewWithT(t)
	svg := PathSVG([]Point{{0, 0}, {0, 100}}, plant.DefaultConfig(), 100, 100)

	// The path starts lower on the page than it ends.
	d := svg[strings.Index(svg, `d="M`)+4:]
	var x0, y0, x1, y1 float64
	_, err := fmt.Sscanf(d, "%f,%f L%f,%f", &x0, &y0, &x1, &y1)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(y0).To(BeNumerically(">", y1))
	g.Expect(x0).To(BeNumerically("~", x1, 0.01))
}
