package control

// AlphaFilter is a first-order low-pass: y += alpha * (x - y).
type AlphaFilter struct {
	alpha float64
	y     float64
}

func NewAlphaFilter(alpha float64) *AlphaFilter {
	f := &AlphaFilter{}
	f.SetAlpha(alpha)
	return f
}

// SetAlpha sets the gain, clamped to [0, 1]. An alpha of 1 passes the input
// straight through.
func (f *AlphaFilter) SetAlpha(alpha float64) {
	f.alpha = Clamp(alpha, 0, 1)
}

func (f *AlphaFilter) Calculate(x float64) float64 {
	f.y += f.alpha * (x - f.y)
	return f.y
}

func (f *AlphaFilter) Reset() { f.y = 0 }

// MovingAverage keeps the mean of the last n samples.
type MovingAverage struct {
	window []float64
	next   int
	filled int
	sum    float64
}

func NewMovingAverage(n int) *MovingAverage {
	if n < 1 {
		n = 1
	}
	return &MovingAverage{window: make([]float64, n)}
}

func (m *MovingAverage) Add(x float64) {
	if m.filled == len(m.window) {
		m.sum -= m.window[m.next]
	} else {
		m.filled++
	}
	m.window[m.next] = x
	m.sum += x
	m.next = (m.next + 1) % len(m.window)
}

// Average returns 0 until the first sample arrives.
func (m *MovingAverage) Average() float64 {
	if m.filled == 0 {
		return 0
	}
	return m.sum / float64(m.filled)
}

func (m *MovingAverage) Reset() {
	for i := range m.window {
		m.window[i] = 0
	}
	m.next, m.filled, m.sum = 0, 0, 0
}
