package hal

import "sync"

// MemMotor stores the last commanded output. Inverted motors store the
// negated command, as a wired-backwards speed controller would see it.
type MemMotor struct {
	mu       sync.Mutex
	inverted bool
	speed    float64
	writes   int
}

func NewMemMotor(inverted bool) *MemMotor {
	return &MemMotor{inverted: inverted}
}

func (m *MemMotor) Set(speed float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inverted {
		speed = -speed
	}
	m.speed = speed
	m.writes++
}

// Get returns the command as the caller issued it.
func (m *MemMotor) Get() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inverted {
		return -m.speed
	}
	return m.speed
}

// Output returns the signal actually applied to the motor.
func (m *MemMotor) Output() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

// Writes counts Set calls.
func (m *MemMotor) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type MemSolenoid struct {
	mu sync.Mutex
	on bool
}

func (s *MemSolenoid) Set(on bool) {
	s.mu.Lock()
	s.on = on
	s.mu.Unlock()
}

func (s *MemSolenoid) Get() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

type MemDoubleSolenoid struct {
	mu sync.Mutex
	v  DoubleSolenoidValue
}

func (s *MemDoubleSolenoid) Set(v DoubleSolenoidValue) {
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
}

func (s *MemDoubleSolenoid) Get() DoubleSolenoidValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

// MemSwitch is a digital input whose level is set from outside.
type MemSwitch struct {
	mu sync.Mutex
	on bool
}

func (s *MemSwitch) Get() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

func (s *MemSwitch) Put(on bool) {
	s.mu.Lock()
	s.on = on
	s.mu.Unlock()
}

type MemCounter struct {
	mu     sync.Mutex
	period float64
}

func (c *MemCounter) Period() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.period
}

func (c *MemCounter) Put(period float64) {
	c.mu.Lock()
	c.period = period
	c.mu.Unlock()
}

type MemServo struct {
	mu  sync.Mutex
	deg float64
}

func (s *MemServo) SetAngle(deg float64) {
	s.mu.Lock()
	s.deg = deg
	s.mu.Unlock()
}

func (s *MemServo) Angle() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deg
}

type MemGyro struct {
	mu         sync.Mutex
	yaw, pitch float64
}

func (g *MemGyro) Yaw() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.yaw
}

func (g *MemGyro) Pitch() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pitch
}

func (g *MemGyro) Put(yaw, pitch float64) {
	g.mu.Lock()
	g.yaw, g.pitch = yaw, pitch
	g.mu.Unlock()
}

// MemEncoder reports an externally supplied absolute position relative to
// the position at the last Reset.
type MemEncoder struct {
	mu       sync.Mutex
	position float64
	offset   float64
}

func (e *MemEncoder) Distance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position - e.offset
}

func (e *MemEncoder) Reset() {
	e.mu.Lock()
	e.offset = e.position
	e.mu.Unlock()
}

func (e *MemEncoder) Put(position float64) {
	e.mu.Lock()
	e.position = position
	e.mu.Unlock()
}
