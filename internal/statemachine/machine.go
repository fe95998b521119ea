package statemachine

import (
	"sync"

	"go.uber.org/zap"
)

type Phase int

const (
	NotEntered Phase = iota
	Running
	Done
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Done:
		return "done"
	default:
		return "not entered"
	}
}

type Machine struct {
	mu      sync.Mutex
	states  []State
	phases  []Phase
	current int
	logger  *zap.Logger
}

// New builds a machine over states. Nil entries are skipped.
func New(states []State, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := make([]State, 0, len(states))
	for _, st := range states {
		if st != nil {
			s = append(s, st)
		}
	}
	return &Machine{
		states: s,
		phases: make([]Phase, len(s)),
		logger: logger.Named("statemachine"),
	}
}

// Tick advances the machine by one step.
func (m *Machine) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current >= len(m.states) {
		return
	}
	i := m.current
	s := m.states[i]

	if m.phases[i] == NotEntered {
		s.Enter()
		m.phases[i] = Running
		m.logger.Debug("entered", zap.Int("index", i), zap.String("state", s.Name()))
	}

	s.Running()

	if s.IsDone() {
		s.Exit()
		m.phases[i] = Done
		m.current++
		m.logger.Debug("exited", zap.Int("index", i), zap.String("state", s.Name()))
		if m.current == len(m.states) {
			m.logger.Info("program complete", zap.Int("states", len(m.states)))
		}
	}
}

// Done reports whether every state has exited.
func (m *Machine) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current >= len(m.states)
}

// Index is the position of the current state; Len when done.
func (m *Machine) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Machine) Len() int { return len(m.states) }

// Current returns the state being run, or nil when done.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current >= len(m.states) {
		return nil
	}
	return m.states[m.current]
}

func (m *Machine) Phase(i int) Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.phases) {
		return NotEntered
	}
	return m.phases[i]
}

func (m *Machine) States() []State {
	return append([]State(nil), m.states...)
}
