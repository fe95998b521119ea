package statemachine

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	g "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type event struct {
	state int
	hook  string
}

// countingState is done after it has run `after` times.
type countingState struct {
	Base
	id     int
	after  int
	runs   int
	events *[]event
	doneAt int
}

func newCounting(id, after int, events *[]event) *countingState {
	return &countingState{Base: NewBase(fmt.Sprintf("S%d", id)), id: id, after: after, events: events, doneAt: -1}
}

func (s *countingState) Enter() { *s.events = append(*s.events, event{s.id, "enter"}) }
func (s *countingState) Running() {
	s.runs++
	*s.events = append(*s.events, event{s.id, "running"})
}
func (s *countingState) IsDone() bool { return s.runs >= s.after }
func (s *countingState) Exit()        { *s.events = append(*s.events, event{s.id, "exit"}) }

// sensorState times out unless its own condition fires first.
type sensorState struct {
	TimeoutState
	seen bool
}

func (s *sensorState) IsDone() bool { return s.TimedOut() || s.seen }

var _ = g.Describe("Machine", func() {
	var events []event

	g.BeforeEach(func() {
		events = nil
	})

	g.It("visits states in order and terminates after the sum of their tick counts", func() {
		counts := []int{1, 3, 2, 4}
		var states []State
		total := 0
		for i, k := range counts {
			states = append(states, newCounting(i, k, &events))
			total += k
		}
		m := New(states, nil)

		ticks := 0
		for !m.Done() {
			m.Tick()
			ticks++
			Expect(ticks).To(BeNumerically("<=", total))
		}
		Expect(ticks).To(Equal(total))
		Expect(m.Index()).To(Equal(len(states)))
		Expect(m.Current()).To(BeNil())

		var order []int
		for _, e := range events {
			if e.hook == "enter" {
				order = append(order, e.state)
			}
		}
		Expect(order).To(Equal([]int{0, 1, 2, 3}))
	})

	g.It("never runs a state after it reports done", func() {
		a := newCounting(0, 2, &events)
		b := newCounting(1, 1, &events)
		m := New([]State{a, b}, nil)

		for i := 0; i < 10; i++ {
			m.Tick()
		}

		Expect(a.runs).To(Equal(2))
		Expect(b.runs).To(Equal(1))
		Expect(events).To(Equal([]event{
			{0, "enter"}, {0, "running"},
			{0, "running"}, {0, "exit"},
			{1, "enter"}, {1, "running"}, {1, "exit"},
		}))
	})

	g.It("enters the next state on the following tick", func() {
		a := newCounting(0, 1, &events)
		b := newCounting(1, 5, &events)
		m := New([]State{a, b}, nil)

		m.Tick()
		Expect(m.Phase(0)).To(Equal(Done))
		Expect(m.Phase(1)).To(Equal(NotEntered))
		Expect(b.runs).To(BeZero())

		m.Tick()
		Expect(m.Phase(1)).To(Equal(Running))
	})

	g.It("is idle once finished and with no states", func() {
		m := New(nil, nil)
		Expect(m.Done()).To(BeTrue())
		Expect(m.Tick).NotTo(Panic())
		Expect(m.Index()).To(BeZero())
	})

	g.It("skips nil entries", func() {
		a := newCounting(0, 1, &events)
		m := New([]State{nil, a, nil}, nil)
		Expect(m.Len()).To(Equal(1))
		m.Tick()
		Expect(m.Done()).To(BeTrue())
	})
})

var _ = g.Describe("TimeoutState", func() {
	var mock *clock.Mock

	g.BeforeEach(func() {
		mock = clock.NewMock()
	})

	g.It("is done at, not before, the timeout", func() {
		s := NewTimeoutState("Wait", 500*time.Millisecond, mock)
		Expect(s.IsDone()).To(BeFalse())

		s.Enter()
		mock.Add(499 * time.Millisecond)
		Expect(s.IsDone()).To(BeFalse())

		mock.Add(time.Millisecond)
		Expect(s.IsDone()).To(BeTrue())
	})

	g.It("sets its start once", func() {
		s := NewTimeoutState("Wait", time.Second, mock)
		s.Enter()
		mock.Add(600 * time.Millisecond)
		s.Enter()
		mock.Add(400 * time.Millisecond)
		Expect(s.Elapsed()).To(Equal(time.Second))
		Expect(s.IsDone()).To(BeTrue())
	})

	g.It("finishes a zero timeout on the first tick", func() {
		s := NewTimeoutState("WaitForTime", 0, mock)
		m := New([]State{&s}, nil)
		m.Tick()
		Expect(m.Done()).To(BeTrue())
	})

	g.It("lets a sub-state finish early or fall back to the timeout", func() {
		early := &sensorState{TimeoutState: NewTimeoutState("Banner", time.Second, mock)}
		early.Enter()
		early.seen = true
		Expect(early.IsDone()).To(BeTrue())

		never := &sensorState{TimeoutState: NewTimeoutState("Banner", time.Second, mock)}
		m := New([]State{never}, nil)
		m.Tick()
		Expect(m.Done()).To(BeFalse())
		mock.Add(time.Second)
		m.Tick()
		Expect(m.Done()).To(BeTrue())
	})
})
