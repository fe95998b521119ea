package robot

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/robocore/internal/scheduler"
)

// Run plays a match in real time on the robot's clock. The fast loop, the
// plant and the periodic driver run concurrently; the first error stops
// all three. Run returns nil when the match ends or ctx is canceled.
func (r *Robot) Run(ctx context.Context, m Match) error {
	r.Init()
	g, gctx := errgroup.WithContext(ctx)

	if err := r.loop.Start(gctx); err != nil {
		return err
	}
	defer r.loop.Stop()

	if m.Plant != nil {
		g.Go(func() error {
			var stepErr error
			pctx, cancel := context.WithCancel(gctx)
			defer cancel()
			scheduler.Every(pctx, r.clk, r.deps.FastPeriod, func() {
				if err := m.Plant.Step(r.deps.FastPeriod.Seconds()); err != nil {
					stepErr = err
					cancel()
					return
				}
				if m.Observe != nil {
					m.Observe()
				}
			})
			return stepErr
		})
	}

	g.Go(func() error {
		start := r.clk.Now()
		last := Disabled
		var over error
		dctx, cancel := context.WithCancel(gctx)
		defer cancel()
		scheduler.Every(dctx, r.clk, r.deps.StatePeriod, func() {
			phase := m.phaseAt(r.clk.Since(start))
			r.periodic(phase, &last)
			if phase == Disabled {
				over = errMatchOver
				cancel()
			}
		})
		return over
	})

	err := g.Wait()
	r.DisabledPeriodic()
	if err != nil && !isMatchOver(err) {
		return err
	}
	return nil
}

// Simulation plays a match in lockstep on a mock clock. Each Step
// advances the clock by one fast period, steps the plant, ticks the fast
// loop, and runs the periodic hook on its own cadence. The result is
// deterministic for a given configuration.
type Simulation struct {
	r     *Robot
	mock  *clock.Mock
	m     Match
	fast  time.Duration
	ratio int
	steps int
	i     int
	last  Phase
	done  bool
}

// NewSimulation initializes r and prepares a match on mock.
func (r *Robot) NewSimulation(mock *clock.Mock, m Match) *Simulation {
	r.Init()
	fast := r.deps.FastPeriod
	ratio := int(r.deps.StatePeriod / fast)
	if ratio < 1 {
		ratio = 1
	}
	return &Simulation{
		r:     r,
		mock:  mock,
		m:     m,
		fast:  fast,
		ratio: ratio,
		steps: int(m.total() / fast),
		last:  Disabled,
	}
}

// Step advances one fast period. It reports false once the match is over.
func (s *Simulation) Step() (bool, error) {
	if s.i >= s.steps {
		s.finish()
		return false, nil
	}
	s.mock.Add(s.fast)
	if s.m.Plant != nil {
		if err := s.m.Plant.Step(s.fast.Seconds()); err != nil {
			s.finish()
			return false, err
		}
	}
	s.r.loop.Tick()
	if s.i%s.ratio == 0 {
		s.r.periodic(s.m.phaseAt(time.Duration(s.i)*s.fast), &s.last)
	}
	if s.m.Observe != nil {
		s.m.Observe()
	}
	s.i++
	return true, nil
}

// Elapsed is the simulated match time.
func (s *Simulation) Elapsed() time.Duration { return time.Duration(s.i) * s.fast }

// Total is the match length.
func (s *Simulation) Total() time.Duration { return s.m.total() }

// Stop ends the match early.
func (s *Simulation) Stop() { s.finish() }

func (s *Simulation) finish() {
	if s.done {
		return
	}
	s.done = true
	s.r.DisabledPeriodic()
	st := s.r.loop.Stats()
	s.r.logger.Info("match simulated",
		zap.Int("ticks", st.Ticks),
		zap.Duration("elapsed", s.Elapsed()),
		zap.Bool("program_done", s.r.Status().Done))
}

// Simulate plays a whole match as fast as the host allows.
func (r *Robot) Simulate(ctx context.Context, mock *clock.Mock, m Match) error {
	sim := r.NewSimulation(mock, m)
	for {
		if err := ctx.Err(); err != nil {
			sim.Stop()
			return err
		}
		more, err := sim.Step()
		if err != nil || !more {
			return err
		}
	}
}
