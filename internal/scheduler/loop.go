// Package scheduler runs the fixed-period fast loop that owns sensor fusion
// and controller evaluation, and the coarser periodic driver used for the
// state machine.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

// DefaultPeriod is the fast loop period.
const DefaultPeriod = 10 * time.Millisecond

// ErrRunning is returned by Start when the loop is already running.
var ErrRunning = errors.New("scheduler: loop already running")

// Fusion is the sensor-fusion step run at the top of every tick.
type Fusion interface {
	Run()
}

// Subsystem is stepped once per tick: input filters, the controller with
// authority, then output filters. Each step must return promptly.
type Subsystem interface {
	Name() string
	RunInputFilters()
	RunCurrentController()
	RunOutputFilters()
}

// durationWindow bounds the tick-duration history kept for Stats.
const durationWindow = 1000

type Loop struct {
	period     time.Duration
	clk        clock.Clock
	logger     *zap.Logger
	fusion     Fusion
	subsystems []Subsystem

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	statsMu   sync.Mutex
	ticks     int
	overruns  int
	durations []float64
	next      int
}

type Option func(*Loop)

func WithClock(clk clock.Clock) Option {
	return func(l *Loop) { l.clk = clk }
}

func WithPeriod(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.period = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop steps subsystems in the given order.
func NewLoop(fusion Fusion, subsystems []Subsystem, opts ...Option) *Loop {
	l := &Loop{
		period:     DefaultPeriod,
		clk:        clock.New(),
		logger:     zap.NewNop(),
		fusion:     fusion,
		subsystems: subsystems,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("scheduler")
	return l
}

func (l *Loop) Period() time.Duration { return l.period }

// Tick runs one pass: fusion, then every subsystem in order.
func (l *Loop) Tick() {
	start := l.clk.Now()

	if l.fusion != nil {
		l.fusion.Run()
	}
	for _, s := range l.subsystems {
		s.RunInputFilters()
		s.RunCurrentController()
		s.RunOutputFilters()
	}

	l.record(l.clk.Since(start))
}

func (l *Loop) record(d time.Duration) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()

	l.ticks++
	if d > l.period {
		l.overruns++
	}
	ms := float64(d) / float64(time.Millisecond)
	if len(l.durations) < durationWindow {
		l.durations = append(l.durations, ms)
		return
	}
	l.durations[l.next] = ms
	l.next = (l.next + 1) % durationWindow
}

// Start runs Tick every period on its own goroutine until ctx is canceled or
// Stop is called. Missed ticks are dropped, not replayed.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := l.clk.Ticker(l.period)
	l.running = true
	l.cancel = cancel
	l.done = make(chan struct{})

	go l.run(ctx, ticker, l.done)
	l.logger.Info("fast loop started", zap.Duration("period", l.period), zap.Int("subsystems", len(l.subsystems)))
	return nil
}

// Run is Start followed by a wait for ctx to end.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	l.Stop()
	return nil
}

func (l *Loop) run(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done

	st := l.Stats()
	l.logger.Info("fast loop stopped",
		zap.Int("ticks", st.Ticks),
		zap.Int("overruns", st.Overruns),
		zap.Duration("p99", st.P99))
}

// Stats summarizes tick durations over the recent window.
type Stats struct {
	Ticks    int
	Overruns int
	Mean     time.Duration
	P99      time.Duration
	Max      time.Duration
}

func (l *Loop) Stats() Stats {
	l.statsMu.Lock()
	data := stats.Float64Data(append([]float64(nil), l.durations...))
	st := Stats{Ticks: l.ticks, Overruns: l.overruns}
	l.statsMu.Unlock()

	if len(data) == 0 {
		return st
	}
	if v, err := data.Mean(); err == nil {
		st.Mean = msToDuration(v)
	}
	if v, err := data.Percentile(99); err == nil {
		st.P99 = msToDuration(v)
	}
	if v, err := data.Max(); err == nil {
		st.Max = msToDuration(v)
	}
	return st
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// Every calls fn once per period until ctx ends. It is the driver for the
// state machine cadence.
func Every(ctx context.Context, clk clock.Clock, period time.Duration, fn func()) error {
	t := clk.Ticker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fn()
		}
	}
}
