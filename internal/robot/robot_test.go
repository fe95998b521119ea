package robot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/gomega"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/robocore/internal/autonomous"
	"github.com/san-kum/robocore/internal/plant"
	"github.com/san-kum/robocore/internal/properties"
	"github.com/san-kum/robocore/internal/subsystems"
)

// The simulated flywheel hunts around the bang-bang band, so the program
// runs with a wider speed tolerance than the controller default.
var spybot = map[string]string{
	"shooterRPMTolerance":    "150",
	"AutonomousNumStates":    "2",
	"AutonomousState1":       "StartShooter",
	"AutonomousState1Param1": "4750",
	"AutonomousState2":       "JustShoot",
	"AutonomousState2Param1": "8000",
}

type harness struct {
	robot *Robot
	plant *plant.Robot
	clock *clock.Mock
}

func newHarness(t *testing.T, mode autonomous.Mode, program map[string]string, dir string) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	p, err := plant.New(plant.DefaultConfig(), logger)
	if err != nil {
		t.Fatal(err)
	}
	left, right := p.Encoders()
	mock := clock.NewMock()

	r := New(Deps{
		Hardware: Hardware{
			Drive:        p.DrivePorts(),
			Shooter:      p.ShooterPorts(),
			Intake:       p.IntakePorts(),
			Hanger:       p.HangerPorts(),
			Gyro:         p.Gyro(),
			LeftEncoder:  left,
			RightEncoder: right,
			Vision:       p,
		},
		Properties:    properties.FromMap(program),
		Clock:         mock,
		Logger:        logger,
		FastPeriod:    10 * time.Millisecond,
		StatePeriod:   20 * time.Millisecond,
		Mode:          mode,
		AutonomousDir: dir,
	})
	return &harness{robot: r, plant: p, clock: mock}
}

func (h *harness) simulate(t *testing.T, m Match) {
	t.Helper()
	m.Plant = h.plant
	if err := h.robot.Simulate(context.Background(), h.clock, m); err != nil {
		t.Fatal(err)
	}
}

func TestPhaseAt(t *testing.T) {
	m := Match{Autonomous: 15 * time.Second, Teleop: 5 * time.Second}
	tests := []struct {
		elapsed time.Duration
		want    Phase
	}{
		{0, Autonomous},
		{14999 * time.Millisecond, Autonomous},
		{15 * time.Second, Teleop},
		{19 * time.Second, Teleop},
		{20 * time.Second, Disabled},
	}
	for _, tt := range tests {
		if got := m.phaseAt(tt.elapsed); got != tt.want {
			t.Errorf("phaseAt(%v) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

func TestDisabledPeriodicReleasesControllers(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, autonomous.Mode{}, nil, "")
	r := h.robot

	r.DriveTurn.SetGoal(90)
	r.Drive.SetCurrentController(r.DriveTurn)
	r.ShooterSpeed.SetGoal(4000)
	r.Shooter.SetCurrentController(r.ShooterSpeed)

	r.DisabledPeriodic()

	g.Expect(r.Drive.ControllerName()).To(Equal(subsystems.OpenLoop))
	g.Expect(r.Shooter.ControllerName()).To(Equal(subsystems.OpenLoop))
	g.Expect(r.Status().Phase).To(Equal(Disabled))
}

func TestAutonomousInitLoadsProgramFile(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	body := "AutonomousNumStates=2\n" +
		"AutonomousState1=StartShooter\n" +
		"AutonomousState1Param1=4750\n" +
		"AutonomousState2=JustShoot\n" +
		"AutonomousState2Param1=8000\n"
	if err := os.WriteFile(filepath.Join(dir, "Spybot.txt"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, autonomous.Mode{Position: autonomous.PositionSpyBot}, nil, dir)
	h.robot.AutonomousInit()

	p := h.robot.Program()
	g.Expect(p.Err).NotTo(HaveOccurred())
	g.Expect(p.Names()).To(Equal([]string{"StartShooter", "JustShoot"}))

	st := h.robot.Status()
	g.Expect(st.Phase).To(Equal(Autonomous))
	g.Expect(st.StateCount).To(Equal(2))
	g.Expect(st.Done).To(BeFalse())
}

func TestAutonomousInitMissingFileFallsBack(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, autonomous.Mode{Position: autonomous.PositionSpyBot}, nil, t.TempDir())
	h.robot.AutonomousInit()

	p := h.robot.Program()
	g.Expect(p.Err).To(MatchError(autonomous.ErrNoStates))
	g.Expect(p.Names()).To(Equal([]string{"WaitForTime"}))
}

func TestSimulateDoNothing(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, autonomous.Mode{Position: autonomous.PositionDoNothing}, spybot, "")
	h.simulate(t, Match{Autonomous: 2 * time.Second})

	s := h.plant.Sample()
	g.Expect(s.Path).To(BeZero())
	g.Expect(s.Shots).To(BeZero())
	g.Expect(h.robot.Program().Names()).To(Equal([]string{"WaitForTime"}))
	g.Expect(h.robot.Status().Done).To(BeTrue())
}

func TestSimulateReach(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, autonomous.Mode{Position: autonomous.PositionReach}, nil, "")
	h.simulate(t, Match{Autonomous: 6 * time.Second})

	s := h.plant.Sample()
	g.Expect(s.Y).To(BeNumerically("~", 75, 10))
	g.Expect(s.X).To(BeNumerically("~", 0, 1))
	g.Expect(h.robot.Status().Done).To(BeTrue())
}

func TestSimulateSpybotFires(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t, autonomous.Mode{Position: autonomous.PositionSpyBot}, spybot, "")

	var peak float64
	h.simulate(t, Match{
		Autonomous: 8 * time.Second,
		Teleop:     time.Second,
		Observe: func() {
			peak = max(peak, h.plant.Sample().RPM)
		},
	})

	s := h.plant.Sample()
	g.Expect(s.Shots).To(Equal(1))
	g.Expect(s.Path).To(BeZero())
	g.Expect(peak).To(BeNumerically(">", 4500))
	g.Expect(h.robot.Status().Done).To(BeTrue())
	g.Expect(h.robot.Status().Phase).To(Equal(Disabled))

	// The wheel is left to coast once the program is over.
	g.Expect(h.robot.Shooter.Speed()).To(BeZero())
	g.Expect(h.robot.Dashboard().Snapshot()).To(ContainElement(HaveField("Key", "AutoState")))
}

func TestSimulateCanceled(t *testing.T) {
	h := newHarness(t, autonomous.Mode{Position: autonomous.PositionDoNothing}, nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.robot.Simulate(ctx, h.clock, Match{Autonomous: time.Second, Plant: h.plant})
	if err != context.Canceled {
		t.Fatalf("Simulate() = %v, want context.Canceled", err)
	}
}

func TestRunEndsWithMatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	g := NewWithT(t)
	h := newHarness(t, autonomous.Mode{Position: autonomous.PositionDoNothing}, nil, "")

	done := make(chan error, 1)
	go func() {
		done <- h.robot.Run(context.Background(), Match{
			Autonomous: 100 * time.Millisecond,
			Teleop:     100 * time.Millisecond,
			Plant:      h.plant,
		})
	}()

	var err error
	g.Eventually(func() bool {
		h.clock.Add(10 * time.Millisecond)
		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, time.Millisecond).Should(BeTrue())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(h.robot.Status().Phase).To(Equal(Disabled))
	g.Expect(h.robot.Loop().Stats().Ticks).To(BeNumerically(">", 0))
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	g := NewWithT(t)
	h := newHarness(t, autonomous.Mode{Position: autonomous.PositionDoNothing}, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.robot.Run(ctx, Match{Autonomous: time.Hour, Plant: h.plant})
	}()

	g.Eventually(func() Phase {
		h.clock.Add(10 * time.Millisecond)
		return h.robot.Status().Phase
	}, 5*time.Second, time.Millisecond).Should(Equal(Autonomous))

	cancel()
	g.Eventually(done, 5*time.Second).Should(Receive(BeNil()))
}
