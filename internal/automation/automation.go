// Package automation plays scripted batches of matches: a scenario file
// listing matches to run in order, and Monte Carlo trials that jitter the
// starting heading to see how robust a program is.
package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted list of matches.
type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Matches     []MatchSpec `yaml:"matches"`
}

// MatchSpec selects the program and conditions for one match. Preset, when
// set, supplies the mode and program; Properties are applied on top.
type MatchSpec struct {
	Name         string            `yaml:"name"`
	Preset       string            `yaml:"preset"`
	Position     int               `yaml:"position"`
	Defense      int               `yaml:"defense"`
	StealBall    bool              `yaml:"steal_ball"`
	Properties   map[string]string `yaml:"properties"`
	Autonomous   time.Duration     `yaml:"autonomous"`
	Teleop       time.Duration     `yaml:"teleop"`
	Integrator   string            `yaml:"integrator"`
	StartHeading float64           `yaml:"start_heading"`
}

// Outcome is what a Runner reports for one match.
type Outcome struct {
	RunID     string
	Completed bool
	Metrics   map[string]float64
}

// Runner plays one match.
type Runner func(ctx context.Context, m MatchSpec) (Outcome, error)

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("automation: parsing %s: %w", path, err)
	}
	if len(scenario.Matches) == 0 {
		return nil, fmt.Errorf("automation: %s lists no matches", path)
	}
	return &scenario, nil
}

// RunScenario plays every match in order and stops at the first error.
func RunScenario(ctx context.Context, scenario *Scenario, run Runner, logger *zap.Logger) ([]Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]Outcome, 0, len(scenario.Matches))

	for i, m := range scenario.Matches {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Info("playing match",
			zap.String("scenario", scenario.Name),
			zap.Int("match", i+1),
			zap.Int("of", len(scenario.Matches)),
			zap.String("name", m.Name))

		out, err := run(ctx, m)
		if err != nil {
			return results, fmt.Errorf("match %d (%s): %w", i+1, m.Name, err)
		}
		results = append(results, out)
	}
	return results, nil
}

// MonteCarloConfig jitters the starting heading of a base match.
type MonteCarloConfig struct {
	Base         MatchSpec
	Perturbation float64 // degrees either side
	NumTrials    int
	Seed         int64
}

// MonteCarloResult is one trial.
type MonteCarloResult struct {
	TrialID      int
	StartHeading float64
	Outcome      Outcome
}

// RunMonteCarlo plays NumTrials matches from perturbed headings. A zero
// Seed draws one from the clock.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, run Runner, logger *zap.Logger) ([]MonteCarloResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	for trial := 0; trial < cfg.NumTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		m := cfg.Base
		m.StartHeading = cfg.Base.StartHeading + (rng.Float64()-0.5)*2*cfg.Perturbation
		m.Name = fmt.Sprintf("%s#%d", cfg.Base.Name, trial)

		out, err := run(ctx, m)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}
		results = append(results, MonteCarloResult{TrialID: trial, StartHeading: m.StartHeading, Outcome: out})

		if (trial+1)%10 == 0 {
			logger.Info("monte carlo progress", zap.Int("done", trial+1), zap.Int("trials", cfg.NumTrials))
		}
	}
	return results, nil
}

// MonteCarloStats counts trials whose program finished.
func MonteCarloStats(results []MonteCarloResult) (completed int, incomplete int) {
	for _, r := range results {
		if r.Outcome.Completed {
			completed++
		} else {
			incomplete++
		}
	}
	return
}
