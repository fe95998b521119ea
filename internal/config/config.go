// Package config is the robocore yaml configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/robocore/internal/plant"
)

const (
	DefaultFastPeriod  = 10 * time.Millisecond
	DefaultStatePeriod = 20 * time.Millisecond
	DefaultAutonomous  = 15 * time.Second
	DefaultTeleop      = 5 * time.Second
	DefaultDataDir     = ".robocore"
)

type Config struct {
	Properties    string       `yaml:"properties"`
	AutonomousDir string       `yaml:"autonomous_dir"`
	DataDir       string       `yaml:"data_dir"`
	LiveTuning    bool         `yaml:"live_tuning"`
	Mode          ModeConfig   `yaml:"mode"`
	Loop          LoopConfig   `yaml:"loop"`
	Match         MatchConfig  `yaml:"match"`
	Plant         plant.Config `yaml:"plant"`
	Log           LogConfig    `yaml:"log"`
}

type ModeConfig struct {
	Position  int  `yaml:"position"`
	Defense   int  `yaml:"defense"`
	StealBall bool `yaml:"steal_ball"`
}

type LoopConfig struct {
	FastPeriod  time.Duration `yaml:"fast_period"`
	StatePeriod time.Duration `yaml:"state_period"`
}

type MatchConfig struct {
	Autonomous time.Duration `yaml:"autonomous"`
	Teleop     time.Duration `yaml:"teleop"`

	// Realtime paces the match on the wall clock instead of running it as
	// fast as possible on a simulated one.
	Realtime bool `yaml:"realtime"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Properties:    "robot.properties",
		AutonomousDir: "autonomous",
		DataDir:       DefaultDataDir,
		Mode:          ModeConfig{Position: 2, Defense: 1},
		Loop: LoopConfig{
			FastPeriod:  DefaultFastPeriod,
			StatePeriod: DefaultStatePeriod,
		},
		Match: MatchConfig{
			Autonomous: DefaultAutonomous,
			Teleop:     DefaultTeleop,
		},
		Plant: plant.DefaultConfig(),
		Log:   LogConfig{Level: "info"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Loop.FastPeriod <= 0 || c.Loop.StatePeriod <= 0 {
		return fmt.Errorf("config: loop periods must be positive")
	}
	if c.Match.Autonomous < 0 || c.Match.Teleop < 0 {
		return fmt.Errorf("config: match durations must not be negative")
	}
	return c.Plant.Validate()
}
