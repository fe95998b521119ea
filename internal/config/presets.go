package config

import (
	"sort"

	"github.com/samber/lo"
)

// Preset is a ready-made autonomous selection with the program it loads.
type Preset struct {
	Description string
	Mode        ModeConfig
	Program     map[string]string
}

var Presets = map[string]Preset{
	"do_nothing": {
		Description: "sit still for the whole period",
		Mode:        ModeConfig{Position: 7},
	},
	"reach": {
		Description: "drive up to the outer works",
		Mode:        ModeConfig{Position: 8},
	},
	"spybot": {
		Description: "shoot from the spy box",
		Mode:        ModeConfig{Position: 9},
		Program: map[string]string{
			"shooterRPMTolerance":    "150",
			"AutonomousNumStates":    "2",
			"AutonomousState1":       "StartShooter",
			"AutonomousState1Param1": "4750",
			"AutonomousState2":       "JustShoot",
			"AutonomousState2Param1": "8000",
		},
	},
	"rough_terrain": {
		Description: "cross the rough terrain and take an aimed shot",
		Mode:        ModeConfig{Position: 2, Defense: 1},
		Program: map[string]string{
			"AutonomousNumStates":    "2",
			"AutonomousState1":       "DeployIntake",
			"AutonomousState1Param1": "1",
			"AutonomousState2":       "AltDriveOverDefense",
			"AutonomousState2Param1": "0.7",
			"AutonomousState2Param2": "4000",
		},
	},
	"moat": {
		Description: "cross the moat under the defense controller and take an aimed shot",
		Mode:        ModeConfig{Position: 3, Defense: 4},
		Program: map[string]string{
			"AutonomousNumStates":    "1",
			"AutonomousState1":       "DriveOverDefense",
			"AutonomousState1Param1": "250",
			"AutonomousState1Param2": "0.8",
			"AutonomousState1Param3": "50",
		},
	},
}

func GetPreset(name string) (Preset, bool) {
	p, ok := Presets[name]
	return p, ok
}

func ListPresets() []string {
	names := lo.Keys(Presets)
	sort.Strings(names)
	return names
}
