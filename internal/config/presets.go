package config

import (
	"sort"

	"github.com/san-kum/heatloop/internal/control"
	"github.com/san-kum/heatloop/internal/sim"
)

// Presets build a fresh config each call so callers may modify the result.
var Presets = map[string]func() *Config{
	// 70 °C, 100 °C, then down to 60 °C with the tuned brewing gains.
	"brew": DefaultConfig,
	"gentle": func() *Config {
		cfg := DefaultConfig()
		cfg.Controller.Kp, cfg.Controller.Ki, cfg.Controller.Kd = 20, 1, 0
		cfg.Sim.Schedule = sim.Schedule{{Target: 6500, Steps: 4000}}
		return cfg
	},
	// Derivative on error reacts to every setpoint step.
	"kick": func() *Config {
		cfg := DefaultConfig()
		cfg.Controller.Mode = control.OnError.String()
		cfg.Controller.Kd = 400
		cfg.Sim.Schedule = sim.Schedule{
			{Target: 5000, Steps: 1500},
			{Target: 8000, Steps: 1500},
		}
		return cfg
	},
	"onoff": func() *Config {
		cfg := DefaultConfig()
		cfg.Controller.Kind = "onoff"
		cfg.Controller.Low, cfg.Controller.High, cfg.Controller.Band = 0, 255, 50
		cfg.Sim.Schedule = sim.Schedule{{Target: 7000, Steps: 3000}}
		return cfg
	},
	"step": func() *Config {
		cfg := DefaultConfig()
		cfg.Controller.Kind = "manual"
		cfg.Controller.Power = 255
		cfg.Sim.Schedule = sim.Schedule{{Target: 0, Steps: 2000}}
		return cfg
	},
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
