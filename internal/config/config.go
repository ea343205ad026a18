package config

import (
	"fmt"
	"os"
	"time"

	"github.com/san-kum/heatloop/internal/control"
	"github.com/san-kum/heatloop/internal/sim"
	"github.com/san-kum/heatloop/internal/thermal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultKp      = 50
	DefaultKi      = 1
	DefaultKd      = -40
	DefaultMaxDuty = 1024
	DefaultTick    = time.Second
	DefaultTarget  = 10000
)

type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Plant      thermal.Config   `yaml:"plant"`
	Sim        sim.Config       `yaml:"sim"`
	Step       sim.StepConfig   `yaml:"step"`
	Regulator  RegulatorConfig  `yaml:"regulator"`
}

type LimitsConfig struct {
	Min int32 `yaml:"min"`
	Max int32 `yaml:"max"`
}

type ControllerConfig struct {
	Kind string `yaml:"kind"`

	// pid
	Kp   int32  `yaml:"kp"`
	Ki   int32  `yaml:"ki"`
	Kd   int32  `yaml:"kd"`
	Mode string `yaml:"mode"`

	// Limits bounds both the integral and the output unless overridden.
	Limits   *LimitsConfig `yaml:"limits,omitempty"`
	Integral *LimitsConfig `yaml:"integral,omitempty"`
	Output   *LimitsConfig `yaml:"output,omitempty"`

	// onoff
	Low  int32 `yaml:"low"`
	High int32 `yaml:"high"`
	Band int32 `yaml:"band"`

	// manual
	Power int32 `yaml:"power"`
}

type RegulatorConfig struct {
	Tick    time.Duration `yaml:"tick"`
	Dt      int32         `yaml:"dt"`
	Target  int32         `yaml:"target"`
	MaxDuty int32         `yaml:"max_duty"`
	// Scale converts the sensor's °C to controller units.
	Scale float64 `yaml:"scale"`
}

func DefaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			Kind:   "pid",
			Kp:     DefaultKp,
			Ki:     DefaultKi,
			Kd:     DefaultKd,
			Mode:   control.OnMeasurement.String(),
			Limits: &LimitsConfig{Min: 0, Max: DefaultMaxDuty},
			Low:    0,
			High:   DefaultMaxDuty,
			Band:   50,
			Power:  255,
		},
		Plant: thermal.DefaultConfig(),
		Sim:   sim.DefaultConfig(),
		Step:  sim.DefaultStepConfig(),
		Regulator: RegulatorConfig{
			Tick:    DefaultTick,
			Dt:      1,
			Target:  DefaultTarget,
			MaxDuty: DefaultMaxDuty,
			Scale:   100,
		},
	}
}

// Load reads a yaml file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Controller.Validate(); err != nil {
		return err
	}
	if err := c.Plant.Validate(); err != nil {
		return err
	}
	if err := c.Sim.Validate(); err != nil {
		return err
	}
	if c.Regulator.Tick <= 0 {
		return fmt.Errorf("config: regulator tick must be positive, got %v", c.Regulator.Tick)
	}
	if c.Regulator.Dt <= 0 {
		return fmt.Errorf("config: regulator dt must be positive, got %d", c.Regulator.Dt)
	}
	if c.Regulator.MaxDuty <= 0 {
		return fmt.Errorf("config: regulator max duty must be positive, got %d", c.Regulator.MaxDuty)
	}
	if c.Regulator.Scale <= 0 {
		return fmt.Errorf("config: regulator scale must be positive, got %f", c.Regulator.Scale)
	}
	return nil
}

func (c ControllerConfig) Validate() error {
	switch c.Kind {
	case "pid":
		if _, err := control.ParseDerivativeMode(c.Mode); err != nil {
			return err
		}
		for name, l := range map[string]*LimitsConfig{"limits": c.Limits, "integral": c.Integral, "output": c.Output} {
			if l != nil && l.Min > l.Max {
				return fmt.Errorf("config: controller %s: %w: [%d, %d]", name, control.ErrInvalidLimits, l.Min, l.Max)
			}
		}
	case "onoff":
		if c.Band < 0 {
			return fmt.Errorf("config: onoff band must not be negative, got %d", c.Band)
		}
	case "manual":
	default:
		return fmt.Errorf("config: unknown controller kind %q", c.Kind)
	}
	return nil
}

// IntegralLimits and OutputLimits resolve overrides against Limits, falling
// back to the full int32 range.
func (c ControllerConfig) IntegralLimits() control.Limits {
	return resolve(c.Integral, c.Limits)
}

func (c ControllerConfig) OutputLimits() control.Limits {
	return resolve(c.Output, c.Limits)
}

func resolve(specific, common *LimitsConfig) control.Limits {
	switch {
	case specific != nil:
		return control.Limits{Min: specific.Min, Max: specific.Max}
	case common != nil:
		return control.Limits{Min: common.Min, Max: common.Max}
	}
	return control.DefaultLimits()
}

// Params returns the tuning values for run metadata.
func (c ControllerConfig) Params() map[string]int32 {
	switch c.Kind {
	case "onoff":
		return map[string]int32{"low": c.Low, "high": c.High, "band": c.Band}
	case "manual":
		return map[string]int32{"power": c.Power}
	}
	return map[string]int32{"kp": c.Kp, "ki": c.Ki, "kd": c.Kd}
}
