package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/heatloop/internal/config"
	"github.com/san-kum/heatloop/internal/control"
	"github.com/san-kum/heatloop/internal/metrics"
	"github.com/san-kum/heatloop/internal/sim"
)

type Factory func(cfg config.ControllerConfig) (control.Controller, error)

type Registry struct {
	controllers map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{controllers: make(map[string]Factory)}

	r.controllers["pid"] = newPID
	r.controllers["onoff"] = func(cfg config.ControllerConfig) (control.Controller, error) {
		if cfg.Band < 0 {
			return nil, fmt.Errorf("onoff band must not be negative, got %d", cfg.Band)
		}
		c := control.NewOnOff(cfg.Low, cfg.High, cfg.Band)
		return c, nil
	}
	r.controllers["manual"] = func(cfg config.ControllerConfig) (control.Controller, error) {
		return control.NewManual(cfg.Power), nil
	}

	return r
}

func newPID(cfg config.ControllerConfig) (control.Controller, error) {
	mode, err := control.ParseDerivativeMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	pid := control.NewPID(cfg.Kp, cfg.Ki, cfg.Kd)
	pid.Mode = mode

	il := cfg.IntegralLimits()
	if err := pid.SetIntegralLimits(il.Min, il.Max); err != nil {
		return nil, fmt.Errorf("integral: %w", err)
	}
	ol := cfg.OutputLimits()
	if err := pid.SetOutputLimits(ol.Min, ol.Max); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	return pid, nil
}

// Register adds or replaces a controller factory.
func (r *Registry) Register(name string, f Factory) {
	r.controllers[name] = f
}

func (r *Registry) GetController(cfg config.ControllerConfig) (control.Controller, error) {
	fn, ok := r.controllers[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", cfg.Kind)
	}
	return fn(cfg)
}

func (r *Registry) ListControllers() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OutputRange returns the bounds the configured controller can drive.
func OutputRange(cfg config.ControllerConfig) (low, high int32) {
	switch cfg.Kind {
	case "onoff":
		return cfg.Low, cfg.High
	case "manual":
		return 0, cfg.Power
	}
	l := cfg.OutputLimits()
	return l.Min, l.Max
}

// DefaultMetrics returns fresh metrics for one run. Saturation is measured
// against the controller's output bounds, stability against the plant
// safety limit.
func (r *Registry) DefaultMetrics(cfg config.ControllerConfig) []sim.Metric {
	low, high := OutputRange(cfg)
	return []sim.Metric{
		metrics.NewControlEffort(),
		metrics.NewIAE(),
		metrics.NewOvershoot(),
		metrics.NewSaturation(low, high),
		metrics.NewRipple(metrics.DefaultRippleWindow),
		metrics.NewStability(metrics.DefaultSafetyLimit),
	}
}
